package lcsh

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lcshtree/pkg/lcsh/internalerr"
	"github.com/cognicore/lcshtree/pkg/lcsh/link"
	"github.com/cognicore/lcshtree/pkg/lcsh/node"
	"github.com/cognicore/lcshtree/pkg/lcsh/query"
	"github.com/cognicore/lcshtree/pkg/lcsh/resolve"
	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// DefaultResultLimit caps label searches when Options leaves it unset.
const DefaultResultLimit = 5000

// Annotator is the term lookup facade used by the annotation form
type Annotator struct {
	store       store.Store
	resolver    *resolve.Resolver
	resultLimit int
	linkBase    string
	logger      *slog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures an Annotator instance
type Options struct {
	Store       store.Store
	ResultLimit int
	LinkBase    string
	Logger      *slog.Logger
}

// New creates an Annotator with the given dependencies
func New(opts Options) *Annotator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.ResultLimit
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	base := opts.LinkBase
	if base == "" {
		base = link.DefaultBase
	}
	return &Annotator{
		store:       opts.Store,
		resolver:    resolve.New(opts.Store, resolve.WithLogger(logger)),
		resultLimit: limit,
		linkBase:    base,
		logger:      logger,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Close cleanly shuts down the Annotator instance
func (a *Annotator) Close() error {
	return a.store.Close()
}

// SearchRequest mirrors the term search form
type SearchRequest struct {
	Text       string
	AltLabels  bool
	Substrings bool
	Regexp     bool
	Topmost    bool
}

// SearchResponse contains resolved nodes and search statistics
type SearchResponse struct {
	ID           string
	Nodes        []node.Node
	TotalTerms   int
	TotalTopmost int
	Truncated    bool
	ResultLimit  int
	Dropped      int
}

// Search finds terms matching the request text and resolves them into nodes,
// collapsed to topmost ancestors when requested.
func (a *Annotator) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	q, err := query.Build(req.Text, query.Options{
		Regexp:     req.Regexp,
		Substrings: req.Substrings,
		AltLabels:  req.AltLabels,
		Limit:      a.resultLimit,
	})
	if err != nil {
		return SearchResponse{}, err
	}

	id := a.newID()
	log := a.logger.With("search", id)
	log.Info("searching terms", "pattern", q.Pattern.String(), "alt_labels", req.AltLabels)

	results, err := a.store.SearchTerms(ctx, q)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search terms: %w", err)
	}
	truncated := len(results) >= a.resultLimit
	if truncated {
		log.Warn("result limit reached; results were truncated", "limit", a.resultLimit)
	}

	res, err := a.resolver.Resolve(ctx, resolve.FromRecords(results, req.Topmost))
	if err != nil {
		return SearchResponse{}, err
	}

	resp := SearchResponse{
		ID:          id,
		Nodes:       res.Nodes,
		TotalTerms:  len(results),
		Truncated:   truncated,
		ResultLimit: a.resultLimit,
		Dropped:     res.Dropped,
	}
	if req.Topmost {
		resp.TotalTopmost = len(res.Nodes)
		log.Info("topmost terms found", "count", resp.TotalTopmost)
	} else {
		log.Info("terms found", "count", len(res.Nodes))
	}
	return resp, nil
}

// Expand returns the narrower terms of id as nodes, for lazy tree expansion.
func (a *Annotator) Expand(ctx context.Context, id string) ([]node.Node, error) {
	term, ok, err := a.store.GetTerm(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get term %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("term %s: %w", id, internalerr.ErrNotFound)
	}

	res, err := a.resolver.Resolve(ctx, resolve.FromIDs(term.Narrower, false))
	if err != nil {
		return nil, err
	}
	return res.Nodes, nil
}

// Titles looks up display titles for a repository's saved topic terms.
// Unknown identifiers are left out.
func (a *Annotator) Titles(ctx context.Context, ids []string) ([]node.Ref, error) {
	unique := store.UniqueIDs(ids)
	if len(unique) == 0 {
		return []node.Ref{}, nil
	}

	a.logger.Info("looking up labels for terms", "terms", strings.Join(unique, ","))
	terms, err := a.store.FetchTermsByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("fetch terms: %w", err)
	}

	refs := make([]node.Ref, 0, len(terms))
	for _, t := range terms {
		if !t.Valid() {
			continue
		}
		refs = append(refs, node.RefOf(t))
	}
	return node.SortRefs(refs), nil
}

// TermDetail is the human-readable view of a single term
type TermDetail struct {
	ID        string
	Label     string
	AltLabels string
	Note      string
	Broader   string // HTML links
	Narrower  string // HTML links
}

// Term returns the detail view of a term with its relations rendered as links.
func (a *Annotator) Term(ctx context.Context, id string) (TermDetail, error) {
	term, ok, err := a.store.GetTerm(ctx, id)
	if err != nil {
		return TermDetail{}, fmt.Errorf("get term %s: %w", id, err)
	}
	if !ok {
		return TermDetail{}, fmt.Errorf("term %s: %w", id, internalerr.ErrNotFound)
	}

	broader, err := link.Terms(a.linkBase, term.Broader)
	if err != nil {
		return TermDetail{}, err
	}
	narrower, err := link.Terms(a.linkBase, term.Narrower)
	if err != nil {
		return TermDetail{}, err
	}

	return TermDetail{
		ID:        term.ID,
		Label:     term.Label,
		AltLabels: strings.Join(term.AltLabels, ", "),
		Note:      term.Note,
		Broader:   broader,
		Narrower:  narrower,
	}, nil
}

func (a *Annotator) newID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ulid.MustNew(ulid.Now(), a.entropy).String()
}
