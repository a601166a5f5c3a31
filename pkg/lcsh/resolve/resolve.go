// Package resolve turns search hits into a deduplicated, sorted list of
// display nodes, optionally collapsed to each hit's topmost ancestors.
//
// Ancestors that are not already part of the input are looked up with a
// single batched fetch after every input record has been scanned, so a
// resolve call talks to the store at most twice: once to load records when
// the request carries bare identifiers, and once for missing ancestors.
package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognicore/lcshtree/pkg/lcsh/classify"
	"github.com/cognicore/lcshtree/pkg/lcsh/internalerr"
	"github.com/cognicore/lcshtree/pkg/lcsh/node"
	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// Kind tells which input shape a Request carries.
type Kind int

const (
	// KindIdentifiers requests carry bare term identifiers.
	KindIdentifiers Kind = iota + 1
	// KindRecords requests carry full term records.
	KindRecords
)

func (k Kind) String() string {
	switch k {
	case KindIdentifiers:
		return "identifiers"
	case KindRecords:
		return "records"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request is the input to Resolve. Build it with FromIDs or FromRecords.
type Request struct {
	Kind              Kind
	IDs               []string
	Records           []store.Term
	CollapseToTopmost bool
}

// FromIDs builds an identifier-driven request.
func FromIDs(ids []string, collapse bool) Request {
	return Request{Kind: KindIdentifiers, IDs: ids, CollapseToTopmost: collapse}
}

// FromRecords builds a record-driven request.
func FromRecords(terms []store.Term, collapse bool) Request {
	return Request{Kind: KindRecords, Records: terms, CollapseToTopmost: collapse}
}

// Result holds the resolved nodes plus bookkeeping for the caller.
type Result struct {
	Nodes []node.Node
	// Dropped counts records skipped for missing an identifier or label.
	Dropped int
	// Fetches counts round-trips to the store.
	Fetches int
}

// Resolver materialises display nodes from term records.
// It holds no per-call state and is safe for concurrent use.
type Resolver struct {
	store  store.Fetcher
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for fetch and drop reports.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver that loads terms through f.
func New(f store.Fetcher, opts ...Option) *Resolver {
	r := &Resolver{store: f, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve converts the request into sorted display nodes.
//
// Ignorable terms are skipped. Without collapsing, every remaining record
// becomes a node. With collapsing, records that name topmost ancestors are
// replaced by those ancestors. Ancestors missing from the store are left out
// silently. Store failures abort the call.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	res := Result{Nodes: []node.Node{}}

	var records []store.Term
	switch req.Kind {
	case KindIdentifiers:
		ids := store.UniqueIDs(req.IDs)
		if len(ids) == 0 {
			return res, nil
		}
		fetched, err := r.fetch(ctx, ids, &res)
		if err != nil {
			return Result{}, fmt.Errorf("fetch terms: %w", err)
		}
		records = fetched
	case KindRecords:
		records = req.Records
	default:
		return Result{}, fmt.Errorf("%w: unknown request kind %s", internalerr.ErrInvalidInput, req.Kind)
	}
	if len(records) == 0 {
		return res, nil
	}

	kept := make([]store.Term, 0, len(records))
	for _, t := range records {
		if !t.Valid() {
			res.Dropped++
			continue
		}
		if classify.Ignorable(t) {
			continue
		}
		kept = append(kept, t)
	}

	seen := make(map[string]struct{}, len(kept))
	emitted := make(map[string]struct{}, len(kept))
	emit := func(t store.Term) {
		if _, dup := emitted[t.ID]; dup {
			return
		}
		emitted[t.ID] = struct{}{}
		res.Nodes = append(res.Nodes, node.Build(t))
	}

	for _, t := range kept {
		if req.CollapseToTopmost && t.Topmost.HasAncestors() {
			continue
		}
		seen[t.ID] = struct{}{}
		emit(t)
	}

	if req.CollapseToTopmost {
		var missing []string
		for _, t := range kept {
			if !t.Topmost.HasAncestors() {
				continue
			}
			for _, id := range t.Topmost.IDs {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				missing = append(missing, id)
			}
		}

		missing = store.UniqueIDs(missing)
		if len(missing) > 0 {
			ancestors, err := r.fetch(ctx, missing, &res)
			if err != nil {
				return Result{}, fmt.Errorf("fetch topmost ancestors: %w", err)
			}
			for _, t := range ancestors {
				if !t.Valid() {
					res.Dropped++
					continue
				}
				if classify.Ignorable(t) {
					continue
				}
				emit(t)
			}
		}
	}

	if res.Dropped > 0 {
		r.logger.Warn("dropped malformed term records", "count", res.Dropped)
	}

	node.Sort(res.Nodes)
	return res, nil
}

func (r *Resolver) fetch(ctx context.Context, ids []string, res *Result) ([]store.Term, error) {
	res.Fetches++
	terms, err := r.store.FetchTermsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("fetched terms", "requested", len(ids), "found", len(terms))
	return terms, nil
}
