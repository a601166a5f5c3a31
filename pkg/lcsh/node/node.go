package node

import (
	"sort"
	"strings"

	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// Annotation markers appended to titles.
const (
	BroaderMarker  = "△"
	NarrowerMarker = "▽"
)

// Tooltip fragments.
const (
	noAltLabels   = "(No alt labels)"
	altLabelsHead = "Alt labels: \n - "
	altLabelsSep  = "\n - "
	notePrefix    = "\n\nNote (from LOC): "
)

// Node is a display-ready tree entry for one term.
// HasChildren nodes are lazy containers: their narrower terms are fetched on expansion.
type Node struct {
	ID          string `json:"key"`
	Title       string `json:"title"`
	Tooltip     string `json:"tooltip"`
	HasChildren bool   `json:"folder,omitempty"`
	Lazy        bool   `json:"lazy,omitempty"`
}

// Ref is the short key/title form used for a repository's saved topics.
type Ref struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Build converts a term into a node.
func Build(t store.Term) Node {
	children := len(t.Narrower) > 0
	return Node{
		ID:          t.ID,
		Title:       Title(t),
		Tooltip:     Tooltip(t),
		HasChildren: children,
		Lazy:        children,
	}
}

// Title renders "label [id]" followed by hierarchy markers:
// " △" with broader terms, " ▽" with narrower terms, " △ ▽" with both.
func Title(t store.Term) string {
	var b strings.Builder
	b.WriteString(t.Label)
	b.WriteString(" [")
	b.WriteString(t.ID)
	b.WriteString("]")
	if len(t.Broader) > 0 {
		b.WriteString(" " + BroaderMarker)
	}
	if len(t.Narrower) > 0 {
		b.WriteString(" " + NarrowerMarker)
	}
	return b.String()
}

// Tooltip lists alternate labels one per line, followed by the LOC note if any.
func Tooltip(t store.Term) string {
	tip := noAltLabels
	if len(t.AltLabels) > 0 {
		tip = altLabelsHead + strings.Join(t.AltLabels, altLabelsSep)
	}
	if t.Note != "" {
		tip += notePrefix + t.Note
	}
	return tip
}

// RefOf returns the key/title pair for a term.
func RefOf(t store.Term) Ref {
	return Ref{Key: t.ID, Title: Title(t)}
}

// Sort orders nodes by title, case-insensitively, in place. Equal titles keep
// their relative order.
func Sort(nodes []Node) []Node {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Title) < strings.ToLower(nodes[j].Title)
	})
	return nodes
}

// SortRefs orders refs the same way Sort orders nodes.
func SortRefs(refs []Ref) []Ref {
	sort.SliceStable(refs, func(i, j int) bool {
		return strings.ToLower(refs[i].Title) < strings.ToLower(refs[j].Title)
	})
	return refs
}
