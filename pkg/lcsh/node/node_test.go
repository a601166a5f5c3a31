package node

import (
	"strings"
	"testing"

	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

func TestTitleMarkers(t *testing.T) {
	tests := []struct {
		name     string
		broader  []string
		narrower []string
		want     string
	}{
		{"neither", nil, nil, "Cats [sh1]"},
		{"broader only", []string{"sh0"}, nil, "Cats [sh1] △"},
		{"narrower only", nil, []string{"sh2"}, "Cats [sh1] ▽"},
		{"both", []string{"sh0"}, []string{"sh2"}, "Cats [sh1] △ ▽"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := store.Term{ID: "sh1", Label: "Cats", Broader: tt.broader, Narrower: tt.narrower}
			if got := Title(term); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildContainer(t *testing.T) {
	n := Build(store.Term{ID: "sh1", Label: "Cats", Narrower: []string{"sh2"}})

	if n.Title != "Cats [sh1] ▽" {
		t.Errorf("unexpected title %q", n.Title)
	}
	if n.ID != "sh1" {
		t.Errorf("unexpected id %q", n.ID)
	}
	if !n.HasChildren || !n.Lazy {
		t.Error("term with narrower terms should be a lazy container")
	}

	leaf := Build(store.Term{ID: "sh2", Label: "Kittens", Broader: []string{"sh1"}})
	if leaf.HasChildren || leaf.Lazy {
		t.Error("term without narrower terms should be a leaf")
	}
}

func TestTooltip(t *testing.T) {
	tests := []struct {
		name string
		term store.Term
		want string
	}{
		{
			"no labels no note",
			store.Term{ID: "sh1", Label: "Cats"},
			"(No alt labels)",
		},
		{
			"labels",
			store.Term{ID: "sh1", Label: "Cats", AltLabels: []string{"Felis catus", "House cats"}},
			"Alt labels: \n - Felis catus\n - House cats",
		},
		{
			"note without labels",
			store.Term{ID: "sh1", Label: "Cats", Note: "Domestic cats only."},
			"(No alt labels)\n\nNote (from LOC): Domestic cats only.",
		},
		{
			"labels and note",
			store.Term{ID: "sh1", Label: "Cats", AltLabels: []string{"Felis catus"}, Note: "Domestic cats only."},
			"Alt labels: \n - Felis catus\n\nNote (from LOC): Domestic cats only.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tooltip(tt.term); got != tt.want {
				t.Errorf("Tooltip() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSortCaseInsensitiveStable(t *testing.T) {
	nodes := []Node{
		{ID: "a", Title: "dogs"},
		{ID: "b", Title: "Cats"},
		{ID: "c", Title: "cats"},
		{ID: "d", Title: "Birds"},
		{ID: "e", Title: "CATS"},
	}

	Sort(nodes)

	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	if got := strings.Join(ids, ""); got != "dbcea" {
		t.Errorf("expected order dbcea, got %s", got)
	}
	for i := 1; i < len(nodes); i++ {
		if strings.ToLower(nodes[i-1].Title) > strings.ToLower(nodes[i].Title) {
			t.Errorf("titles out of order at %d: %q > %q", i, nodes[i-1].Title, nodes[i].Title)
		}
	}
}

func TestSortRefs(t *testing.T) {
	refs := SortRefs([]Ref{
		{Key: "sh2", Title: "dogs [sh2]"},
		{Key: "sh1", Title: "Cats [sh1]"},
	})
	if refs[0].Key != "sh1" || refs[1].Key != "sh2" {
		t.Errorf("unexpected order %v", refs)
	}
}
