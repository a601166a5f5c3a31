package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/cognicore/lcshtree/pkg/lcsh/internalerr"
	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "lcsh.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteIntegrationRoundTrip stores a term and reads every field back
func TestSQLiteIntegrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	term := store.Term{
		ID:        "sh85021262",
		Label:     "Cats",
		AltLabels: []string{"Felis catus", "Domestic cat"},
		Broader:   []string{"sh85044527"},
		Narrower:  []string{"sh85021263", "sh85021264"},
		Topmost:   store.TopmostOf("sh85005249"),
		Note:      "Here are entered works on domestic cats.",
		Flags: store.Flags{
			TopicalSubdivision: store.FlagFalse,
			GenreForm:          store.FlagTrue,
		},
	}
	if err := st.UpsertTerm(ctx, term); err != nil {
		t.Fatalf("UpsertTerm: %v", err)
	}

	got, found, err := st.GetTerm(ctx, term.ID)
	if err != nil {
		t.Fatalf("GetTerm: %v", err)
	}
	if !found {
		t.Fatal("term should be found")
	}

	if got.Label != term.Label {
		t.Errorf("Label mismatch: got %q, want %q", got.Label, term.Label)
	}
	if got.Note != term.Note {
		t.Errorf("Note mismatch: got %q, want %q", got.Note, term.Note)
	}
	if len(got.AltLabels) != 2 || got.AltLabels[0] != "Felis catus" || got.AltLabels[1] != "Domestic cat" {
		t.Errorf("AltLabels should keep order, got %v", got.AltLabels)
	}
	if len(got.Broader) != 1 || len(got.Narrower) != 2 {
		t.Errorf("Expected 1 broader and 2 narrower, got %v / %v", got.Broader, got.Narrower)
	}
	if !got.Topmost.HasAncestors() || got.Topmost.IDs[0] != "sh85005249" {
		t.Errorf("Topmost mismatch: %+v", got.Topmost)
	}
	if got.Flags.ValidationRecord.IsSet() {
		t.Error("ValidationRecord was never set and should read back unset")
	}
	if got.Flags.TopicalSubdivision != store.FlagFalse {
		t.Errorf("TopicalSubdivision should read back false, got %v", got.Flags.TopicalSubdivision)
	}
	if !got.Flags.GenreForm.True() {
		t.Error("GenreForm should read back true")
	}
}

// TestSQLiteIntegrationAncestryStates keeps null, empty and named ancestry apart
func TestSQLiteIntegrationAncestryStates(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	terms := []store.Term{
		{ID: "sh1", Label: "No ancestry", Topmost: store.NoAncestry},
		{ID: "sh2", Label: "Itself topmost", Topmost: store.TopmostOf()},
		{ID: "sh3", Label: "Has ancestor", Topmost: store.TopmostOf("sh2")},
	}
	for _, term := range terms {
		if err := st.UpsertTerm(ctx, term); err != nil {
			t.Fatalf("UpsertTerm(%s): %v", term.ID, err)
		}
	}

	got, err := st.FetchTermsByIDs(ctx, []string{"sh1", "sh2", "sh3"})
	if err != nil {
		t.Fatalf("FetchTermsByIDs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 terms, got %d", len(got))
	}

	if got[0].Topmost.Recorded {
		t.Error("sh1 should have no recorded ancestry")
	}
	if !got[1].Topmost.Recorded || got[1].Topmost.HasAncestors() {
		t.Errorf("sh2 should be recorded with no ancestors, got %+v", got[1].Topmost)
	}
	if !got[2].Topmost.HasAncestors() {
		t.Errorf("sh3 should have ancestors, got %+v", got[2].Topmost)
	}
}

// TestSQLiteIntegrationFetchMissing omits unknown identifiers silently
func TestSQLiteIntegrationFetchMissing(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.UpsertTerm(ctx, store.Term{ID: "sh1", Label: "Cats"}); err != nil {
		t.Fatalf("UpsertTerm: %v", err)
	}

	got, err := st.FetchTermsByIDs(ctx, []string{"sh404", "sh1", "sh1", ""})
	if err != nil {
		t.Fatalf("FetchTermsByIDs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "sh1" {
		t.Errorf("Expected only sh1, got %v", got)
	}

	empty, err := st.FetchTermsByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("FetchTermsByIDs(nil): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no terms for empty request, got %d", len(empty))
	}
}

// TestSQLiteIntegrationLargeBatch crosses the internal batch boundary
func TestSQLiteIntegrationLargeBatch(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	var ids []string
	for i := 0; i < maxBatch+37; i++ {
		id := fmt.Sprintf("sh%06d", i)
		ids = append(ids, id)
		if err := st.UpsertTerm(ctx, store.Term{ID: id, Label: "Term " + id, Broader: []string{"sh000000"}}); err != nil {
			t.Fatalf("UpsertTerm: %v", err)
		}
	}

	got, err := st.FetchTermsByIDs(ctx, ids)
	if err != nil {
		t.Fatalf("FetchTermsByIDs: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("Expected %d terms, got %d", len(ids), len(got))
	}
	for i, term := range got {
		if term.ID != ids[i] {
			t.Fatalf("Order mismatch at %d: got %s, want %s", i, term.ID, ids[i])
		}
		if len(term.Broader) != 1 {
			t.Fatalf("Links missing for %s", term.ID)
		}
	}
}

// TestSQLiteIntegrationReUpsert replaces links instead of accumulating them
func TestSQLiteIntegrationReUpsert(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	first := store.Term{ID: "sh1", Label: "Cats", Narrower: []string{"sh2", "sh3"}}
	if err := st.UpsertTerm(ctx, first); err != nil {
		t.Fatalf("UpsertTerm: %v", err)
	}
	second := store.Term{ID: "sh1", Label: "Cats (Felidae)", Narrower: []string{"sh4"}}
	if err := st.UpsertTerm(ctx, second); err != nil {
		t.Fatalf("UpsertTerm: %v", err)
	}

	got, _, err := st.GetTerm(ctx, "sh1")
	if err != nil {
		t.Fatalf("GetTerm: %v", err)
	}
	if got.Label != "Cats (Felidae)" {
		t.Errorf("Label not updated: %q", got.Label)
	}
	if len(got.Narrower) != 1 || got.Narrower[0] != "sh4" {
		t.Errorf("Narrower should be replaced, got %v", got.Narrower)
	}
}

// TestSQLiteIntegrationSearch matches ids, labels and alternate labels
func TestSQLiteIntegrationSearch(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	for _, term := range []store.Term{
		{ID: "sh1", Label: "Cats", AltLabels: []string{"Felis catus"}},
		{ID: "sh2", Label: "Dogs", AltLabels: []string{"Canis familiaris", "Hounds"}},
		{ID: "sh3", Label: "Cat breeds"},
	} {
		if err := st.UpsertTerm(ctx, term); err != nil {
			t.Fatalf("UpsertTerm: %v", err)
		}
	}

	got, err := st.SearchTerms(ctx, store.Query{Pattern: regexp.MustCompile(`(?i)cat`)})
	if err != nil {
		t.Fatalf("SearchTerms: %v", err)
	}
	if len(got) != 2 || got[0].ID != "sh1" || got[1].ID != "sh3" {
		t.Errorf("Expected sh1 and sh3, got %v", got)
	}

	got, err = st.SearchTerms(ctx, store.Query{Pattern: regexp.MustCompile(`(?i)hound`), MatchAltLabels: true})
	if err != nil {
		t.Fatalf("SearchTerms: %v", err)
	}
	if len(got) != 1 || got[0].ID != "sh2" {
		t.Errorf("Expected sh2 via alt label, got %v", got)
	}
	if len(got[0].AltLabels) != 2 {
		t.Errorf("Search results should be full records, got %+v", got[0])
	}

	got, err = st.SearchTerms(ctx, store.Query{Pattern: regexp.MustCompile(`(?i)hound`)})
	if err != nil {
		t.Fatalf("SearchTerms: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Alt labels should not match unless requested, got %v", got)
	}

	got, err = st.SearchTerms(ctx, store.Query{Pattern: regexp.MustCompile(`^sh`), Limit: 2})
	if err != nil {
		t.Fatalf("SearchTerms: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected limit of 2, got %d", len(got))
	}
}

// TestSQLiteClosedStoreUnavailable reports failures as store unavailability
func TestSQLiteClosedStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	st.Close()

	_, err = st.FetchTermsByIDs(ctx, []string{"sh1"})
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}
