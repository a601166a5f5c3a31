package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/lcshtree/pkg/lcsh/internalerr"
)

// Store is the main interface for persisting and querying LCSH terms
type Store interface {
	Close() error

	// Lookups
	FetchTermsByIDs(ctx context.Context, ids []string) ([]Term, error)
	GetTerm(ctx context.Context, id string) (Term, bool, error)
	SearchTerms(ctx context.Context, q Query) ([]Term, error)

	// Loading
	UpsertTerm(ctx context.Context, t Term) error
}

// Fetcher is the batched lookup the resolver depends on.
// Identifiers with no stored term are left out of the result; that is not an error.
type Fetcher interface {
	FetchTermsByIDs(ctx context.Context, ids []string) ([]Term, error)
}

// Term is a single LCSH subject heading record
type Term struct {
	ID        string
	Label     string
	AltLabels []string
	Broader   []string
	Narrower  []string
	Topmost   Ancestry
	Note      string
	Flags     Flags
}

// Flags are the category markers LOC attaches to a heading.
type Flags struct {
	ValidationRecord   Flag
	TopicalSubdivision Flag
	GenreForm          Flag
	ChildrensSubjects  Flag
}

// Flag is a tri-state boolean: a record may omit the field entirely.
type Flag uint8

const (
	FlagUnset Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts an optional bool into a Flag.
func FlagOf(b *bool) Flag {
	if b == nil {
		return FlagUnset
	}
	return BoolFlag(*b)
}

// BoolFlag converts a present bool into a Flag.
func BoolFlag(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// IsSet reports whether the field was present on the record.
func (f Flag) IsSet() bool { return f != FlagUnset }

// True reports whether the field is present and true.
func (f Flag) True() bool { return f == FlagTrue }

// Ptr returns the flag as an optional bool, nil when unset.
func (f Flag) Ptr() *bool {
	if f == FlagUnset {
		return nil
	}
	b := f == FlagTrue
	return &b
}

// Ancestry holds the precomputed topmost ancestors of a term.
// Recorded is false when the store has no ancestry data for the term.
// A recorded empty list means the term is itself topmost.
type Ancestry struct {
	Recorded bool
	IDs      []string
}

// NoAncestry is the zero Ancestry: nothing recorded.
var NoAncestry = Ancestry{}

// TopmostOf builds a recorded Ancestry.
func TopmostOf(ids ...string) Ancestry {
	out := make([]string, len(ids))
	copy(out, ids)
	return Ancestry{Recorded: true, IDs: out}
}

// HasAncestors reports whether there are named ancestors to look up.
func (a Ancestry) HasAncestors() bool {
	return a.Recorded && len(a.IDs) > 0
}

// Valid reports whether the term carries the fields every consumer needs.
func (t Term) Valid() bool {
	return strings.TrimSpace(t.ID) != "" && strings.TrimSpace(t.Label) != ""
}

// Check is Valid as an error wrapping internalerr.ErrMalformedRecord.
func (t Term) Check() error {
	if t.Valid() {
		return nil
	}
	return fmt.Errorf("%w: id=%q label=%q", internalerr.ErrMalformedRecord, t.ID, t.Label)
}

// Query is a compiled label search
type Query struct {
	Pattern        *regexp.Regexp
	MatchAltLabels bool
	Limit          int
}

// Matches reports whether the term satisfies the query.
// The identifier and label are always tested; alternate labels only on request.
func (q Query) Matches(t Term) bool {
	if q.Pattern == nil {
		return false
	}
	if q.Pattern.MatchString(t.ID) || q.Pattern.MatchString(t.Label) {
		return true
	}
	if q.MatchAltLabels {
		for _, alt := range t.AltLabels {
			if q.Pattern.MatchString(alt) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the term.
func (t Term) Clone() Term {
	copySlice := func(in []string) []string {
		if in == nil {
			return nil
		}
		out := make([]string, len(in))
		copy(out, in)
		return out
	}

	return Term{
		ID:        t.ID,
		Label:     t.Label,
		AltLabels: copySlice(t.AltLabels),
		Broader:   copySlice(t.Broader),
		Narrower:  copySlice(t.Narrower),
		Topmost: Ancestry{
			Recorded: t.Topmost.Recorded,
			IDs:      copySlice(t.Topmost.IDs),
		},
		Note:  t.Note,
		Flags: t.Flags,
	}
}

// UniqueIDs drops blanks and repeats, keeping first occurrences in order.
func UniqueIDs(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
