// Package query compiles the search box text into a term search.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/lcshtree/pkg/lcsh/internalerr"
	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// Options mirror the search form switches.
type Options struct {
	// Regexp treats the text as a regular expression instead of a literal.
	Regexp bool
	// Substrings allows matches anywhere; otherwise the whole field must match.
	Substrings bool
	// AltLabels also searches alternate labels.
	AltLabels bool
	// Limit caps the number of returned records; zero means no cap.
	Limit int
}

// Compile builds a case-insensitive pattern from text.
func Compile(text string, opts Options) (*regexp.Regexp, error) {
	pattern := strings.TrimSpace(text)
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty search text", internalerr.ErrInvalidInput)
	}
	if !opts.Regexp {
		pattern = regexp.QuoteMeta(pattern)
	}
	if !opts.Substrings {
		pattern = "^(?:" + pattern + ")$"
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regexp syntax %q: %v", internalerr.ErrInvalidInput, text, err)
	}
	return re, nil
}

// Build compiles text into a store.Query.
func Build(text string, opts Options) (store.Query, error) {
	re, err := Compile(text, opts)
	if err != nil {
		return store.Query{}, err
	}
	return store.Query{
		Pattern:        re,
		MatchAltLabels: opts.AltLabels,
		Limit:          opts.Limit,
	}, nil
}
