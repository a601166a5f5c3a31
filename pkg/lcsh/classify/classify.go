// Package classify decides which LCSH records are administrative noise.
package classify

import "github.com/cognicore/lcshtree/pkg/lcsh/store"

// Ignorable reports whether a term should be kept out of display lists:
// validation records, genre/form headings, children's subject headings, and
// topical subdivisions that have no narrower terms. Unset flags count as false.
func Ignorable(t store.Term) bool {
	f := t.Flags
	switch {
	case f.ValidationRecord.True():
		return true
	case f.GenreForm.True():
		return true
	case f.ChildrensSubjects.True():
		return true
	case f.TopicalSubdivision.True() && len(t.Narrower) == 0:
		return true
	}
	return false
}
