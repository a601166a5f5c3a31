package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// TermFile is a YAML seed of term records
type TermFile struct {
	Terms []TermEntry `yaml:"terms"`
}

// TermEntry is one record in a seed file.
// Pointer fields distinguish an omitted key from an explicit false or empty list.
type TermEntry struct {
	ID                 string    `yaml:"id"`
	Label              string    `yaml:"label"`
	AltLabels          []string  `yaml:"alt_labels"`
	Broader            []string  `yaml:"broader"`
	Narrower           []string  `yaml:"narrower"`
	Topmost            *[]string `yaml:"topmost"`
	Note               string    `yaml:"note"`
	ValidationRecord   *bool     `yaml:"validation_record"`
	TopicalSubdivision *bool     `yaml:"topical_subdivision"`
	GenreForm          *bool     `yaml:"genre_form"`
	ChildrensSubjects  *bool     `yaml:"childrens_subjects"`
}

// LoadTerms loads term records from a YAML file
func LoadTerms(path string) ([]store.Term, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf TermFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, err
	}

	terms := make([]store.Term, 0, len(tf.Terms))
	for _, e := range tf.Terms {
		terms = append(terms, e.Term())
	}
	return terms, nil
}

// Term converts the entry into a store record
func (e TermEntry) Term() store.Term {
	t := store.Term{
		ID:        e.ID,
		Label:     e.Label,
		AltLabels: e.AltLabels,
		Broader:   e.Broader,
		Narrower:  e.Narrower,
		Note:      e.Note,
		Flags: store.Flags{
			ValidationRecord:   store.FlagOf(e.ValidationRecord),
			TopicalSubdivision: store.FlagOf(e.TopicalSubdivision),
			GenreForm:          store.FlagOf(e.GenreForm),
			ChildrensSubjects:  store.FlagOf(e.ChildrensSubjects),
		},
	}
	if e.Topmost != nil {
		t.Topmost = store.TopmostOf(*e.Topmost...)
	}
	return t
}
