package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/lcshtree/pkg/lcsh/internalerr"
	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// maxBatch keeps IN (...) lists under SQLite's bound-parameter limit.
const maxBatch = 500

const (
	relAlt      = "alt"
	relBroader  = "broader"
	relNarrower = "narrower"
	relTopmost  = "topmost"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable(err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS terms (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	topmost_recorded INTEGER NOT NULL DEFAULT 0,
	validation_record INTEGER,
	topical_subdivision INTEGER,
	genre_form INTEGER,
	childrens_subjects INTEGER
);

CREATE TABLE IF NOT EXISTS term_links (
	term_id TEXT NOT NULL,
	rel TEXT NOT NULL,
	pos INTEGER NOT NULL,
	target TEXT NOT NULL,
	PRIMARY KEY(term_id, rel, pos),
	FOREIGN KEY(term_id) REFERENCES terms(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_term_links_target ON term_links(target, rel);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertTerm inserts or replaces a term together with its links
func (s *sqliteStore) UpsertTerm(ctx context.Context, t store.Term) error {
	if t.ID == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(err)
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO terms (id, label, note, topmost_recorded, validation_record, topical_subdivision, genre_form, childrens_subjects)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	label=excluded.label,
	note=excluded.note,
	topmost_recorded=excluded.topmost_recorded,
	validation_record=excluded.validation_record,
	topical_subdivision=excluded.topical_subdivision,
	genre_form=excluded.genre_form,
	childrens_subjects=excluded.childrens_subjects;
`

	recorded := 0
	if t.Topmost.Recorded {
		recorded = 1
	}
	if _, err := tx.ExecContext(ctx, stmt,
		t.ID,
		t.Label,
		t.Note,
		recorded,
		flagValue(t.Flags.ValidationRecord),
		flagValue(t.Flags.TopicalSubdivision),
		flagValue(t.Flags.GenreForm),
		flagValue(t.Flags.ChildrensSubjects),
	); err != nil {
		return unavailable(err)
	}

	if err := replaceLinks(ctx, tx, t); err != nil {
		return unavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable(err)
	}
	return nil
}

func replaceLinks(ctx context.Context, tx *sql.Tx, t store.Term) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM term_links WHERE term_id=?`, t.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO term_links (term_id, rel, pos, target) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, group := range []struct {
		rel     string
		targets []string
	}{
		{relAlt, t.AltLabels},
		{relBroader, t.Broader},
		{relNarrower, t.Narrower},
		{relTopmost, t.Topmost.IDs},
	} {
		for pos, target := range group.targets {
			if target == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, t.ID, group.rel, pos, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// FetchTermsByIDs loads every stored term among ids, in request order
func (s *sqliteStore) FetchTermsByIDs(ctx context.Context, ids []string) ([]store.Term, error) {
	unique := store.UniqueIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	found := make(map[string]*store.Term, len(unique))
	for start := 0; start < len(unique); start += maxBatch {
		end := start + maxBatch
		if end > len(unique) {
			end = len(unique)
		}
		if err := s.loadBatch(ctx, unique[start:end], found); err != nil {
			return nil, unavailable(err)
		}
	}

	out := make([]store.Term, 0, len(found))
	for _, id := range unique {
		if t, ok := found[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

// GetTerm retrieves a single term by ID
func (s *sqliteStore) GetTerm(ctx context.Context, id string) (store.Term, bool, error) {
	terms, err := s.FetchTermsByIDs(ctx, []string{id})
	if err != nil {
		return store.Term{}, false, err
	}
	if len(terms) == 0 {
		return store.Term{}, false, nil
	}
	return terms[0], true, nil
}

// SearchTerms scans identifiers, labels and (optionally) alternate labels
// against the query pattern. Results are ordered by ID.
func (s *sqliteStore) SearchTerms(ctx context.Context, q store.Query) ([]store.Term, error) {
	if q.Pattern == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT t.id, t.label, COALESCE(l.target, '')
FROM terms t
LEFT JOIN term_links l ON l.term_id = t.id AND l.rel = 'alt'
ORDER BY t.id, l.pos;
`)
	if err != nil {
		return nil, unavailable(err)
	}

	var (
		matched []string
		current store.Term
		done    bool
	)
	flush := func() {
		if current.ID == "" || done {
			return
		}
		if q.Matches(current) {
			matched = append(matched, current.ID)
			if q.Limit > 0 && len(matched) >= q.Limit {
				done = true
			}
		}
	}
	for rows.Next() {
		var id, label, alt string
		if err := rows.Scan(&id, &label, &alt); err != nil {
			rows.Close()
			return nil, unavailable(err)
		}
		if id != current.ID {
			flush()
			if done {
				break
			}
			current = store.Term{ID: id, Label: label}
		}
		if alt != "" {
			current.AltLabels = append(current.AltLabels, alt)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, unavailable(err)
	}
	flush()
	rows.Close()

	if len(matched) == 0 {
		return nil, nil
	}
	terms, err := s.FetchTermsByIDs(ctx, matched)
	if err != nil {
		return nil, err
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })
	return terms, nil
}

func (s *sqliteStore) loadBatch(ctx context.Context, ids []string, found map[string]*store.Term) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, label, note, topmost_recorded, validation_record, topical_subdivision, genre_form, childrens_subjects
FROM terms
WHERE id IN (%s);
`, placeholders), args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			t                   store.Term
			recorded            int64
			validation, topical sql.NullInt64
			genre, childrens    sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Label, &t.Note, &recorded, &validation, &topical, &genre, &childrens); err != nil {
			rows.Close()
			return err
		}
		t.Topmost.Recorded = recorded != 0
		t.Flags = store.Flags{
			ValidationRecord:   scanFlag(validation),
			TopicalSubdivision: scanFlag(topical),
			GenreForm:          scanFlag(genre),
			ChildrensSubjects:  scanFlag(childrens),
		}
		found[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	linkRows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT term_id, rel, target
FROM term_links
WHERE term_id IN (%s)
ORDER BY term_id, rel, pos;
`, placeholders), args...)
	if err != nil {
		return err
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var id, rel, target string
		if err := linkRows.Scan(&id, &rel, &target); err != nil {
			return err
		}
		t, ok := found[id]
		if !ok {
			continue
		}
		switch rel {
		case relAlt:
			t.AltLabels = append(t.AltLabels, target)
		case relBroader:
			t.Broader = append(t.Broader, target)
		case relNarrower:
			t.Narrower = append(t.Narrower, target)
		case relTopmost:
			t.Topmost.IDs = append(t.Topmost.IDs, target)
		}
	}
	return linkRows.Err()
}

func flagValue(f store.Flag) interface{} {
	switch f {
	case store.FlagTrue:
		return 1
	case store.FlagFalse:
		return 0
	default:
		return nil
	}
}

func scanFlag(v sql.NullInt64) store.Flag {
	if !v.Valid {
		return store.FlagUnset
	}
	return store.BoolFlag(v.Int64 != 0)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
}
