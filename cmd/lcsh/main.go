package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/cognicore/lcshtree/internal/logging"
	"github.com/cognicore/lcshtree/pkg/lcsh"
	"github.com/cognicore/lcshtree/pkg/lcsh/config"
	"github.com/cognicore/lcshtree/pkg/lcsh/store"
	"github.com/cognicore/lcshtree/pkg/lcsh/store/cache"
	"github.com/cognicore/lcshtree/pkg/lcsh/store/sqlite"
)

// Globals are shared by every subcommand.
type Globals struct {
	Config string `name:"config" short:"c" help:"Path to a YAML config file." type:"path"`
	DB     string `name:"db" help:"SQLite database path (overrides config and LCSH_DB)."`
}

type CLI struct {
	Globals

	Import ImportCmd `cmd:"" help:"Load term records from a YAML seed file into the database."`
	Search SearchCmd `cmd:"" help:"Search terms by label and print the resolved tree nodes."`
	Expand ExpandCmd `cmd:"" help:"Print the narrower terms of a term."`
	Titles TitlesCmd `cmd:"" help:"Print display titles for saved topic terms."`
	Term   TermCmd   `cmd:"" help:"Print the detail view of a single term."`
}

type ImportCmd struct {
	Terms string `arg:"" help:"YAML file with a top-level terms list." type:"existingfile"`
}

type SearchCmd struct {
	Text       string `arg:"" help:"Label text, or a pattern with --regexp."`
	AltLabels  bool   `name:"alt-labels" help:"Also match alternate labels."`
	Substrings bool   `name:"substrings" help:"Match anywhere in the label instead of the whole label."`
	Regexp     bool   `name:"regexp" help:"Treat the text as a regular expression."`
	Flat       bool   `name:"flat" help:"List matching terms instead of collapsing to topmost ancestors."`
}

type ExpandCmd struct {
	ID string `arg:"" help:"Term identifier."`
}

type TitlesCmd struct {
	IDs []string `arg:"" help:"Term identifiers."`
}

type TermCmd struct {
	ID string `arg:"" help:"Term identifier."`
}

// env carries the loaded config and logger into subcommands.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

func (g *Globals) load() (*env, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.DB != "" {
		cfg.Database = g.DB
	}
	logger := logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return &env{cfg: cfg, logger: logger, out: os.Stdout}, nil
}

func (e *env) openStore(ctx context.Context) (store.Store, error) {
	db, err := sqlite.OpenSQLite(ctx, e.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.cfg.Database, err)
	}
	if e.cfg.CacheSize == 0 {
		return db, nil
	}
	cached, err := cache.New(db, e.cfg.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cached, nil
}

func (e *env) annotator(ctx context.Context) (*lcsh.Annotator, error) {
	st, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return lcsh.New(lcsh.Options{
		Store:       st,
		ResultLimit: e.cfg.ResultLimit,
		LinkBase:    e.cfg.LinkBase,
		Logger:      e.logger,
	}), nil
}

func (e *env) print(v interface{}) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cmd *ImportCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()

	terms, err := config.LoadTerms(cmd.Terms)
	if err != nil {
		return fmt.Errorf("load terms: %w", err)
	}
	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	imported, skipped := 0, 0
	for _, t := range terms {
		if err := t.Check(); err != nil {
			e.logger.Warn("skipping term", "err", err)
			skipped++
			continue
		}
		if err := st.UpsertTerm(ctx, t); err != nil {
			return fmt.Errorf("upsert %s: %w", t.ID, err)
		}
		imported++
	}
	e.logger.Info("import complete", "imported", imported, "skipped", skipped, "database", e.cfg.Database)
	return nil
}

func (cmd *SearchCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := e.annotator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Search(ctx, lcsh.SearchRequest{
		Text:       cmd.Text,
		AltLabels:  cmd.AltLabels,
		Substrings: cmd.Substrings,
		Regexp:     cmd.Regexp,
		Topmost:    e.cfg.Topmost && !cmd.Flat,
	})
	if err != nil {
		return err
	}
	return e.print(resp)
}

func (cmd *ExpandCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := e.annotator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	nodes, err := a.Expand(ctx, cmd.ID)
	if err != nil {
		return err
	}
	return e.print(nodes)
}

func (cmd *TitlesCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := e.annotator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	refs, err := a.Titles(ctx, cmd.IDs)
	if err != nil {
		return err
	}
	return e.print(refs)
}

func (cmd *TermCmd) Run(g *Globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := e.annotator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	detail, err := a.Term(ctx, cmd.ID)
	if err != nil {
		return err
	}
	return e.print(detail)
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("lcsh"),
		kong.Description("Search Library of Congress Subject Headings and materialize term trees."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
