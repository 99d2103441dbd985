// Package cli is the ingest command tree. Parameters are validated before the
// runtime is built, so usage errors never touch the network or the database.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/bostadsdata/internal/app"
	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/core/ingestion_engine"
	"github.com/markdave123-py/bostadsdata/internal/logger"
	"github.com/markdave123-py/bostadsdata/internal/services"
)

const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFailure = 2
)

// Runtime is what a validated command runs against.
type Runtime interface {
	RunAll(ctx context.Context, plans []services.Plan) ([]ingestion_engine.Summary, error)
	Search(ctx context.Context, req services.SearchRequest) ([]core.SearchHit, error)
	Close()
}

// Factory builds the runtime. It is only called once parameters are valid.
type Factory func(ctx context.Context, cfg *config.Config) (Runtime, error)

// AppFactory builds the runtime from the full application wiring.
func AppFactory(log *logger.Logger) Factory {
	return func(ctx context.Context, cfg *config.Config) (Runtime, error) {
		a, err := app.NewApp(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return appRuntime{a: a}, nil
	}
}

type appRuntime struct {
	a *app.App
}

func (r appRuntime) RunAll(ctx context.Context, plans []services.Plan) ([]ingestion_engine.Summary, error) {
	return r.a.Ingest.RunAll(ctx, plans)
}

func (r appRuntime) Search(ctx context.Context, req services.SearchRequest) ([]core.SearchHit, error) {
	return r.a.Search.Search(ctx, req)
}

func (r appRuntime) Close() { r.a.Close() }

// runError marks a failure after validation passed.
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

func failed(err error) error {
	if err == nil {
		return nil
	}
	return &runError{err: err}
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var re *runError
	if errors.As(err, &re) {
		return ExitFailure
	}
	return ExitUsage
}

type env struct {
	cfg     *config.Config
	log     *logger.Logger
	factory Factory
	now     func() time.Time
}

// Execute runs the command line in args and returns the exit code.
func Execute(ctx context.Context, cfg *config.Config, log *logger.Logger, factory Factory, args []string) int {
	if log == nil {
		log = logger.Nop()
	}
	e := &env{cfg: cfg, log: log, factory: factory, now: time.Now}
	root := newRootCmd(e)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	code := ExitCode(err)
	switch code {
	case ExitUsage:
		log.Error("invalid invocation", "error", err)
		root.PrintErrln("Error:", err)
		root.PrintErrln("Run 'ingest --help' for usage.")
	case ExitFailure:
		log.Error("ingest failed", "error", err)
	}
	return code
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest Swedish public datasets into the vector store",
		Long: `Fetches records from public Swedish data sources, embeds their text and
upserts them into Postgres/pgvector. Re-running a command is safe: already
stored records are skipped or updated in place.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &core.ValidationError{Msg: err.Error()}
	})

	root.AddCommand(
		newPoliceCmd(e),
		newCategoryCmd(e, "buildings", "Ingest building register entries for a category"),
		newCategoryCmd(e, "statistics", "Ingest regional statistics for a category"),
		newSchoolsCmd(e),
		newMonetaryCmd(e),
		newTrafficCmd(e),
		newAllCmd(e),
		newSearchCmd(e),
	)
	return root
}
