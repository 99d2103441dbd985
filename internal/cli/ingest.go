package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/core/ingestion_engine"
	"github.com/markdave123-py/bostadsdata/internal/services"
)

func newPoliceCmd(e *env) *cobra.Command {
	var params services.RunParams
	cmd := &cobra.Command{
		Use:   "police",
		Short: "Ingest police events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.ingest(cmd, "police", params)
		},
	}
	cmd.Flags().StringVar(&params.Date, "date", "", "YYYY-MM-DD, latest or all (default all)")
	return cmd
}

func newCategoryCmd(e *env, dataset, short string) *cobra.Command {
	var params services.RunParams
	cmd := &cobra.Command{
		Use:   dataset,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.ingest(cmd, dataset, params)
		},
	}
	cmd.Flags().StringVar(&params.Category, "category", "", "category key (required)")
	return cmd
}

func newSchoolsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "schools",
		Short: "Ingest the school unit register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.ingest(cmd, "schools", services.RunParams{})
		},
	}
}

func newMonetaryCmd(e *env) *cobra.Command {
	var params services.RunParams
	cmd := &cobra.Command{
		Use:   "monetary",
		Short: "Ingest interest and exchange rate observations",
		Long: `Fetches every configured series for an inclusive date range. --dateFrom and
--dateTo must be given together; without them the last 30 days are fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.ingest(cmd, "monetary", params)
		},
	}
	cmd.Flags().StringVar(&params.DateFrom, "dateFrom", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&params.DateTo, "dateTo", "", "last day, YYYY-MM-DD")
	return cmd
}

func newTrafficCmd(e *env) *cobra.Command {
	var params services.RunParams
	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Ingest traffic situations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.ingest(cmd, "traffic", params)
		},
	}
	cmd.Flags().StringVar(&params.Category, "category", "", "message type key (default every type)")
	return cmd
}

func newAllCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Ingest every dataset with default parameters",
		Long: `Runs every dataset concurrently, each one sequentially across its
categories. Traffic is skipped when TRAFIKVERKET_API_KEY is not set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := e.catalog()
			if err != nil {
				return err
			}
			plans, err := services.PlanAll(cat, e.cfg, e.now())
			if err != nil {
				return err
			}
			return e.run(cmd, plans)
		},
	}
}

func (e *env) catalog() (config.Catalog, error) {
	cat, err := config.LoadCatalog(e.cfg.SourcesFile)
	if err != nil {
		return nil, &core.ValidationError{Msg: err.Error()}
	}
	return cat, nil
}

func (e *env) ingest(cmd *cobra.Command, dataset string, params services.RunParams) error {
	cat, err := e.catalog()
	if err != nil {
		return err
	}
	plan, err := services.PlanRun(cat, e.cfg, dataset, params, e.now())
	if err != nil {
		return err
	}
	return e.run(cmd, []services.Plan{plan})
}

// run builds the runtime and executes already validated plans.
func (e *env) run(cmd *cobra.Command, plans []services.Plan) error {
	if err := e.cfg.Validate(); err != nil {
		return &core.ValidationError{Msg: err.Error()}
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := e.factory(ctx, e.cfg)
	if err != nil {
		return failed(err)
	}
	defer rt.Close()

	for _, p := range plans {
		e.log.Info("ingest started", "dataset", p.Dataset, "params", p.Label)
	}
	summaries, err := rt.RunAll(ctx, plans)
	for _, s := range summaries {
		printSummary(cmd, s)
	}
	if err != nil {
		return failed(err)
	}
	e.log.Info("ingest succeeded", "runs", len(summaries))
	return nil
}

func printSummary(cmd *cobra.Command, s ingestion_engine.Summary) {
	cmd.Printf("%-10s %-6s fetched=%d skipped=%d duplicates=%d fresh=%d batches=%d upserted=%d embedded=%d reused=%d (%s)\n",
		s.Dataset, s.State, s.Fetched, s.Skipped, s.Duplicates, s.Fresh, s.Batches, s.Upserted, s.Embedded, s.Reused, s.Duration.Round(time.Millisecond))
}
