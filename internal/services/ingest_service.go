package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/connectors"
	"github.com/markdave123-py/bostadsdata/internal/connectors/buildings"
	"github.com/markdave123-py/bostadsdata/internal/connectors/monetary"
	"github.com/markdave123-py/bostadsdata/internal/connectors/police"
	"github.com/markdave123-py/bostadsdata/internal/connectors/schools"
	"github.com/markdave123-py/bostadsdata/internal/connectors/statistics"
	"github.com/markdave123-py/bostadsdata/internal/connectors/traffic"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/core/ingestion_engine"
	"github.com/markdave123-py/bostadsdata/internal/logger"
	"github.com/markdave123-py/bostadsdata/internal/models"
)

// Datasets lists every dataset in the order `ingest all` reports them.
var Datasets = []string{police.Name, buildings.Name, statistics.Name, schools.Name, monetary.Name, traffic.Name}

var tables = map[string]*core.Table{
	police.Name:     police.Table,
	buildings.Name:  buildings.Table,
	statistics.Name: statistics.Table,
	schools.Name:    schools.Table,
	monetary.Name:   monetary.Table,
	traffic.Name:    traffic.Table,
}

// TableFor returns the table a dataset is stored in.
func TableFor(dataset string) (*core.Table, bool) {
	t, ok := tables[dataset]
	return t, ok
}

// RunParams are the raw CLI flag values.
type RunParams struct {
	Category string
	Date     string
	DateFrom string
	DateTo   string
}

// Env is everything a validated plan needs to run.
type Env struct {
	Deps        ingestion_engine.Deps
	Archive     core.ObjectClient
	Extractor   core.TextExtractor
	HTTPTimeout time.Duration
	Log         *logger.Logger
}

func (e Env) client(dataset string, opts ...connectors.Option) *connectors.Client {
	opts = append(opts, connectors.WithLogger(e.Log))
	if e.Archive != nil {
		opts = append(opts, connectors.WithArchive(e.Archive))
	}
	return connectors.NewClient(dataset, e.HTTPTimeout, opts...)
}

// Plan is a dataset run whose parameters have been validated. Building one
// performs no I/O.
type Plan struct {
	Dataset string
	Label   string
	run     func(ctx context.Context, env Env) (ingestion_engine.Summary, error)
}

func (p Plan) Run(ctx context.Context, env Env) (ingestion_engine.Summary, error) {
	return p.run(ctx, env)
}

// PlanRun validates params for dataset and binds them. Errors are
// *core.ValidationError.
func PlanRun(cat config.Catalog, cfg *config.Config, dataset string, params RunParams, now time.Time) (Plan, error) {
	src, err := cat.Source(dataset)
	if err != nil {
		return Plan{}, &core.ValidationError{Msg: err.Error()}
	}

	switch dataset {
	case police.Name:
		p, err := police.ParseParams(params.Date)
		if err != nil {
			return Plan{}, err
		}
		label := p.Mode
		if !p.Day.IsZero() {
			label = p.Day.Format(time.DateOnly)
		}
		return plan(dataset, label, func(env Env) core.Dataset[police.Raw, models.PoliceEvent] {
			return police.New(src, env.client(dataset), p)
		}), nil

	case buildings.Name:
		p, err := buildings.ParseParams(src, params.Category)
		if err != nil {
			return Plan{}, err
		}
		return plan(dataset, p.Key, func(env Env) core.Dataset[buildings.Raw, models.BuildingEntry] {
			return buildings.New(src, env.client(dataset), env.Extractor, p)
		}), nil

	case statistics.Name:
		p, err := statistics.ParseParams(src, params.Category)
		if err != nil {
			return Plan{}, err
		}
		return plan(dataset, p.Key, func(env Env) core.Dataset[statistics.Raw, models.StatisticValue] {
			return statistics.New(src, env.client(dataset), p)
		}), nil

	case schools.Name:
		return plan(dataset, "", func(env Env) core.Dataset[schools.Raw, models.SchoolUnit] {
			return schools.New(src, env.client(dataset))
		}), nil

	case monetary.Name:
		p, err := monetary.ParseParams(params.DateFrom, params.DateTo, now)
		if err != nil {
			return Plan{}, err
		}
		label := p.From.Format(time.DateOnly) + ".." + p.To.Format(time.DateOnly)
		return plan(dataset, label, func(env Env) core.Dataset[monetary.Raw, models.MonetaryObservation] {
			return monetary.New(src, env.client(dataset, connectors.WithCallDelay(src.CallDelay())), p)
		}), nil

	case traffic.Name:
		p, err := traffic.ParseParams(src, params.Category, cfg.TrafikverketAPIKey)
		if err != nil {
			return Plan{}, err
		}
		return plan(dataset, p.MessageType, func(env Env) core.Dataset[traffic.Raw, models.TrafficSituation] {
			return traffic.New(src, env.client(dataset), p)
		}), nil
	}
	return Plan{}, &core.ValidationError{Msg: fmt.Sprintf("unknown dataset %q", dataset)}
}

func plan[Raw any, R core.Record](dataset, label string, build func(Env) core.Dataset[Raw, R]) Plan {
	return Plan{
		Dataset: dataset,
		Label:   label,
		run: func(ctx context.Context, env Env) (ingestion_engine.Summary, error) {
			return ingestion_engine.Run(ctx, build(env), env.Deps)
		},
	}
}

// PlanAll plans every dataset with default parameters. Category datasets run
// once per configured category. Traffic is left out when no API key is set.
func PlanAll(cat config.Catalog, cfg *config.Config, now time.Time) ([]Plan, error) {
	var plans []Plan
	for _, name := range Datasets {
		src, err := cat.Source(name)
		if err != nil {
			return nil, &core.ValidationError{Msg: err.Error()}
		}

		var variants []RunParams
		switch name {
		case buildings.Name, statistics.Name:
			for _, key := range src.CategoryKeys() {
				variants = append(variants, RunParams{Category: key})
			}
		case traffic.Name:
			if cfg.TrafikverketAPIKey == "" {
				continue
			}
			variants = []RunParams{{}}
		default:
			variants = []RunParams{{}}
		}

		for _, v := range variants {
			p, err := PlanRun(cat, cfg, name, v, now)
			if err != nil {
				return nil, err
			}
			plans = append(plans, p)
		}
	}
	return plans, nil
}

type IngestService struct {
	env Env
}

func NewIngestService(env Env) *IngestService {
	if env.Log == nil {
		env.Log = logger.Nop()
	}
	return &IngestService{env: env}
}

func (s *IngestService) Run(ctx context.Context, p Plan) (ingestion_engine.Summary, error) {
	return p.Run(ctx, s.env)
}

// RunAll runs plans concurrently across datasets and sequentially within a
// dataset, since datasets write disjoint tables. A failing dataset does not
// stop the others; the first error is returned.
func (s *IngestService) RunAll(ctx context.Context, plans []Plan) ([]ingestion_engine.Summary, error) {
	byDataset := map[string][]Plan{}
	var order []string
	for _, p := range plans {
		if _, seen := byDataset[p.Dataset]; !seen {
			order = append(order, p.Dataset)
		}
		byDataset[p.Dataset] = append(byDataset[p.Dataset], p)
	}

	var (
		mu        sync.Mutex
		summaries []ingestion_engine.Summary
		g         errgroup.Group
	)
	for _, name := range order {
		group := byDataset[name]
		g.Go(func() error {
			for _, p := range group {
				sum, err := s.Run(ctx, p)
				mu.Lock()
				summaries = append(summaries, sum)
				mu.Unlock()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	rank := make(map[string]int, len(Datasets))
	for i, d := range Datasets {
		rank[d] = i
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return rank[summaries[i].Dataset] < rank[summaries[j].Dataset]
	})
	return summaries, err
}
