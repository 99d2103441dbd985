package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/core"
	db "github.com/markdave123-py/bostadsdata/internal/core/database"
	"github.com/markdave123-py/bostadsdata/internal/core/ingestion_engine"
	"github.com/markdave123-py/bostadsdata/internal/core/llm"
	objectclient "github.com/markdave123-py/bostadsdata/internal/core/object-client"
	"github.com/markdave123-py/bostadsdata/internal/logger"
	"github.com/markdave123-py/bostadsdata/internal/services"
)

// App holds the clients and services shared by the ingest CLI and the API.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	DBClient     *db.DatabaseClient
	ObjectClient core.ObjectClient
	Embedder     *llm.Generator
	provider     core.EmbeddingProvider

	Ingest *services.IngestService
	Search *services.SearchService
}

// NewApp connects to the store, the embedding provider and, when a bucket is
// configured, the raw archive.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Config: cfg, Log: log}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.DBClient = dbClient
	log.Info("database initialized and ready", "embed_dim", cfg.EmbedDim)

	s3Client, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("object client: %w", err)
	}
	if s3Client != nil {
		a.ObjectClient = s3Client
		log.Info("raw archive enabled", "bucket", cfg.RawArchiveBucket)
	}

	provider, err := llm.NewEmbeddingProvider(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}
	a.provider = provider
	a.Embedder = llm.NewGenerator(provider, cfg.EmbedDim, cfg.EmbedTimeout)
	log.Info("embedding provider ready", "provider", cfg.AIChatAgent)

	useReadability := false
	upserter := ingestion_engine.NewBatchUpserter(dbClient, a.Embedder, cfg.BatchSize, log)

	a.Ingest = services.NewIngestService(services.Env{
		Deps: ingestion_engine.Deps{
			Store:    dbClient,
			Upserter: upserter,
			Log:      log,
		},
		Archive:     a.ObjectClient,
		Extractor:   ingestion_engine.NewDocconvExtractor(useReadability),
		HTTPTimeout: cfg.HTTPTimeout,
		Log:         log,
	})
	a.Search = services.NewSearchService(dbClient, a.Embedder)
	return a, nil
}

func (a *App) Close() {
	if c, ok := a.provider.(io.Closer); ok {
		_ = c.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
