// Command ingest runs the offline indexing pipeline once and exits.
// Rerunning it overwrites the existing passages and manifest, so it is
// the way to pick up document edits or an embedding model change.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/anoguera/cvassist/internal/chunk"
	"github.com/anoguera/cvassist/internal/config"
	dbRedis "github.com/anoguera/cvassist/internal/db/redis"
	"github.com/anoguera/cvassist/internal/extract"
	logpkg "github.com/anoguera/cvassist/internal/logger"
	passagerepo "github.com/anoguera/cvassist/internal/repository/passage"
	openaiEmb "github.com/anoguera/cvassist/internal/transport/openai"
	"github.com/anoguera/cvassist/internal/usecase/ingest"
	"github.com/anoguera/cvassist/internal/version"
)

func main() {
	_ = godotenv.Load()

	docFlag := flag.String("doc", "", "document path (overrides config ingest.document_path)")
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	docPath := cfg.Ingest.DocumentPath
	if *docFlag != "" {
		docPath = *docFlag
	}
	if docPath == "" {
		logger.Fatal("No document to ingest: set ingest.document_path or pass -doc")
	}

	logger.Info("Starting ingestion",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.String("document", docPath),
		zap.Int("max_chars", cfg.Ingest.MaxChars),
		zap.Int("overlap", cfg.Ingest.Overlap),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}

	chunker, err := chunk.New(cfg.Ingest.MaxChars, cfg.Ingest.Overlap)
	if err != nil {
		logger.Fatal("Invalid chunking parameters", zap.Error(err))
	}

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	repo := passagerepo.New(store, cfg.Index.KeyPrefix, cfg.Index.Name)

	svc := ingest.New(
		ingest.ExtractorFunc(extract.Extract),
		chunker, embedder, repo, logger,
	).WithBatchSize(cfg.Ingest.BatchSize)

	report, err := svc.Run(ctx, docPath)
	if err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err))
	}

	logger.Info("Ingestion finished",
		zap.Int("passages", report.Passages),
		zap.Int("batches", report.Batches),
		zap.Int("tokens", report.TotalTokens),
		zap.String("model", report.Model),
		zap.Int("dimensions", report.Dimensions),
	)
}
