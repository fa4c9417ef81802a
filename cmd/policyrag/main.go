// Command policyrag wires the configured adapters into the core retrieval
// and ingestion services and runs the CLI (cobra subcommands and, via "mcp
// serve", the Model Context Protocol server).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/policyrag/policyrag/internal/adapters/driven/config/file"
	"github.com/policyrag/policyrag/internal/adapters/driven/embedding/ollama"
	"github.com/policyrag/policyrag/internal/adapters/driven/parser/pdf"
	"github.com/policyrag/policyrag/internal/adapters/driven/sparseindex/bm25"
	"github.com/policyrag/policyrag/internal/adapters/driven/storage/sqlite"
	"github.com/policyrag/policyrag/internal/adapters/driven/vectorstore/qdrant"
	"github.com/policyrag/policyrag/internal/adapters/driven/vectorstore/redis"
	"github.com/policyrag/policyrag/internal/adapters/driving/cli"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/core/services"
	"github.com/policyrag/policyrag/internal/logger"
	"github.com/policyrag/policyrag/internal/postprocessors"
)

// version is overridden at release build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "policyrag:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := file.NewConfigStore(os.Getenv("POLICYRAG_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dataDir := cfg.GetString("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	dim := cfg.GetInt("EMBEDDING_DIMENSIONS")
	if dim == 0 {
		dim = ollama.DefaultDimensions
	}

	embedder := ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    cfg.GetString("OLLAMA_BASE_URL"),
		Model:      cfg.GetString("OLLAMA_MODEL"),
		Dimensions: dim,
	})

	vectorStore, err := newVectorStore(ctx, cfg, dim)
	if err != nil {
		return fmt.Errorf("connecting vector store: %w", err)
	}
	defer vectorStore.Close()

	sparseIndex := bm25.New()
	defer sparseIndex.Close()

	indexPath := cfg.GetString("SPARSE_INDEX_PATH")
	if indexPath == "" {
		indexPath = dataDir + "/bm25_index.json"
	}
	if err := sparseIndex.Load(ctx, indexPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("sparse index: failed to load %s: %v", indexPath, err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	chunkerProc, err := registry.Build("chunker", nil)
	if err != nil {
		return fmt.Errorf("building chunker: %w", err)
	}
	enricherProc, err := registry.Build("enricher", nil)
	if err != nil {
		return fmt.Errorf("building enricher: %w", err)
	}
	pipeline := postprocessors.NewPipeline(chunkerProc, enricherProc)

	exportDir := cfg.GetString("RATE_TABLE_EXPORT_DIR")
	var parserOpts []pdf.Option
	if exportDir != "" {
		parserOpts = append(parserOpts, pdf.WithExportDir(exportDir))
	}
	parser := pdf.New(parserOpts...)

	ingestion := services.NewIngestion(
		parser, pipeline, embedder, vectorStore, sparseIndex,
		store.ProductStore(), store.DocumentStore(), store.RateTableStore(),
	)

	retrieverCfg := services.DefaultRetrieverConfig()
	for key, field := range map[string]*float64{
		"DEFAULT_MIN_SIMILARITY":   &retrieverCfg.DefaultMinSimilarity,
		"EXCLUSION_MIN_SIMILARITY": &retrieverCfg.ExclusionMinSimilarity,
		"WEIGHT_NUMERIC_SPARSE":    &retrieverCfg.WeightNumericSparse,
		"WEIGHT_NUMERIC_DENSE":     &retrieverCfg.WeightNumericDense,
		"WEIGHT_QUESTION_SPARSE":   &retrieverCfg.WeightQuestionSparse,
		"WEIGHT_QUESTION_DENSE":    &retrieverCfg.WeightQuestionDense,
		"WEIGHT_DEFAULT_SPARSE":    &retrieverCfg.WeightDefaultSparse,
		"WEIGHT_DEFAULT_DENSE":     &retrieverCfg.WeightDefaultDense,
	} {
		if v := cfg.GetFloat(key); v > 0 {
			*field = v
		}
	}
	retriever := services.NewRetriever(vectorStore, sparseIndex, embedder, retrieverCfg)
	tools := services.NewTools(retriever, store.ProductStore(), store.DocumentStore(), store.RateTableStore())

	cli.Configure(tools, ingestion, store.DocumentStore())
	return cli.Execute()
}

// newVectorStore connects the configured Vector Store backend. redis (the
// default) talks to RediSearch over github.com/redis/rueidis; qdrant talks
// to a Qdrant collection over gRPC. Set VECTOR_STORE_BACKEND to choose.
func newVectorStore(ctx context.Context, cfg *file.ConfigStore, dim int) (driven.VectorStore, error) {
	backend := cfg.GetString("VECTOR_STORE_BACKEND")
	if backend == "" {
		backend = "redis"
	}

	switch backend {
	case "redis":
		addrs := cfg.GetStringSlice("REDIS_ADDRS")
		if len(addrs) == 0 {
			addrs = []string{"localhost:6379"}
		}
		return redis.NewStore(ctx, redis.Config{
			Addrs:     addrs,
			Username:  cfg.GetString("REDIS_USERNAME"),
			Password:  cfg.GetString("REDIS_PASSWORD"),
			DB:        cfg.GetInt("REDIS_DB"),
			IndexName: cfg.GetString("REDIS_INDEX_NAME"),
			KeyPrefix: cfg.GetString("REDIS_KEY_PREFIX"),
			Dimension: dim,
		})
	case "qdrant":
		addr := cfg.GetString("QDRANT_ADDR")
		if addr == "" {
			addr = "localhost:6334"
		}
		collection := cfg.GetString("QDRANT_COLLECTION")
		if collection == "" {
			collection = "policyrag_chunks"
		}
		return qdrant.New(ctx, qdrant.Config{
			Addr:           addr,
			CollectionName: collection,
			Dimension:      dim,
		})
	default:
		return nil, errors.New("unknown VECTOR_STORE_BACKEND: " + backend)
	}
}
