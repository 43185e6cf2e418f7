package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lexigraph-backend/internal/adapters"
	"github.com/yungbote/lexigraph-backend/internal/db"
	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/engine"
	"github.com/yungbote/lexigraph-backend/internal/jobs/worker"
	"github.com/yungbote/lexigraph-backend/internal/observability"
	"github.com/yungbote/lexigraph-backend/internal/pkg/envutil"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
	"github.com/yungbote/lexigraph-backend/internal/platform/embedding"
	"github.com/yungbote/lexigraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/lexigraph-backend/internal/platform/reviewq"
)

func main() {
	wiktionaryPath := flag.String("wiktionary", "", "path to a flattened wiktionary JSONL dump")
	clldPath := flag.String("clld", "", "path to a CLDF-style JSONL export")
	clldDataset := flag.String("clld-dataset", "clld", "dataset name for CLDF records")
	corpusPath := flag.String("corpus", "", "path to a historical corpus frequency JSONL export")
	corpusName := flag.String("corpus-name", "corpus", "corpus name for frequency provenance")
	flag.Parse()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: envutil.GetEnv("OTEL_SERVICE_NAME", "lexigraph-engine", log),
		Environment: envutil.GetEnv("DEPLOY_ENV", "development", log),
		Version:     envutil.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if shutdownOtel != nil {
		defer func() { _ = shutdownOtel(context.Background()) }()
	}

	// Env
	log.Info("Loading engine configuration from main...")
	cfg := engine.ConfigFromEnv(log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}

	// Neo4j projection (optional)
	graphDB, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, projection disabled", "error", err)
	}
	if graphDB != nil {
		defer graphDB.Close(context.Background())
	}

	// Review queue
	queue, err := reviewq.NewRedisQueue(log)
	if err != nil {
		log.Warn("Redis review queue unavailable, falling back to table-only review items", "error", err)
		queue = reviewq.NewNoopQueue()
	}

	// Embedding comparator
	compare, err := embedding.NewHTTPComparator(log)
	if err != nil {
		log.Warn("Embedding service unavailable, semantic scores fall back to neutral", "error", err)
		compare = embedding.Fixed(0.5)
	}

	// Engine
	log.Info("Setting up engine from main...")
	eng, err := engine.New(log, cfg, postgresService.DB(), graphDB, queue, compare)
	if err != nil {
		log.Error("Engine init failed", "error", err)
		os.Exit(1)
	}

	// Sources
	type input struct {
		source adapters.Source
		path   string
	}
	var inputs []input
	if *wiktionaryPath != "" {
		inputs = append(inputs, input{adapters.NewWiktionarySource(log), *wiktionaryPath})
	}
	if *clldPath != "" {
		inputs = append(inputs, input{adapters.NewCLLDSource(log, *clldDataset), *clldPath})
	}
	if *corpusPath != "" {
		inputs = append(inputs, input{adapters.NewCorpusSource(log, *corpusName), *corpusPath})
	}
	if len(inputs) == 0 {
		log.Error("No input files given; pass -wiktionary, -clld or -corpus")
		os.Exit(1)
	}

	observations := make(chan *types.RawObservation, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(observations)
		for _, in := range inputs {
			f, err := os.Open(in.path)
			if err != nil {
				return fmt.Errorf("open %s: %w", in.path, err)
			}
			log.Info("Streaming source", "source", in.source.Name(), "path", in.path)
			err = in.source.Stream(gctx, f, observations)
			f.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})

	pool := worker.NewPool(eng, log, cfg.WorkerCount)
	stats, runErr := pool.Run(gctx, observations)
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	log.Info("Engine run finished",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"discarded", stats.Discarded,
		"failed", stats.Failed,
	)
	if runErr != nil && runErr != context.Canceled {
		log.Error("Engine run ended with error", "error", runErr)
		os.Exit(1)
	}
}
