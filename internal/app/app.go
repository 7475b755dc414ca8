package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/nsqio/go-nsq"
	"golang.org/x/sync/errgroup"

	"ragindexer/features/job"
	"ragindexer/features/knowledge"
	"ragindexer/features/stats"
	"ragindexer/features/tool"
	"ragindexer/internal/adapter/gemini"
	"ragindexer/internal/config"
	"ragindexer/internal/embedding"
	"ragindexer/internal/extract"
	"ragindexer/internal/middleware"
	"ragindexer/internal/text"
	"ragindexer/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Options overrides adapters that would otherwise be built from config.
type Options struct {
	Embedder embedding.Embedder
	Objects  extract.ObjectFetcher
}

type App struct {
	Handler       http.Handler
	Knowledge     *knowledge.Service
	Tools         *tool.CachedRegistry
	Jobs          *job.Service
	IndexConsumer *worker.IndexConsumer
	Scheduler     *job.Scheduler

	cfg     *config.Config
	closers []func() error
}

func New(
	cfg *config.Config,
	db *sql.DB,
	chunks knowledge.Repository,
	taskPub TaskPublisher,
	logger *slog.Logger,
	opts *Options,
) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	ctx := context.Background()
	p := cfg.Pipeline
	a := &App{cfg: cfg}

	// Feature: Tool
	toolRepo := tool.NewPostgresRepo(db)
	tools, err := tool.NewCachedRegistry(toolRepo, cfg.ToolCacheSize)
	if err != nil {
		return nil, fmt.Errorf("tool cache: %w", err)
	}
	a.Tools = tools

	// Feature: Job
	jobRepo := job.NewPostgresRepo(db)
	a.Jobs = job.NewService(jobRepo, taskPub, logger)

	// Adapters
	embedder := opts.Embedder
	if embedder == nil {
		if err := cfg.RequireEmbedder(); err != nil {
			logger.Warn("embedding backend not configured, indexing will fail at the embedding stage", "error", err)
			embedder = unavailableEmbedder{err: err}
		} else {
			g, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, p.EmbeddingModel)
			if err != nil {
				return nil, fmt.Errorf("gemini embedder: %w", err)
			}
			a.closers = append(a.closers, g.Close)
			embedder = g
		}
	}

	var objects extract.ObjectFetcher
	if opts.Objects != nil {
		objects = opts.Objects
	} else {
		s3f, err := extract.NewS3Fetcher(ctx, extract.S3Options{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			logger.Warn("s3 sources disabled", "error", err)
		} else {
			objects = s3f
		}
	}

	// Feature: Knowledge
	chunker := text.NewChunker(text.ChunkOptions{
		ChunkSize:    p.ChunkSize,
		ChunkOverlap: p.ChunkOverlap,
		MinChunkSize: p.MinChunkSize,
		MaxChunkSize: p.MaxChunkSize,
	}, text.NewTokenizer(p.Tokenizer))
	scorer := text.NewQualityScorer(text.QualityRules(p.Quality))
	generator := embedding.NewGenerator(embedder, scorer, embedding.Options{
		RateLimitDelay: p.RateLimitDelay,
		Timeout:        p.EmbedTimeout,
		BatchSize:      p.BatchSize,
	})

	a.Knowledge = knowledge.NewService(tools, extract.New(p.URLTimeout, objects), chunker, generator, chunks, knowledge.ServiceOptions{
		ProcessingVersion: p.ProcessingVersion,
		TopChunks:         p.TopChunks,
		BatchSize:         p.BatchSize,
	})

	// Worker
	var queue knowledge.Publisher
	if cfg.EnableQueue && taskPub != nil {
		queue = taskPub
	}
	a.IndexConsumer = worker.NewIndexConsumer(a.Knowledge, jobRepo, queue)

	if cfg.RetrySchedule != "" {
		a.Scheduler, err = job.NewScheduler(a.Jobs, cfg.RetrySchedule, p.MaxRetries)
		if err != nil {
			return nil, err
		}
	}

	// Routes
	knowledgeHandler := knowledge.NewHandler(a.Knowledge, queue)
	toolHandler := tool.NewHandler(tools)
	jobHandler := job.NewHandler(a.Jobs)
	statsHandler := stats.NewHandler(tools, jobRepo, chunks, stats.Retrieval{
		SimilarityThreshold: p.SimilarityThreshold,
		MaxMatches:          p.MaxMatches,
		EmbeddingModel:      p.EmbeddingModel,
		ProcessingVersion:   p.ProcessingVersion,
	})

	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Correlation-ID"},
	}))

	r.Route("/tools", func(r chi.Router) {
		r.Get("/", toolHandler.List)
		r.Post("/", toolHandler.Create)
		r.Post("/{toolID}/documents", knowledgeHandler.Index)
		r.Get("/{toolID}/knowledge", knowledgeHandler.Stats)
		r.Delete("/{toolID}/knowledge", knowledgeHandler.Cleanup)
	})

	r.Get("/jobs/failed", jobHandler.List)
	r.Post("/jobs/{id}/retry", jobHandler.Retry)
	r.Get("/stats", statsHandler.GetStats)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	a.Handler = r
	return a, nil
}

// Run serves the API, consumes queued index requests and runs the retry
// schedule, as enabled by config, until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.EnableAPI {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
			Handler:           a.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			slog.Info("server starting", "port", a.cfg.ServerPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			slog.Info("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.EnableQueue {
		consumer, err := a.newConsumer()
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			consumer.Stop()
			<-consumer.StopChan
			slog.Info("index consumer stopped")
			return nil
		})
	}

	if a.Scheduler != nil {
		a.Scheduler.Start()
		slog.Info("failed job retry schedule started", "spec", a.cfg.RetrySchedule)
		g.Go(func() error {
			<-gctx.Done()
			<-a.Scheduler.Stop().Done()
			return nil
		})
	}

	return g.Wait()
}

func (a *App) newConsumer() (*nsq.Consumer, error) {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = 1
	if a.cfg.Pipeline.MaxRetries > 0 {
		nsqCfg.MaxAttempts = uint16(a.cfg.Pipeline.MaxRetries)
	}

	consumer, err := nsq.NewConsumer(config.TopicIndexRequest, config.ChannelIndexer, nsqCfg)
	if err != nil {
		return nil, fmt.Errorf("nsq consumer error: %w", err)
	}
	consumer.SetLogger(nsqLogger{}, nsq.LogLevelWarning)
	consumer.AddHandler(a.IndexConsumer)

	if err := consumer.ConnectToNSQLookupd(a.cfg.NSQLookupd); err != nil {
		return nil, fmt.Errorf("failed to connect to NSQLookupd: %w", err)
	}
	slog.Info("NSQ index consumer connected", "topic", config.TopicIndexRequest, "channel", config.ChannelIndexer)
	return consumer, nil
}

// Close releases adapter clients created by New.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("failed to close adapter", "error", err)
		}
	}
}

type unavailableEmbedder struct {
	err error
}

func (e unavailableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, e.err
}

// nsqLogger routes go-nsq's internal logging through slog.
type nsqLogger struct{}

func (nsqLogger) Output(calldepth int, s string) error {
	slog.Warn("nsq", "message", s)
	return nil
}
