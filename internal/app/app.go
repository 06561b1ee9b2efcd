package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tubedigest/features/digest"
	"tubedigest/features/idea"
	"tubedigest/features/stats"
	"tubedigest/features/video"
	"tubedigest/internal/adapter/gemini"
	"tubedigest/internal/adapter/mailgun"
	wstore "tubedigest/internal/adapter/weaviate"
	"tubedigest/internal/adapter/youtube"
	"tubedigest/internal/config"
	"tubedigest/internal/dedup"
	"tubedigest/internal/extract"
	"tubedigest/internal/middleware"
	"tubedigest/internal/pipeline"
	"tubedigest/internal/similarity"
	"tubedigest/internal/text"
	"tubedigest/internal/worker"
)

type App struct {
	Handler         http.Handler
	PipelineService *pipeline.Service
	VideoConsumer   *worker.VideoConsumer
	Port            int
}

func New(ctx context.Context, cfg *config.Config, deps *Dependencies) (*App, error) {
	// Repositories
	videoRepo := video.NewPostgresRepo(deps.DB)
	ideaRepo := idea.NewPostgresRepo(deps.DB)

	// Adapters
	ytClient, err := youtube.NewClient(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		return nil, fmt.Errorf("youtube client error: %w", err)
	}

	extractor, err := gemini.NewExtractor(ctx, cfg.GeminiAPIKey, cfg.ExtractionModel, cfg.IdeasPerVideo)
	if err != nil {
		return nil, fmt.Errorf("gemini extractor error: %w", err)
	}
	retrier := extract.NewRetrier(extractor, cfg.MaxRetryAttempts, time.Second)

	chunker, err := text.NewChunker(cfg.MaxTokens, cfg.OverlapTokens)
	if err != nil {
		return nil, err
	}

	// Dedup backend selection. The lexical backend needs nothing beyond the
	// relational store; the vector backend also embeds and indexes ideas.
	recentWindow := time.Duration(cfg.RecentWindowDays) * 24 * time.Hour
	var (
		scorer      similarity.Scorer
		cross       dedup.CrossMatcher
		indexer     pipeline.IdeaIndexer
		vectorStore stats.VectorStore
	)
	switch cfg.DedupBackend {
	case "vector":
		embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder error: %w", err)
		}
		store := wstore.NewStore(deps.WeaviateClient, embedder)
		scorer = similarity.NewEmbedding(embedder)
		cross = dedup.NewVectorMatcher(embedder, store, recentWindow, cfg.DedupThresholdCross)
		indexer = store
		vectorStore = store
	default:
		scorer = similarity.NewLexical()
		cross = dedup.NewRecentWindowMatcher(ideaRepo, scorer, recentWindow, cfg.DedupThresholdCross)
	}
	deduper := dedup.New(scorer, cross, cfg.DedupThresholdIntra, cfg.IdeasPerVideo)

	// Pipeline
	pipelineService := pipeline.NewService(videoRepo, ytClient, chunker, retrier, deduper, ideaRepo, indexer,
		pipeline.Options{
			ReprocessThreshold: time.Duration(cfg.ReprocessThresholdDays) * 24 * time.Hour,
			Concurrency:        cfg.PipelineConcurrency,
		})

	// Feature: Video
	videoService := video.NewService(videoRepo, ytClient, deps.NSQProducer)
	videoHandler := video.NewHandler(videoService, cfg.PlaylistIDs)

	// Feature: Idea
	ideaHandler := idea.NewHandler(ideaRepo)

	// Feature: Digest
	mailer := mailgun.NewClient(cfg.MailgunDomain, cfg.MailgunAPIKey)
	digestService := digest.NewService(ideaRepo, videoRepo, mailer, cfg.DigestFrom, cfg.DigestRecipients, cfg.RecentWindowDays)
	digestHandler := digest.NewHandler(digestService)

	// Feature: Stats
	statsHandler := stats.NewHandler(videoRepo, ideaRepo, vectorStore, cfg.RecentWindowDays)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /playlists/sync", middleware.CorrelationID(enableCORS(videoHandler.Sync)))
	mux.Handle("GET /videos", middleware.CorrelationID(enableCORS(videoHandler.List)))

	mux.Handle("GET /ideas", middleware.CorrelationID(enableCORS(ideaHandler.List)))
	mux.Handle("GET /videos/{id}/ideas", middleware.CorrelationID(enableCORS(ideaHandler.ListByVideo)))

	mux.Handle("POST /pipeline/run", middleware.CorrelationID(enableCORS(runPipeline(pipelineService))))

	mux.Handle("POST /digest/send", middleware.CorrelationID(enableCORS(digestHandler.Send)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:         mux,
		PipelineService: pipelineService,
		VideoConsumer:   worker.NewVideoConsumer(pipelineService),
		Port:            cfg.ServerPort,
	}, nil
}

// runPipeline kicks off a full run over the current backlog and reports the
// outcome. Per-video failures are already recorded on their records, so the
// response is 200 even when some videos failed.
func runPipeline(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		report, err := svc.Run(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "pipeline run failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			resp := map[string]interface{}{
				"error":         map[string]string{"code": "INTERNAL_ERROR", "message": "Internal Server Error"},
				"correlationId": middleware.GetCorrelationID(ctx),
			}
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": report}); err != nil {
			slog.ErrorContext(ctx, "failed to encode response", "error", err)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
