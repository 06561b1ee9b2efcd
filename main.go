package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"
	"tubedigest/internal/app"
	"tubedigest/internal/config"
	"tubedigest/internal/logger"
)

func main() {
	// Structured JSON logs with the correlation id injected from context.
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	a, err := app.New(ctx, cfg, deps)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	// Pipeline worker: consume per-video tasks from NSQ.
	if cfg.EnablePipelineWorker {
		consumer, err := nsq.NewConsumer(config.TopicVideoProcess, "pipeline", nsq.NewConfig())
		if err != nil {
			slog.Error("failed to create NSQ consumer", "error", err)
			os.Exit(1)
		}
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return a.VideoConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
			os.Exit(1)
		}
		defer consumer.Stop()
		slog.Info("pipeline worker connected", "topic", config.TopicVideoProcess)
	}

	if !cfg.EnableAPI {
		// Worker-only deployment: block until terminated.
		<-ctx.Done()
		slog.Info("shutting down")
		return
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
