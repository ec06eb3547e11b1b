package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/voicebox-labs/storyscout/internal/api"
	"github.com/voicebox-labs/storyscout/internal/audit"
	"github.com/voicebox-labs/storyscout/internal/bedrock"
	"github.com/voicebox-labs/storyscout/internal/config"
	"github.com/voicebox-labs/storyscout/internal/conversation"
	"github.com/voicebox-labs/storyscout/internal/events"
	"github.com/voicebox-labs/storyscout/internal/intent"
	"github.com/voicebox-labs/storyscout/internal/session"
	"github.com/voicebox-labs/storyscout/internal/storyblok"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("storyscout starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bedrock client
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		slog.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	llm := bedrock.NewClient(awsCfg, cfg.BedrockModelID, slog.Default())
	slog.Info("bedrock client ready", "model", cfg.BedrockModelID, "region", cfg.AWSRegion)

	// Storyblok client
	if cfg.StoryblokToken == "" || cfg.StoryblokSpaceID == "" {
		slog.Error("STORYBLOK_TOKEN and STORYBLOK_SPACE_ID are required")
		os.Exit(1)
	}
	timeout := time.Duration(cfg.RequestTimeoutSecs) * time.Second
	stories := storyblok.NewClient(cfg.StoryblokAPIBase, cfg.StoryblokSpaceID, cfg.StoryblokToken, timeout, slog.Default())

	// Intent resolution
	resolver := intent.NewResolver(llm, cfg.MaxHistory, cfg.DefaultSearchLimit, slog.Default())
	reconciler := intent.NewReconciler(llm, slog.Default())
	sessions := session.NewStore()

	// Turn event publisher (optional — the service runs without NATS)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — turn events disabled")
	}

	// Turn audit log (optional — the service runs without Postgres)
	var auditStore *audit.Store
	if cfg.DatabaseURL != "" {
		auditStore, err = audit.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer auditStore.Close()
		slog.Info("audit store connected")
	} else {
		slog.Warn("DATABASE_URL not configured — turn audit disabled")
	}

	// Orchestrator — the main pipeline
	orch := conversation.New(resolver, stories, sessions, reconciler, publisher, auditStore, cfg.NLUWorkers, timeout, slog.Default())

	// HTTP API
	srv := api.NewServer(api.Config{
		Port:        cfg.Port,
		CORSOrigins: splitOrigins(cfg.CORSOrigins),
		StaticDir:   cfg.StaticDir,
		Debug:       cfg.Debug,
	}, orch, stories, llm, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if publisher != nil {
		if err := publisher.PublishRegistered(cfg.Port); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("storyscout ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("storyscout stopped")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
