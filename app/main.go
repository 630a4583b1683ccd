package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaybz/topic-radar/app/api"
	"github.com/shaybz/topic-radar/app/cfg"
	"github.com/shaybz/topic-radar/app/collector"
	"github.com/shaybz/topic-radar/app/database"
	"github.com/shaybz/topic-radar/app/digest"
	"github.com/shaybz/topic-radar/app/notify"
	"github.com/shaybz/topic-radar/app/sources"
	"github.com/shaybz/topic-radar/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Topic Radar server", "version", appCfg.Version)

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database")

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "version", version, "dirty", dirty)

	topicRepo := database.NewTopicRepository(db)
	postRepo := database.NewPostRepository(db)
	userRepo := database.NewUserRepository(db)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	limiter := sources.NewRateLimiter(
		2*time.Second, 2,
		time.Duration(appCfg.RateAcquireTimeout)*time.Second)

	sourcesFile := appCfg.SourcesFile
	if _, err := os.Stat(sourcesFile); os.IsNotExist(err) {
		slog.Debug("Sources file not found, using built-in defaults", "file", sourcesFile)
		sourcesFile = ""
	}

	registry, err := sources.NewRegistry(sourcesFile, httpClient, appCfg.UserAgent, limiter)
	if err != nil {
		slog.Error("Failed to build source registry", "error", err)
		os.Exit(1)
	}
	slog.Info("Source registry ready", "sources", registry.GetSourceCount(), "enabled", registry.EnabledKinds())

	gate := collector.NewCooldownGate(time.Duration(appCfg.CooldownMinutes) * time.Minute)
	orchestrator := collector.NewOrchestrator(registry, topicRepo, postRepo, gate,
		time.Duration(appCfg.CollectionDeadline)*time.Second, appCfg.TopicConcurrency)

	eligibility := digest.NewEligibility(time.Duration(appCfg.DigestGraceMin) * time.Minute)
	summarizer := notify.NewSummarizer(httpClient, appCfg.SummarizerURL, appCfg.SummarizerModel, appCfg.SummarizerAPIKey)
	sender := notify.NewBrevoSender(httpClient, appCfg.BrevoAPIKey, appCfg.BrevoFromEmail, appCfg.BrevoFromName)
	assembler := digest.NewAssembler(userRepo, topicRepo, postRepo, eligibility, summarizer, sender)

	contentExtractor := collector.NewContentExtractor()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(orchestrator, assembler, gate, topicRepo, postRepo, httpClient, contentExtractor)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(topicRepo, postRepo, userRepo, registry, orchestrator, assembler, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Topic Radar server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Topic Radar server shutdown complete")
}
