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

	"github.com/cloudwego/eino-ext/components/model/openai"
	"golang.org/x/time/rate"

	"github.com/bondlens/bondlens/app/analyzer"
	"github.com/bondlens/bondlens/app/api"
	"github.com/bondlens/bondlens/app/cfg"
	"github.com/bondlens/bondlens/app/classifier"
	"github.com/bondlens/bondlens/app/database"
	"github.com/bondlens/bondlens/app/sources"
	"github.com/bondlens/bondlens/app/synthesizer"
	"github.com/bondlens/bondlens/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
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

	slog.Info("Starting BondLens server", "version", cfg.GetVersion())

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded source configurations", "count", configCache.GetConfigCount())

	documentRepo := database.NewDocumentRepository(db)
	assessmentRepo := database.NewAssessmentRepository(db)
	consensusRepo := database.NewConsensusRepository(db)

	dedupWindow := time.Duration(appCfg.DedupWindowHours) * time.Hour
	index := classifier.NewIndex(classifier.ShingleSimilarity, appCfg.SimilarityThreshold, dedupWindow)
	if err := hydrateIndex(index, documentRepo, dedupWindow); err != nil {
		slog.Error("Failed to hydrate duplicate index", "error", err)
		os.Exit(1)
	}
	slog.Info("Duplicate index hydrated", "entries", index.Size())

	documentClassifier := classifier.NewClassifier(index)

	ctx := context.Background()
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: appCfg.LLMBaseURL,
		APIKey:  appCfg.LLMAPIKey,
		Model:   appCfg.LLMModel,
	})
	if err != nil {
		slog.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	limiter := rate.NewLimiter(rate.Limit(float64(appCfg.AnalysisRPM)/60.0), appCfg.AnalysisBurst)
	schema := analyzer.NewSchema(appCfg.ScaleMin, appCfg.ScaleMax, appCfg.ThesisMax, appCfg.ThesisMaxLen)
	weights := analyzer.WeightConfig{ReadCountCeiling: appCfg.ReadCountCeiling, ReadCountBoost: appCfg.ReadCountBoost}
	documentAnalyzer := analyzer.NewAnalyzer(chatModel, limiter, schema, weights,
		time.Duration(appCfg.LLMTimeout)*time.Second)

	consensusSynthesizer := synthesizer.NewSynthesizer(classifier.ShingleSimilarity,
		appCfg.ContestedMargin, appCfg.TieEpsilon, appCfg.OutlierSigma,
		appCfg.ThemeThreshold, appCfg.ThemeTopN)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(consensusSynthesizer, documentRepo, assessmentRepo, consensusRepo)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(configCache, documentClassifier, documentAnalyzer, consensusSynthesizer,
		documentRepo, assessmentRepo, consensusRepo, scheduler, appCfg.WindowHours)
	server := api.NewServer(handler, appCfg.APIAccessKey)

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

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

// hydrateIndex reloads the duplicate index from documents persisted inside
// the dedup window so restarts don't re-admit recently seen commentary.
func hydrateIndex(index *classifier.Index, documentRepo database.DocumentRepository, window time.Duration) error {
	docs, err := documentRepo.GetRecentDocuments(time.Now().UTC().Add(-window))
	if err != nil {
		return err
	}

	for _, doc := range docs {
		index.Insert(classifier.Entry{
			DocumentID:  doc.ID,
			Fingerprint: doc.Fingerprint,
			Text:        doc.RawText,
			PublishedAt: doc.PublishedAt,
		})
	}

	return nil
}
