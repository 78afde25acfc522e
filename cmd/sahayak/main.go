package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lpernett/godotenv"
	"github.com/swasthya/sahayak/internal/api"
	"github.com/swasthya/sahayak/internal/classifier"
	"github.com/swasthya/sahayak/internal/config"
	"github.com/swasthya/sahayak/internal/escalation"
	"github.com/swasthya/sahayak/internal/hospitals"
	"github.com/swasthya/sahayak/internal/storage/sqlite"
	"github.com/swasthya/sahayak/internal/triage"
	"github.com/swasthya/sahayak/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to TOML config file")
	flag.Parse()

	// Optional .env for local development; environment wins over the file
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting sahayak",
		logger.String("config", *configPath),
		logger.Int("port", cfg.Server.Port),
		logger.Float64("confidence_threshold", cfg.Triage.ConfidenceThreshold))

	db, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		log.Error("Failed to open database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	dispatchStorage, err := sqlite.NewDispatchStorage(db, log)
	if err != nil {
		log.Error("Failed to initialize dispatch storage", logger.Error(err))
		os.Exit(1)
	}

	historyStorage, err := sqlite.NewHistoryStorage(db, log)
	if err != nil {
		log.Error("Failed to initialize history storage", logger.Error(err))
		os.Exit(1)
	}

	classifierClient, err := classifier.NewOpenAIClient(cfg.Classifier, log)
	if err != nil {
		log.Error("Failed to create classifier client", logger.Error(err))
		os.Exit(1)
	}

	locator := hospitals.NewStaticProvider(log)
	sessions := escalation.NewManager(dispatchStorage, log)

	triageService := triage.NewService(
		classifierClient,
		locator,
		sessions,
		historyStorage,
		cfg.Triage.ConfidenceThreshold,
		log,
	)

	router := api.NewRouter(triageService, sessions, historyStorage, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", logger.Error(err))
	}

	log.Info("Server stopped")
}
