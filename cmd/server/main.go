package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"github.com/user/etiquette-quest/config"
	"github.com/user/etiquette-quest/internal/game"
	"github.com/user/etiquette-quest/internal/metrics"
	"github.com/user/etiquette-quest/internal/server"
	"github.com/user/etiquette-quest/internal/storage"
	"github.com/user/etiquette-quest/internal/whatsapp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "./config/config.json", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envPath, err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logger
	logger := setupLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func setupLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, _ := config.Build()
	return logger
}

func run(cfg config.Config, logger *zap.Logger) error {
	// Load game content
	catalog, err := game.NewDataLoader(cfg.Game.ContentDir).LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load game content: %w", err)
	}
	logger.Info("Loaded game content",
		zap.Int("countries", len(catalog.Countries())),
		zap.Int("scenarios", len(catalog.Scenarios())))

	// Open competence storage
	kv, err := storage.Open(context.Background(), cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	// Initialize game manager
	gameManager := game.NewGameManager(catalog, kv)
	gameManager.SetLogger(logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		gameManager.SetMetrics(m)
	}

	if err := gameManager.LoadPlayers(context.Background()); err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	api := server.NewServer(gameManager, catalog, m, logger)
	api.SetTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second)
	router := api.Router()

	// Initialize WhatsApp bot
	var clientManager *whatsapp.ClientManager
	if cfg.WhatsApp.Enabled {
		clientManager = whatsapp.NewClientManager(gameManager, cfg, logger)
		qrManager := whatsapp.NewQRCodeManager(clientManager, cfg, logger)
		sessionManager := whatsapp.NewSessionManager(cfg.WhatsApp.StoreDir, logger)
		whatsapp.NewHandler(clientManager, qrManager, sessionManager, logger).Mount(router)
		logger.Info("WhatsApp bot enabled", zap.String("store_dir", cfg.WhatsApp.StoreDir))
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server stopped: %w", err)
		}
	}

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	if clientManager != nil {
		clientManager.DisconnectAll()
	}
	if err := gameManager.Flush(ctx); err != nil {
		logger.Error("Failed to flush competence state", zap.Error(err))
	}

	return nil
}
