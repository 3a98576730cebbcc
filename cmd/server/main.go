package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nantokaworks/ticket-lottery/internal/env"
	"github.com/nantokaworks/ticket-lottery/internal/history"
	"github.com/nantokaworks/ticket-lottery/internal/ledger"
	"github.com/nantokaworks/ticket-lottery/internal/lottery"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"github.com/nantokaworks/ticket-lottery/internal/store"
	"github.com/nantokaworks/ticket-lottery/internal/webserver"
	"go.uber.org/zap"
)

func main() {
	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting ticket-lottery server")

	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	if err := os.MkdirAll(env.Value.DataDir, 0o755); err != nil {
		logger.Fatal("Failed to ensure data directory", zap.Error(err))
	}

	st, err := store.Open(filepath.Join(env.Value.DataDir, "store"))
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	if _, err := history.SetupDB(filepath.Join(env.Value.DataDir, "history.db")); err != nil {
		logger.Fatal("Failed to setup history database", zap.Error(err))
	}

	ledgerClient := ledger.NewHTTPClient(env.Value.LedgerURL)

	svc := lottery.NewService(st, ledgerClient, env.Value.ServiceAccount)

	if err := initializeFromEnv(svc); err != nil {
		logger.Fatal("Failed to initialize lottery configuration", zap.Error(err))
	}

	if err := svc.Start(); err != nil {
		logger.Fatal("Failed to start lottery service", zap.Error(err))
	}

	port := env.Value.ServerPort
	if err := webserver.StartWebServer(port, svc); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	logger.Info("Server started",
		zap.Int("port", port),
		zap.String("api", fmt.Sprintf("http://localhost:%d/api/lottery/", port)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	webserver.Shutdown()
	svc.Stop()
	if err := st.Close(); err != nil {
		logger.Warn("Failed to close store", zap.Error(err))
	}
	history.Close()

	logger.Info("Shutdown complete")
}

// initializeFromEnv seeds the lottery configuration from TICKET_PRICE and
// ROUND_DURATION_SECONDS on first boot. An already-configured store wins over
// the environment, but a malformed first-boot configuration aborts startup.
func initializeFromEnv(svc *lottery.Service) error {
	if env.Value.TicketPrice == 0 && env.Value.RoundDuration == 0 {
		return nil
	}

	err := svc.Initialize(env.Value.TicketPrice, env.Value.RoundDuration)
	switch {
	case err == nil:
		logger.Info("Lottery configuration initialized from environment",
			zap.Uint64("ticket_price", env.Value.TicketPrice),
			zap.Duration("round_duration", env.Value.RoundDuration))
		return nil
	case errors.Is(err, lottery.ErrAlreadyInitialized):
		logger.Info("Lottery configuration already present, keeping stored values")
		return nil
	default:
		return err
	}
}
