package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vaultScope/internal/aggregate"
	"vaultScope/internal/api"
	"vaultScope/internal/config"
	"vaultScope/internal/listener"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "vaultscope",
		Short:        "ERC-4626 vault event listener and query service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen for vault events and serve wallet queries",
		RunE:  runListen,
	}

	listenCmd.Flags().String("ws-url", "", "node websocket endpoint")
	listenCmd.Flags().String("contract", "", "vault contract address")
	listenCmd.Flags().String("pg-dsn", "", "Postgres DSN (omit for in-memory store)")
	listenCmd.Flags().String("http-addr", ":3000", "HTTP listen address")
	listenCmd.Flags().Int("queue-size", 1024, "ingest queue capacity")
	listenCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(listenCmd)
	root.AddCommand(newApproveCmd())
	root.AddCommand(newDepositCmd())
	root.AddCommand(newWithdrawCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadListen(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pgStore
	} else {
		logger.Warn("no pg-dsn configured, using in-memory store")
		store = storage.NewMemoryStore()
	}

	lst := listener.New(listener.Config{
		Endpoint:  cfg.WSURL,
		Contract:  cfg.Contract,
		QueueSize: cfg.QueueSize,
	}, store, logger)

	if err := lst.Start(ctx); err != nil {
		return err
	}

	service := aggregate.NewService(store, logger)
	server := api.NewServer(cfg.HTTPAddr, service, logger)
	server.Start()

	logger.Info("vaultscope running",
		zap.String("ws_url", cfg.WSURL),
		zap.String("contract", cfg.Contract),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	lst.Stop()

	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
