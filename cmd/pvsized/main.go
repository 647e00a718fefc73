package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/awaistahir/pvsizer/internal/catalog"
	"github.com/awaistahir/pvsizer/internal/climate"
	"github.com/awaistahir/pvsizer/internal/config"
	"github.com/awaistahir/pvsizer/internal/store"
	"github.com/awaistahir/pvsizer/internal/uiapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var cfgFile, dbPath, catalogPath string
	var port int
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "pvsized",
		Short:        "pvsizer HTTP API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if catalogPath != "" {
				cfg.CatalogPath = catalogPath
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			zc := zap.NewProductionConfig()
			if verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			return serve(cfg, logger)
		},
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pvsizer/config.yaml)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "database path")
	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "equipment catalog YAML")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	cat, err := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
	}
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	clim := climate.NewClient(cfg.Climate.BaseURL, time.Duration(cfg.Climate.TimeoutSeconds)*time.Second)
	srv := uiapi.NewServer(st, cat, clim, cfg, logger)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pvsizer API server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.DBPath),
			zap.Int("panels", len(cat.PanelIDs())),
			zap.Int("inverters", len(cat.InverterIDs())))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
