package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awaistahir/pvsizer/internal/catalog"
	"github.com/awaistahir/pvsizer/internal/config"
	"github.com/awaistahir/pvsizer/internal/equipment"
	"github.com/awaistahir/pvsizer/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile     string
	dbPath      string
	catalogPath string
	verbose     bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pvsize",
		Short: "pvsize - electrical sizing for rooftop PV systems",
		Long: `pvsize resolves the string configuration of a panel/inverter pair, derives
design currents, and sizes conductors and overcurrent protection for the DC string,
DC trunk and AC output circuits of a grid-tied PV installation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if catalogPath != "" {
				cfg.CatalogPath = catalogPath
			}

			zc := zap.NewProductionConfig()
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err = zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger.Debug("configuration loaded", zap.String("db", cfg.DBPath), zap.String("catalog", cfg.CatalogPath))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pvsizer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.pvsizer/pvsizer.db)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "equipment catalog YAML (default is the built-in catalog)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(designCmd())
	rootCmd.AddCommand(stringsCmd())
	rootCmd.AddCommand(conductorCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(climateCmd())
	rootCmd.AddCommand(runsCmd())

	return rootCmd
}

func openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

func loadCatalog() (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.CatalogPath)
}

// openEquipment opens the store and catalog together. The caller closes the store.
func openEquipment() (equipment.Resolver, *store.Store, error) {
	cat, err := loadCatalog()
	if err != nil {
		return equipment.Resolver{}, nil, err
	}
	st, err := openStore()
	if err != nil {
		return equipment.Resolver{}, nil, err
	}
	return equipment.Resolver{Store: st, Catalog: cat}, st, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
