// Package cmd wires the nycdiscovery command line.
package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zalepa/nycdiscovery/config"
	"github.com/zalepa/nycdiscovery/dataset"
	"github.com/zalepa/nycdiscovery/store"
)

var (
	cfgPath string
	verbose bool
	dataDir string
	dbPath  string

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "nycdiscovery",
	Short: "Explore NYC civic statistics",
	Long: `nycdiscovery serves an interactive dashboard over yearly NYC statistics
and environmental complaint records, and renders the same views to the
terminal or a PDF report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.Data = dataset.Paths{
				Standardized: filepath.Join(dataDir, filepath.Base(cfg.Data.Standardized)),
				Numeric:      filepath.Join(dataDir, filepath.Base(cfg.Data.Numeric)),
				Complaints:   filepath.Join(dataDir, filepath.Base(cfg.Data.Complaints)),
			}
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}

		logger, err = newLogger(cfg.LogLevel, cfg.LogFormat, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the dataset CSVs")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite snapshot path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(vizCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(fetchCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(level, format string, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// loadDataset reads the snapshot when a database is configured and the
// CSVs otherwise. The returned Import is nil for CSV loads.
func loadDataset(ctx context.Context) (*dataset.Store, *store.Import, error) {
	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot %s: %w", cfg.DBPath, err)
		}
		defer db.Close()
		st, err := db.Load(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load snapshot %s: %w", cfg.DBPath, err)
		}
		imp, err := db.LastImport(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("read snapshot info %s: %w", cfg.DBPath, err)
		}
		logger.Info("loaded snapshot",
			zap.String("db", cfg.DBPath),
			zap.String("import", imp.ID),
			zap.Int("years", st.Numeric().Len()))
		return st, &imp, nil
	}
	st, err := dataset.Load(ctx, cfg.Data)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("loaded dataset",
		zap.String("standardized", cfg.Data.Standardized),
		zap.String("numeric", cfg.Data.Numeric),
		zap.String("complaints", cfg.Data.Complaints),
		zap.Int("years", st.Numeric().Len()),
		zap.Int("complaints", len(st.Complaints())))
	return st, nil, nil
}
