package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zalepa/nycdiscovery/dataset"
	"github.com/zalepa/nycdiscovery/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the dataset CSVs into a SQLite snapshot",
	Long: `Reads the three dataset CSVs and replaces the contents of the snapshot
database given by --db (or db_path in the config file). "serve --db" can then
start without the CSVs.`,
	Example: `  nycdiscovery import --data-dir ./datasets --db nyc.db`,
	Args:    cobra.NoArgs,
	RunE:    runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	if cfg.DBPath == "" {
		return errors.New("import needs --db or db_path in the config file")
	}
	ctx := cmd.Context()
	st, err := dataset.Load(ctx, cfg.Data)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", cfg.DBPath, err)
	}
	defer db.Close()

	imp, err := db.Save(ctx, st, cfg.Data.Standardized+","+cfg.Data.Numeric+","+cfg.Data.Complaints)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Info("snapshot saved",
		zap.String("db", cfg.DBPath),
		zap.String("import", imp.ID),
		zap.Int("years", imp.Years),
		zap.Int("columns", imp.Columns),
		zap.Int("complaints", imp.Complaints))
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d years, %d columns, %d complaints into %s\n",
		imp.Years, imp.Columns, imp.Complaints, cfg.DBPath)
	return nil
}
