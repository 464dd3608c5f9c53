package cmd

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zalepa/nycdiscovery/dataset"
	"github.com/zalepa/nycdiscovery/metrics"
	"github.com/zalepa/nycdiscovery/watch"
)

//go:embed web.html
var htmlContent embed.FS

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interactive web dashboard",
	Long: `Loads the datasets (or the SQLite snapshot given by --db) and serves the
dashboard with a JSON API and PNG chart endpoints.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8050)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the dataset when the CSV files change")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch = serveWatch
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, imp, err := loadDataset(ctx)
	if err != nil {
		return err
	}
	m := metrics.New()
	m.RecordLoad(time.Now(), nil)
	holder := dataset.NewHolder(st)

	if cfg.Watch {
		if cfg.DBPath != "" {
			logger.Warn("watch ignored while serving a snapshot", zap.String("db", cfg.DBPath))
		} else {
			w := watch.New(cfg.Data, holder, func(ctx context.Context) (*dataset.Store, error) {
				return dataset.Load(ctx, cfg.Data)
			}, logger, m)
			if err := w.Start(ctx); err != nil {
				return err
			}
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newServer(holder, cfg.Defaults, m, logger, imp).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving dashboard", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
