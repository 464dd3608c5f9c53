package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zalepa/nycdiscovery/config"
)

var fetchOpts struct {
	force   bool
	timeout time.Duration
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the dataset files listed under sources in the config",
	Long: `Downloads each entry of the config file's sources list into the data
directory. Files that already exist are skipped unless --force is given.`,
	Example: `  nycdiscovery fetch --config nycdiscovery.yaml
  nycdiscovery fetch --force`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchOpts.force, "force", false, "download files that already exist")
	fetchCmd.Flags().DurationVar(&fetchOpts.timeout, "timeout", 2*time.Minute, "per-file download timeout")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(cfg.Sources) == 0 {
		return errors.New("no sources configured; add a sources list to the config file")
	}
	client := &http.Client{Timeout: fetchOpts.timeout}
	downloaded, skipped, err := fetchSources(cmd.Context(), client, cfg.Sources, fetchOpts.force, logger)
	fmt.Fprintf(cmd.OutOrStdout(), "Done: %d downloaded, %d skipped\n", downloaded, skipped)
	return err
}

// fetchSources downloads every source, continuing past failures. The
// returned error joins the individual failures.
func fetchSources(ctx context.Context, client *http.Client, sources []config.Source, force bool, log *zap.Logger) (downloaded, skipped int, err error) {
	var errs []error
	for _, s := range sources {
		if !force {
			if _, statErr := os.Stat(s.Dest); statErr == nil {
				log.Info("skip existing", zap.String("source", s.Name), zap.String("dest", s.Dest))
				skipped++
				continue
			}
		}
		if mkErr := os.MkdirAll(filepath.Dir(s.Dest), 0o755); mkErr != nil {
			errs = append(errs, mkErr)
			continue
		}
		log.Info("downloading", zap.String("source", s.Name), zap.String("url", s.URL), zap.String("dest", s.Dest))
		n, dlErr := downloadFile(ctx, client, s.URL, s.Dest)
		if dlErr != nil {
			log.Error("download failed", zap.String("url", s.URL), zap.Error(dlErr))
			errs = append(errs, fmt.Errorf("%s: %w", s.URL, dlErr))
			continue
		}
		log.Debug("downloaded", zap.String("dest", s.Dest), zap.Int64("bytes", n))
		downloaded++
	}
	return downloaded, skipped, errors.Join(errs...)
}

// downloadFile streams url into a temporary file beside dest and renames it
// into place. A failed transfer leaves dest untouched.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return 0, err
	}
	if err := os.Rename(f.Name(), dest); err != nil {
		os.Remove(f.Name())
		return 0, err
	}
	return n, nil
}
