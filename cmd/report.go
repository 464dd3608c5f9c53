package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zalepa/nycdiscovery/report"
	"github.com/zalepa/nycdiscovery/views"
)

var reportOpts struct {
	out    string
	title  string
	verify bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write every dashboard view to a multi-page PDF",
	Example: `  nycdiscovery report --out dashboard.pdf
  nycdiscovery report --out 1990s.pdf --from 1990 --to 2000 --year 2015`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportOpts.out, "out", "o", "nycdiscovery.pdf", "output PDF path")
	f.StringVar(&reportOpts.title, "title", "NYC Data Discovery", "report title")
	f.BoolVar(&reportOpts.verify, "verify", true, "re-read the PDF and check every page")
	// The report takes the same selection flags as viz.
	f.StringSliceVar(&vizOpts.columns, "column", nil, "trend column (repeatable; default from config)")
	f.StringVar(&vizOpts.x, "x", "", "pairwise x column")
	f.StringVar(&vizOpts.y, "y", "", "pairwise y column")
	f.IntVar(&vizOpts.from, "from", 0, "first year of the comparison range")
	f.IntVar(&vizOpts.to, "to", 0, "end of the comparison range (exclusive)")
	f.IntVar(&vizOpts.year, "year", 0, "complaint year")
}

func runReport(cmd *cobra.Command, args []string) error {
	st, _, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	sel := selectionFromFlags(cmd, cfg.Defaults)
	d := views.New(st).Dashboard(sel)
	for name, n := range map[string]string{
		"trend":       d.Trend.Notice,
		"pairwise":    d.Pairwise.Notice,
		"correlation": d.Correlation.Notice,
	} {
		if n != "" {
			logger.Warn("view left empty", zap.String("view", name), zap.String("notice", n))
		}
	}

	if err := report.WriteFile(reportOpts.out, reportOpts.title, d); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	if reportOpts.verify {
		info, err := report.Verify(reportOpts.out, report.Pages)
		if err != nil {
			return err
		}
		logger.Debug("report verified", zap.Int("pages", info.Pages), zap.Ints("contentBytes", info.ContentSize))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", reportOpts.out)
	return nil
}
