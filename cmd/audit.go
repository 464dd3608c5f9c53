package cmd

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zalepa/nycdiscovery/dataset"
)

var auditOpts struct {
	fix string
	yes bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Find complaint labels that miss the fixed vocabulary",
	Long: `Complaint types and boroughs are matched case-sensitively, so a record
labelled "mold" or "BROOKLYN" is left out of the complaint chart. audit lists
every such label with the canonical value it most likely means, and with
--fix writes a corrected complaints CSV.`,
	Example: `  nycdiscovery audit
  nycdiscovery audit --fix cleaned.csv --yes`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditOpts.fix, "fix", "", "write a corrected complaints CSV to this path")
	auditCmd.Flags().BoolVarP(&auditOpts.yes, "yes", "y", false, "accept every suggested rename without prompting")
}

// normalizeLabel folds case, spacing and separator differences so label
// variants compare equal.
func normalizeLabel(label string) string {
	s := strings.ToUpper(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, "&", "/")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, " / ", "/")
	s = strings.ReplaceAll(s, " /", "/")
	s = strings.ReplaceAll(s, "/ ", "/")
	return strings.TrimRight(s, ".,;:")
}

type labelVariant struct {
	field     string // "type" or "borough"
	label     string
	canonical string // empty when nothing matches
	count     int
	years     []int
}

// findVariants collects out-of-vocabulary complaint types and boroughs and
// pairs each with the canonical value it normalizes to.
func findVariants(records []dataset.Complaint) []labelVariant {
	canon := map[string]map[string]string{
		"type":    make(map[string]string),
		"borough": make(map[string]string),
	}
	for _, t := range dataset.ComplaintTypes {
		canon["type"][normalizeLabel(t)] = t
	}
	for _, b := range dataset.Boroughs {
		canon["borough"][normalizeLabel(b)] = b
	}

	type key struct{ field, label string }
	found := make(map[key]*labelVariant)
	yearSets := make(map[key]map[int]bool)
	note := func(field, label string, c dataset.Complaint) {
		match := canon[field][normalizeLabel(label)]
		if match == label {
			return
		}
		k := key{field, label}
		v, ok := found[k]
		if !ok {
			v = &labelVariant{field: field, label: label, canonical: match}
			found[k] = v
			yearSets[k] = make(map[int]bool)
		}
		v.count++
		if c.HasDate() {
			yearSets[k][c.Received.Year()] = true
		}
	}
	for _, c := range records {
		note("type", c.Type, c)
		note("borough", c.Borough, c)
	}

	out := make([]labelVariant, 0, len(found))
	for k, v := range found {
		for y := range yearSets[k] {
			v.years = append(v.years, y)
		}
		sort.Ints(v.years)
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].field != out[j].field {
			return out[i].field > out[j].field
		}
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].label < out[j].label
	})
	return out
}

func formatYearRange(years []int) string {
	switch len(years) {
	case 0:
		return "no dated records"
	case 1:
		return fmt.Sprintf("%d (1 year)", years[0])
	default:
		return fmt.Sprintf("%d to %d (%d years)", years[0], years[len(years)-1], len(years))
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	records, err := dataset.ReadComplaintsFile(cfg.Data.Complaints)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	variants := findVariants(records)
	if len(variants) == 0 {
		fmt.Fprintf(out, "all %d records match the vocabulary\n", len(records))
		return nil
	}

	for _, v := range variants {
		suggestion := "(no match)"
		if v.canonical != "" {
			suggestion = "→ " + v.canonical
		}
		fmt.Fprintf(out, "%-8s %-32q %6d  %-24s %s\n", v.field, v.label, v.count, suggestion, formatYearRange(v.years))
	}

	if auditOpts.fix == "" {
		return nil
	}
	renames := chooseRenames(cmd.InOrStdin(), cmd.ErrOrStderr(), variants, auditOpts.yes)
	applied, err := writeFixedComplaints(cfg.Data.Complaints, auditOpts.fix, renames)
	if err != nil {
		return err
	}
	logger.Info("audit fixes written", zap.String("path", auditOpts.fix), zap.Int("renamed", applied))
	fmt.Fprintf(out, "audit: renamed %d entries, wrote %s\n", applied, auditOpts.fix)
	return nil
}

type renameKey struct {
	field, label string
}

// chooseRenames prompts for each suggested rename unless acceptAll is set.
// Answering "a" accepts the rest.
func chooseRenames(in io.Reader, prompt io.Writer, variants []labelVariant, acceptAll bool) map[renameKey]string {
	renames := make(map[renameKey]string)
	scanner := bufio.NewScanner(in)
	for _, v := range variants {
		if v.canonical == "" {
			continue
		}
		k := renameKey{v.field, v.label}
		if acceptAll {
			renames[k] = v.canonical
			continue
		}
		fmt.Fprintf(prompt, "Rename %s %q → %q (%d records)? [y/N/a(ll)]: ", v.field, v.label, v.canonical, v.count)
		if !scanner.Scan() {
			break
		}
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "a", "all":
			acceptAll = true
			renames[k] = v.canonical
		case "y", "yes":
			renames[k] = v.canonical
		}
	}
	return renames
}

// rewriteComplaints copies a complaints CSV from src to dst, replacing
// renamed borough and type cells. Every other column is written unchanged.
// It returns the number of cells rewritten.
func rewriteComplaints(src io.Reader, dst io.Writer, renames map[renameKey]string) (int, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{"borough": -1, "type": -1}
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case dataset.ColBorough:
			cols["borough"] = i
		case dataset.ColComplaint:
			cols["type"] = i
		}
	}
	for field, i := range cols {
		if i < 0 {
			return 0, fmt.Errorf("complaints file has no %s column", field)
		}
	}

	w := csv.NewWriter(dst)
	if err := w.Write(header); err != nil {
		return 0, err
	}
	applied := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return applied, err
		}
		for field, i := range cols {
			if i >= len(rec) {
				continue
			}
			if to, ok := renames[renameKey{field, strings.TrimSpace(rec[i])}]; ok {
				rec[i] = to
				applied++
			}
		}
		if err := w.Write(rec); err != nil {
			return applied, err
		}
	}
	w.Flush()
	return applied, w.Error()
}

func writeFixedComplaints(srcPath, dstPath string, renames map[renameKey]string) (int, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, err
	}
	applied, err := rewriteComplaints(src, dst, renames)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return applied, fmt.Errorf("write %s: %w", dstPath, err)
	}
	return applied, nil
}
