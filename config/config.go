// Package config resolves runtime settings from a YAML file, a .env file
// and NYCD_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zalepa/nycdiscovery/dataset"
	"github.com/zalepa/nycdiscovery/views"
)

const (
	DefaultPath = "nycdiscovery.yaml"

	defaultDataDir      = "datasets"
	defaultStandardized = "yearly_stan_data.csv"
	defaultNumeric      = "yearly_numeric_data.csv"
	defaultComplaints   = "pri_env_complaints_by_borough.csv"
	defaultAddr         = ":8050"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"

	defaultFromYear      = 1979
	defaultToYear        = 2018
	defaultComplaintYear = 2019
)

// DefaultColumns are the trend columns selected on first load, also used
// as the default pairwise x and y.
var DefaultColumns = []string{
	"new_york_city_population",
	"nyc_consumption_million_gallons_per_day",
}

// Config holds resolved settings.
type Config struct {
	Data     dataset.Paths
	Addr     string
	LogLevel string
	// LogFormat is "json" or "console".
	LogFormat string
	Watch     bool
	DBPath    string
	Defaults  views.Selection
	Sources   []Source
}

// Source is one downloadable dataset file.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Dest is relative to the data directory.
	Dest string `yaml:"dest"`
}

type fileConfig struct {
	Data struct {
		Dir          string `yaml:"dir"`
		Standardized string `yaml:"standardized"`
		Numeric      string `yaml:"numeric"`
		Complaints   string `yaml:"complaints"`
	} `yaml:"data"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Watch    *bool             `yaml:"watch"`
	DBPath   string            `yaml:"db_path"`
	Defaults defaultsFileConfig `yaml:"defaults"`
	Sources  []Source          `yaml:"sources"`
}

type defaultsFileConfig struct {
	TrendColumns  []string `yaml:"trend_columns"`
	X             string   `yaml:"x"`
	Y             string   `yaml:"y"`
	From          *int     `yaml:"from"`
	To            *int     `yaml:"to"`
	ComplaintYear *int     `yaml:"complaint_year"`
}

// Load reads the config file at path. A missing file is only an error when
// path was given explicitly; an empty path falls back to DefaultPath if it
// exists. A .env file in the working directory is loaded first and never
// overrides variables that are already set.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = firstNonEmpty(os.Getenv("NYCD_CONFIG"), DefaultPath)
		explicit = os.Getenv("NYCD_CONFIG") != ""
	}

	fc, err := loadFileConfig(path)
	if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	dir := firstNonEmpty(os.Getenv("NYCD_DATA_DIR"), fc.Data.Dir, defaultDataDir)
	cfg := Config{
		Data: dataset.Paths{
			Standardized: resolve(dir, firstNonEmpty(os.Getenv("NYCD_STANDARDIZED"), fc.Data.Standardized, defaultStandardized)),
			Numeric:      resolve(dir, firstNonEmpty(os.Getenv("NYCD_NUMERIC"), fc.Data.Numeric, defaultNumeric)),
			Complaints:   resolve(dir, firstNonEmpty(os.Getenv("NYCD_COMPLAINTS"), fc.Data.Complaints, defaultComplaints)),
		},
		Addr:      firstNonEmpty(os.Getenv("NYCD_ADDR"), fc.HTTP.Addr, defaultAddr),
		LogLevel:  strings.ToLower(firstNonEmpty(os.Getenv("NYCD_LOG_LEVEL"), fc.Log.Level, defaultLogLevel)),
		LogFormat: strings.ToLower(firstNonEmpty(os.Getenv("NYCD_LOG_FORMAT"), fc.Log.Format, defaultLogFormat)),
		DBPath:    firstNonEmpty(os.Getenv("NYCD_DB"), fc.DBPath),
		Defaults:  applyDefaults(fc.Defaults),
	}
	if !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}
	if fc.Watch != nil {
		cfg.Watch = *fc.Watch
	}
	if v, ok := os.LookupEnv("NYCD_WATCH"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return cfg, fmt.Errorf("invalid NYCD_WATCH: %w", err)
		}
		cfg.Watch = b
	}
	for _, s := range fc.Sources {
		if s.Dest != "" {
			s.Dest = resolve(dir, s.Dest)
		}
		cfg.Sources = append(cfg.Sources, s)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Defaults.From > c.Defaults.To {
		return fmt.Errorf("defaults.from (%d) is after defaults.to (%d)", c.Defaults.From, c.Defaults.To)
	}
	for i, s := range c.Sources {
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("sources[%d]: url is required", i)
		}
		if strings.TrimSpace(s.Dest) == "" {
			return fmt.Errorf("sources[%d]: dest is required", i)
		}
	}
	return nil
}

func applyDefaults(fc defaultsFileConfig) views.Selection {
	sel := views.Selection{
		Columns: append([]string(nil), DefaultColumns...),
		X:       firstNonEmpty(fc.X, DefaultColumns[0]),
		Y:       firstNonEmpty(fc.Y, DefaultColumns[1]),
		From:    defaultFromYear,
		To:      defaultToYear,
		Year:    defaultComplaintYear,
	}
	if len(fc.TrendColumns) > 0 {
		sel.Columns = append([]string(nil), fc.TrendColumns...)
	}
	if fc.From != nil {
		sel.From = *fc.From
	}
	if fc.To != nil {
		sel.To = *fc.To
	}
	if fc.ComplaintYear != nil {
		sel.Year = *fc.ComplaintYear
	}
	return sel
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return fc, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
