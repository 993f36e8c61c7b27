package app

import (
	"os"
	"unicode/utf8"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (PRICER_ prefix), flags, or YAML config files.
type Config struct {
	Input       string      `default:"data/orders.csv" usage:"Order file to price (.gz is decompressed)" flag:"input" yaml:"input"`
	Delimiter   string      `default:"," usage:"Single-character column delimiter" flag:"delimiter" yaml:"delimiter"`
	Report      string      `default:"" usage:"Path of the JSON Lines report; empty disables it" flag:"report" yaml:"report"`
	DatabaseURL string      `usage:"PostgreSQL ledger URL (PRICER_DATABASE_URL or DATABASE_URL); empty disables it" flag:"database-url" yaml:"database_url"`
	Dedup       DedupConfig `yaml:"dedup"`
}

// DedupConfig sizes the duplicate order id filter.
type DedupConfig struct {
	Capacity uint    `default:"100000" usage:"Expected distinct order ids; 0 disables the check" yaml:"capacity"`
	FPR      float64 `default:"0.001" usage:"Duplicate filter false positive rate" yaml:"fpr"`
}

// DelimiterRune returns the configured delimiter. Valid only after
// LoadConfig succeeded.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and command-line flags.
func LoadConfig() (*Config, error) {
	return loadConfig([]string{"config.yaml", "/etc/order-pricer/config.yaml"}, nil)
}

// loadConfig reads files and args; nil args means os.Args.
func loadConfig(files, args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PRICER",
		Files:     files,
		Args:      args,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the conventional DATABASE_URL variable to the
// ledger URL when no PRICER_-prefixed value was given.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}

func (c *Config) validate() error {
	if c.Input == "" {
		return errors.New("input path is required: set PRICER_INPUT or --input")
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.Errorf("delimiter %q must be a single character", c.Delimiter)
	}
	switch c.DelimiterRune() {
	case '"', '\r', '\n', utf8.RuneError:
		return errors.Errorf("delimiter %q is not allowed", c.Delimiter)
	}
	if c.Dedup.Capacity > 0 && (c.Dedup.FPR <= 0 || c.Dedup.FPR >= 1) {
		return errors.Errorf("dedup false positive rate %v must be in (0, 1)", c.Dedup.FPR)
	}
	return nil
}
