package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/KaramelBytes/evdash-cli/internal/table"
	"github.com/KaramelBytes/evdash-cli/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dataset is a CSV/TSV/XLSX path or http(s) URL, optionally .gz or .zst compressed.
	Dataset string `mapstructure:"dataset" yaml:"dataset"`
	Sheet   string `mapstructure:"sheet" yaml:"sheet"`

	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	PageSize   int    `mapstructure:"page_size" yaml:"page_size"`
	SortMode   string `mapstructure:"sort_mode" yaml:"sort_mode"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"dataset", "sheet", "listen_addr", "page_size", "sort_mode",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
}

// Dir is the default configuration directory, ~/.evdash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".evdash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.evdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EVDASH")
	v.AutomaticEnv()

	v.SetDefault("dataset", dataset.DefaultPath)
	v.SetDefault("sheet", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("page_size", table.DefaultPageSize)
	v.SetDefault("sort_mode", table.SortNatural.String())
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Set parses val for key and stores it in c.
func (c *Global) Set(key, val string) error {
	atoi := func(lo int) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || i < lo {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "dataset":
		c.Dataset = val
	case "sheet":
		c.Sheet = val
	case "listen_addr":
		c.ListenAddr = val
	case "page_size":
		var i int
		if i, err = atoi(1); err == nil {
			if !table.ValidPageSize(i) {
				return fmt.Errorf("%w: %d (allowed: %v)", table.ErrInvalidPageSize, i, table.PageSizes)
			}
			c.PageSize = i
		}
	case "sort_mode":
		var m table.SortMode
		if m, err = table.ParseSortMode(val); err == nil {
			c.SortMode = m.String()
		}
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(0)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// Get returns the display form of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "dataset":
		return c.Dataset, nil
	case "sheet":
		return c.Sheet, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "page_size":
		return strconv.Itoa(c.PageSize), nil
	case "sort_mode":
		return c.SortMode, nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), nil
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), nil
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// LoadOptions converts the HTTP/retry settings for dataset.Load.
func (c *Global) LoadOptions() dataset.LoadOptions {
	return dataset.LoadOptions{
		Sheet:            c.Sheet,
		HTTPTimeout:      time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMaxAttempts: c.RetryMaxAttempts,
		RetryBaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		RetryMaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	}
}

// Sort returns the configured sort mode, falling back to natural.
func (c *Global) Sort() table.SortMode {
	m, err := table.ParseSortMode(c.SortMode)
	if err != nil {
		return table.SortNatural
	}
	return m
}
