package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	ListenAddr        string  `mapstructure:"listen_addr" yaml:"listen_addr"`
	SampleDataPath    string  `mapstructure:"sample_data_path" yaml:"sample_data_path"`
	DefaultConfidence float64 `mapstructure:"default_confidence" yaml:"default_confidence"`
	MinSupport        float64 `mapstructure:"min_support" yaml:"min_support"`
	MaxItemsetLen     int     `mapstructure:"max_itemset_len" yaml:"max_itemset_len"`
	PreviewRows       int     `mapstructure:"preview_rows" yaml:"preview_rows"`

	// Web sessions
	MaxUploadMB   int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	MemoSize      int    `mapstructure:"memo_size" yaml:"memo_size"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
	SessionSecret string `mapstructure:"session_secret" yaml:"session_secret"`

	// Logging
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// Keys lists every settable key, in file order.
var Keys = []string{
	"listen_addr", "sample_data_path", "default_confidence", "min_support",
	"max_itemset_len", "preview_rows", "max_upload_mb", "memo_size", "session_ttl_min",
	"session_secret", "log_level", "log_format", "environment",
}

// SessionTTL returns the idle timeout for web sessions.
func (c *Global) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Global) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate checks value ranges.
func (c *Global) Validate() error {
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 1 {
		return fmt.Errorf("default_confidence %v out of range [0, 1]", c.DefaultConfidence)
	}
	if c.MinSupport <= 0 || c.MinSupport > 1 {
		return fmt.Errorf("min_support %v out of range (0, 1]", c.MinSupport)
	}
	if c.MaxItemsetLen < 0 {
		return fmt.Errorf("max_itemset_len must be >= 0")
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must be >= 0")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0")
	}
	if c.MemoSize <= 0 {
		return fmt.Errorf("memo_size must be > 0")
	}
	// the session cookie lives as long as the session; a negative max age
	// would delete it on every response
	if c.SessionTTLMin <= 0 {
		return fmt.Errorf("session_ttl_min must be > 0")
	}
	return nil
}

// Set assigns one key from its string form, as used by `ruler config set`.
// c is left unchanged on error.
func (c *Global) Set(key, value string) error {
	next := *c
	var err error
	switch strings.ToLower(key) {
	case "listen_addr":
		next.ListenAddr = value
	case "sample_data_path":
		next.SampleDataPath = value
	case "default_confidence":
		next.DefaultConfidence, err = strconv.ParseFloat(value, 64)
	case "min_support":
		next.MinSupport, err = strconv.ParseFloat(value, 64)
	case "max_itemset_len":
		next.MaxItemsetLen, err = strconv.Atoi(value)
	case "preview_rows":
		next.PreviewRows, err = strconv.Atoi(value)
	case "max_upload_mb":
		next.MaxUploadMB, err = strconv.Atoi(value)
	case "memo_size":
		next.MemoSize, err = strconv.Atoi(value)
	case "session_ttl_min":
		next.SessionTTLMin, err = strconv.Atoi(value)
	case "session_secret":
		next.SessionSecret = value
	case "log_level":
		next.LogLevel = value
	case "log_format":
		next.LogFormat = value
	case "environment":
		next.Environment = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ruler"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.ruler/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("RULER")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("sample_data_path", filepath.Join("data", "sample.csv"))
	v.SetDefault("default_confidence", 0.85)
	v.SetDefault("min_support", 0.05)
	v.SetDefault("max_itemset_len", 0)
	v.SetDefault("preview_rows", 20)
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("memo_size", 16)
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("session_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("environment", "development")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
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
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}
