package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var ErrConfig = errors.New("bad configuration")

type Config struct {
	Listen        string        `yaml:"listen"`
	StoreDir      string        `yaml:"store_dir"`
	StoreInterval time.Duration `yaml:"store_interval"` // 0 - disable save data
	Restore       bool          `yaml:"restore"`
	Copyright     string        `yaml:"copyright"`
	TokenSecret   string        `yaml:"token_secret"` // empty - no authentication
	RateLimit     float64       `yaml:"rate_limit"`   // requests per second, 0 - unlimited
	LogLevel      string        `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Listen:        "127.0.0.1:3200",
		StoreDir:      "db/documents",
		StoreInterval: time.Second * 5,
		Restore:       true,
		LogLevel:      "info",
	}
}

func bind(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Listen, "LISTEN", c.Listen, "gRPC listen address")
	fs.StringVar(&c.StoreDir, "STORE_DIR", c.StoreDir, "document store directory")
	fs.DurationVar(&c.StoreInterval, "STORE_INTERVAL", c.StoreInterval, "store interval")
	fs.BoolVar(&c.Restore, "RESTORE", c.Restore, "restore documents from disk on startup")
	fs.StringVar(&c.Copyright, "COPYRIGHT", c.Copyright, "copyright line written in document headers")
	fs.StringVar(&c.TokenSecret, "TOKEN_SECRET", c.TokenSecret, "JWT signing secret")
	fs.Float64Var(&c.RateLimit, "RATE_LIMIT", c.RateLimit, "requests per second")
	fs.StringVar(&c.LogLevel, "LOG_LEVEL", c.LogLevel, "debug, info, warn or error")
}

// NewConfig defaults, then the CONFIG yaml file, then explicit flags
func NewConfig(name string, args []string) (*Config, error) {
	c := Default()

	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	path := pre.String("CONFIG", "", "yaml configuration file")
	bind(pre, Default())
	if err := pre.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		if err := c.load(*path); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("CONFIG", *path, "yaml configuration file")
	bind(fs, c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func (c *Config) load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: empty listen address", ErrConfig)
	}
	if c.StoreInterval < 0 {
		return fmt.Errorf("%w: negative store interval", ErrConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrConfig)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

func (c *Config) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
