// Package config loads CLI and server settings from defaults, an optional
// operatorio.yaml, .env files and OPERATORIO_* environment variables, in
// increasing order of precedence. Command-line flags bound through Viper()
// win over all of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OPERATORIO_LOG_LEVEL.
const EnvPrefix = "OPERATORIO"

// Config is the resolved configuration.
type Config struct {
	Log      LogConfig    `mapstructure:"log"`
	Renderer string       `mapstructure:"renderer"`
	Output   string       `mapstructure:"output"`
	Server   ServerConfig `mapstructure:"server"`
	HTML     HTMLConfig   `mapstructure:"html"`
}

// HTMLConfig customizes the HTML renderer.
type HTMLConfig struct {
	TemplatesDir string `mapstructure:"templates_dir"`
	IDPrefix     string `mapstructure:"id_prefix"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Option configures a Loader.
type Option func(*Loader)

// WithFile reads the given config file instead of searching for
// operatorio.yaml. A missing explicit file is an error.
func WithFile(path string) Option {
	return func(l *Loader) {
		l.file = strings.TrimSpace(path)
	}
}

// WithEnvFiles overrides the .env files loaded before reading the
// environment. Missing files are skipped.
func WithEnvFiles(paths ...string) Option {
	return func(l *Loader) {
		l.envFiles = paths
	}
}

// WithSearchPaths overrides the directories searched for operatorio.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(l *Loader) {
		l.searchPaths = paths
	}
}

// Loader resolves a Config. Each Loader owns its viper instance.
type Loader struct {
	v           *viper.Viper
	file        string
	envFiles    []string
	searchPaths []string
}

// NewLoader returns a loader with defaults applied.
func NewLoader(options ...Option) *Loader {
	l := &Loader{
		v:           viper.New(),
		envFiles:    []string{".env"},
		searchPaths: []string{".", "./configs"},
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}

	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "console")
	l.v.SetDefault("renderer", "tui")
	l.v.SetDefault("output", "json")
	l.v.SetDefault("server.addr", ":8080")
	l.v.SetDefault("server.read_timeout", 10*time.Second)
	l.v.SetDefault("server.shutdown_timeout", 5*time.Second)
	l.v.SetDefault("html.templates_dir", "")
	l.v.SetDefault("html.id_prefix", "operatorio")

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
	return l
}

// Viper exposes the underlying instance so callers can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads every source and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := l.readConfigFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Renderer) == "" {
		errs = append(errs, errors.New("renderer is required"))
	}
	switch c.Output {
	case "json", "form", "pretty":
	default:
		errs = append(errs, fmt.Errorf("output must be json, form or pretty, got %q", c.Output))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

func (l *Loader) loadEnvFiles() error {
	for _, path := range l.envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load env file %s: %w", path, err)
		}
	}
	return nil
}

func (l *Loader) readConfigFile() error {
	if l.file != "" {
		l.v.SetConfigFile(l.file)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", l.file, err)
		}
		return nil
	}

	l.v.SetConfigName("operatorio")
	l.v.SetConfigType("yaml")
	for _, path := range l.searchPaths {
		l.v.AddConfigPath(path)
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read operatorio.yaml: %w", err)
	}
	return nil
}
