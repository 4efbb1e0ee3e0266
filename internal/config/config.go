package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
	Web    Web    `mapstructure:"web" yaml:"web"`
	Auth   Auth   `mapstructure:"auth" yaml:"auth"`
	UI     UI     `mapstructure:"ui" yaml:"ui"`
	Log    Log    `mapstructure:"log" yaml:"log"`
}

type Web struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type Auth struct {
	TokenSecret string `mapstructure:"token_secret" yaml:"token_secret"`
	TokenTTL    string `mapstructure:"token_ttl" yaml:"token_ttl"`
}

type UI struct {
	TasksPerPage int    `mapstructure:"tasks_per_page" yaml:"tasks_per_page"`
	ToastTTL     string `mapstructure:"toast_ttl" yaml:"toast_ttl"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

func Default() Config {
	return Config{
		Web:  Web{Addr: "127.0.0.1:8080"},
		Auth: Auth{TokenTTL: "24h"},
		UI:   UI{TasksPerPage: 10, ToastTTL: "5s"},
		Log:  Log{Level: "info", Format: "text"},
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "taskdeck", "config.yaml"), nil
}

// DefaultDBPath places the database next to the config file.
func DefaultDBPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "taskdeck.db")
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads path over the defaults. A missing file is not an error. TASKDECK_* environment
// variables override the file, e.g. TASKDECK_WEB_ADDR for web.addr.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("web.addr", cfg.Web.Addr)
	v.SetDefault("auth.token_secret", cfg.Auth.TokenSecret)
	v.SetDefault("auth.token_ttl", cfg.Auth.TokenTTL)
	v.SetDefault("ui.tasks_per_page", cfg.UI.TasksPerPage)
	v.SetDefault("ui.toast_ttl", cfg.UI.ToastTTL)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

func (c Config) Validate() error {
	if _, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
		return fmt.Errorf("auth.token_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.UI.ToastTTL); err != nil {
		return fmt.Errorf("ui.toast_ttl: %w", err)
	}
	if c.UI.TasksPerPage <= 0 {
		return fmt.Errorf("ui.tasks_per_page: must be positive, got %d", c.UI.TasksPerPage)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

func (c Config) TokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.TokenTTL)
	return d
}

func (c Config) ToastTTL() time.Duration {
	d, _ := time.ParseDuration(c.UI.ToastTTL)
	return d
}

// EnsureSecret generates a token secret when none is configured. It reports whether cfg
// changed and should be saved.
func EnsureSecret(cfg *Config) (bool, error) {
	if cfg.Auth.TokenSecret != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("generate token secret: %w", err)
	}
	cfg.Auth.TokenSecret = hex.EncodeToString(buf)
	return true, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
