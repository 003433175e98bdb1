package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Review   ReviewConfig   `mapstructure:"review"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Name           string `mapstructure:"name"`
	Env            string `mapstructure:"env"`
	PublicURL      string `mapstructure:"public_url"`
	TrackingPrefix string `mapstructure:"tracking_prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type ReviewConfig struct {
	DefaultDueDays       int `mapstructure:"default_due_days"`
	AbstractPreviewRunes int `mapstructure:"abstract_preview_runes"`
}

type StorageConfig struct {
	Root string `mapstructure:"root"`
}

type NotifyConfig struct {
	Driver          string        `mapstructure:"driver"`
	CatalogFile     string        `mapstructure:"catalog_file"`
	From            string        `mapstructure:"from"`
	DispatchWorkers int           `mapstructure:"dispatch_workers"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	SMTP            SMTPConfig    `mapstructure:"smtp"`
	NATS            NATSConfig    `mapstructure:"nats"`
	Relay           RelayConfig   `mapstructure:"relay"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Pass          string `mapstructure:"pass"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type RelayConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, errs.Wrap(err, "load .env")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), configFile != "" && errors.Is(err, os.ErrNotExist):
			logging.Warn(logCtx, "config file not found, fallback to defaults and env", slog.String("config_file", configFile))
		default:
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("notify_driver", cfg.Notify.Driver),
	)

	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if strings.TrimSpace(c.App.TrackingPrefix) == "" {
		return errors.New("app.tracking_prefix is required")
	}
	if c.Review.DefaultDueDays <= 0 {
		return errors.New("review.default_due_days must be positive")
	}
	switch strings.ToLower(c.Notify.Driver) {
	case "log", "smtp", "nats":
	default:
		return errors.New("notify.driver must be one of log|smtp|nats")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "journalflow")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.public_url", "http://localhost:8080")
	v.SetDefault("app.tracking_prefix", "JRNL")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "var/journalflow.sqlite")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.jwt_secret", "")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("review.default_due_days", 14)
	v.SetDefault("review.abstract_preview_runes", 280)
	v.SetDefault("storage.root", "var/manuscripts")
	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.catalog_file", "")
	v.SetDefault("notify.from", "Editorial Office <editorial@localhost>")
	v.SetDefault("notify.smtp.host", "")
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.smtp.user", "")
	v.SetDefault("notify.smtp.pass", "")
	v.SetDefault("notify.smtp.skip_tls_verify", false)
	v.SetDefault("notify.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("notify.nats.subject_prefix", "journalflow.notifications")
	v.SetDefault("notify.dispatch_workers", 8)
	v.SetDefault("notify.dispatch_timeout", 30*time.Second)
	v.SetDefault("notify.relay.interval", 30*time.Second)
	v.SetDefault("notify.relay.batch_size", 50)
	v.SetDefault("notify.relay.max_attempts", 5)
}
