package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig      `yaml:"store" mapstructure:"store"`
	Server  ServerConfig     `yaml:"server" mapstructure:"server"`
	Export  ExportConfig     `yaml:"export" mapstructure:"export"`
	Fetch   FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Log     LogConfig        `yaml:"log" mapstructure:"log"`
	Monitor MonitoringConfig `yaml:"monitor" mapstructure:"monitor"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	SecretKey        string   `yaml:"secret_key" mapstructure:"secret_key"`
	MaxUploadMB      int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	UploadRatePerMin int      `yaml:"upload_rate_per_min" mapstructure:"upload_rate_per_min"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ExportConfig configures the spreadsheet export.
type ExportConfig struct {
	Filename  string `yaml:"filename" mapstructure:"filename"`
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// FetchConfig configures report downloads for extract --url.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MonitoringConfig configures the upload health checker and its alerts.
type MonitoringConfig struct {
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
}

// Validation modes accepted by Config.Validate.
const (
	ModeServe   = "serve"
	ModeLoad    = "load"
	ModeExtract = "extract"
)

// Validate checks that the settings a command needs are present and sane.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeServe:
		if c.Server.SecretKey == "" {
			errs = append(errs, "server.secret_key is required")
		}
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		errs = append(errs, c.validateStore()...)
	case ModeLoad:
		errs = append(errs, c.validateStore()...)
	case ModeExtract:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
	case "sqlite":
	default:
		return []string{"store.driver must be postgres or sqlite"}
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a default are invisible to AutomaticEnv on
	// Unmarshal, so every key gets one.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.secret_key", "")
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.upload_rate_per_min", 60)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("export.filename", "DSE_bond_data.xlsx")
	v.SetDefault("export.sheet_name", "Sheet1")
	v.SetDefault("fetch.user_agent", "dse-bonds/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitor.lookback_hours", 24)
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.webhook_url", "")
	v.SetDefault("monitor.failure_rate_threshold", 0.25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
