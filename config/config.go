package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CATALOG_IMPORT_LOGGING_LEVEL
const EnvPrefix = "CATALOG_IMPORT"

// Config holds the import configuration
type Config struct {
	AdminAPI     AdminAPIConfig     `mapstructure:"admin_api" json:"admin_api"`
	LegacyImages LegacyImagesConfig `mapstructure:"legacy_images" json:"legacy_images"`
	Database     DatabaseConfig     `mapstructure:"database" json:"database"`
	Inputs       InputsConfig       `mapstructure:"inputs" json:"inputs"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency" json:"concurrency"`
	Categories   CategoriesConfig   `mapstructure:"categories" json:"categories"`
	Logging      LoggingConfig      `mapstructure:"logging" json:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry" json:"telemetry"`
	Metrics      MetricsConfig      `mapstructure:"metrics" json:"metrics"`
}

// AdminAPIConfig points at the destination admin API
type AdminAPIConfig struct {
	BaseURL            string `mapstructure:"base_url" json:"base_url"`
	Token              string `mapstructure:"token" json:"token"`
	UserAgent          string `mapstructure:"user_agent" json:"user_agent,omitempty"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"`
	// Timeout bounds admin calls and presigned PUTs; 0 lets a stalled call hold its slot
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// LegacyImagesConfig configures fetching category photos from the old shop
type LegacyImagesConfig struct {
	BaseURL           string        `mapstructure:"base_url" json:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries" json:"max_retries"`
	InitialBackoffMs  int           `mapstructure:"initial_backoff_ms" json:"initial_backoff_ms"`
	MaxBackoffMs      int           `mapstructure:"max_backoff_ms" json:"max_backoff_ms"`
	Breaker           BreakerConfig `mapstructure:"breaker" json:"breaker"`
}

// BreakerConfig configures the legacy host circuit breaker
type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled" json:"enabled"`
	MinRequests  uint32        `mapstructure:"min_requests" json:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio" json:"failure_ratio"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout" json:"open_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" json:"url"`
	MaxConnections  int           `mapstructure:"max_connections" json:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections" json:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" json:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time" json:"max_conn_idle_time"`
}

// InputsConfig locates the legacy exports
type InputsConfig struct {
	CategoriesCSV string `mapstructure:"categories_csv" json:"categories_csv"`
	ProductsCSV   string `mapstructure:"products_csv" json:"products_csv"`
	ImagesDir     string `mapstructure:"images_dir" json:"images_dir"`
	// Encoding is auto, utf-8, windows-1250, windows-1251 or iso-8859-2
	Encoding string `mapstructure:"encoding" json:"encoding"`
}

// ConcurrencyConfig caps in-flight work per stage
type ConcurrencyConfig struct {
	Categories    int `mapstructure:"categories" json:"categories"`
	ProductImages int `mapstructure:"product_images" json:"product_images"`
}

// CategoriesConfig tunes category creation
type CategoriesConfig struct {
	MaxPasses        int  `mapstructure:"max_passes" json:"max_passes"`
	RebuildMapFromDB bool `mapstructure:"rebuild_map_from_db" json:"rebuild_map_from_db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level" json:"level"`
	Format  string `mapstructure:"format" json:"format"`
	NoColor bool   `mapstructure:"no_color" json:"no_color"`
}

// TelemetryConfig configures OTLP tracing
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// MetricsConfig configures the Prometheus endpoint; empty Addr disables it
type MetricsConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate checks values that would make a run misbehave
func (c *Config) Validate() error {
	var errs []error
	if c.Concurrency.Categories < 1 {
		errs = append(errs, fmt.Errorf("concurrency.categories must be at least 1"))
	}
	if c.Concurrency.ProductImages < 1 {
		errs = append(errs, fmt.Errorf("concurrency.product_images must be at least 1"))
	}
	if c.Categories.MaxPasses < 1 {
		errs = append(errs, fmt.Errorf("categories.max_passes must be at least 1"))
	}
	if c.AdminAPI.Timeout < 0 {
		errs = append(errs, fmt.Errorf("admin_api.timeout must not be negative"))
	}
	if c.LegacyImages.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("legacy_images.max_retries must not be negative"))
	}
	if c.LegacyImages.Breaker.Enabled && (c.LegacyImages.Breaker.FailureRatio <= 0 || c.LegacyImages.Breaker.FailureRatio > 1) {
		errs = append(errs, fmt.Errorf("legacy_images.breaker.failure_ratio must be in (0, 1]"))
	}
	return errors.Join(errs...)
}

// loadEnvFile loads the first .env file found next to the binary's working directory
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			return loadDotEnvFile(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads KEY=VALUE lines into the environment. Variables that
// are already set win.
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds the unprefixed variables operators already use
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("admin_api.token", EnvPrefix+"_ADMIN_API_TOKEN", "ADMIN_TOKEN")
	v.BindEnv("admin_api.base_url", EnvPrefix+"_ADMIN_API_BASE_URL", "ADMIN_BASE_URL")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("admin_api.base_url", "http://localhost:3000")
	v.SetDefault("admin_api.token", "")
	v.SetDefault("admin_api.user_agent", "catalog-import/1.0")
	v.SetDefault("admin_api.insecure_skip_verify", false)
	v.SetDefault("admin_api.timeout", time.Duration(0))

	v.SetDefault("legacy_images.base_url", "https://ginventor.ge/uploads/images/categories")
	v.SetDefault("legacy_images.timeout", 15*time.Second)
	v.SetDefault("legacy_images.requests_per_second", 0)
	v.SetDefault("legacy_images.max_retries", 0)
	v.SetDefault("legacy_images.initial_backoff_ms", 200)
	v.SetDefault("legacy_images.max_backoff_ms", 5000)
	v.SetDefault("legacy_images.breaker.enabled", true)
	v.SetDefault("legacy_images.breaker.min_requests", 20)
	v.SetDefault("legacy_images.breaker.failure_ratio", 0.9)
	v.SetDefault("legacy_images.breaker.open_timeout", 30*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 4)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("inputs.categories_csv", "tests/categories_new.csv")
	v.SetDefault("inputs.products_csv", "tests/news.csv")
	v.SetDefault("inputs.images_dir", "tests/product_images_full")
	v.SetDefault("inputs.encoding", "auto")

	v.SetDefault("concurrency.categories", 10)
	v.SetDefault("concurrency.product_images", 20)

	v.SetDefault("categories.max_passes", 1)
	v.SetDefault("categories.rebuild_map_from_db", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "catalog-import")

	v.SetDefault("metrics.addr", "")
}

// Get returns the configuration loaded last
func Get() *Config {
	return globalConfig
}
