package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/raceinsight/backend/pkg/errs"
)

type Config struct {
	Server  ServerConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	Scraper ScraperConfig
	Batch   BatchConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type ScraperConfig struct {
	BaseURL        string
	Racecourse     string
	NavTimeoutSec  int
	MaxRacesPerDay int
	UserAgent      string
}

type BatchConfig struct {
	MaxConcurrent  int
	MaxRetries     int
	RetryDelayMS   int
	PoliteDelaySec int
	WindowDays     int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/raceinsight")

	viper.SetEnvPrefix("RACE_INSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errs.Config("failed to read config file: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errs.Config("failed to unmarshal config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the pipeline cannot run with. Called at
// startup; a failure here is fatal, no partial operation.
func (c *Config) Validate() error {
	if c.SQLite.Path == "" {
		return errs.Config("sqlite.path is required")
	}
	if c.Scraper.BaseURL == "" {
		return errs.Config("scraper.baseURL is required")
	}
	if c.Batch.MaxConcurrent < 1 {
		return errs.Config("batch.maxConcurrent must be at least 1, got %d", c.Batch.MaxConcurrent)
	}
	if c.Batch.WindowDays < 1 || c.Batch.WindowDays > 90 {
		return errs.Config("batch.windowDays must be in [1, 90], got %d", c.Batch.WindowDays)
	}
	if c.Scraper.MaxRacesPerDay < 1 {
		return errs.Config("scraper.maxRacesPerDay must be at least 1, got %d", c.Scraper.MaxRacesPerDay)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)

	viper.SetDefault("sqlite.path", "./data/racing.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("scraper.baseURL", "https://racing.hkjc.com/racing/information/Chinese/Racing/LocalResults.aspx")
	viper.SetDefault("scraper.racecourse", "ST")
	viper.SetDefault("scraper.navTimeoutSec", 30)
	viper.SetDefault("scraper.maxRacesPerDay", 12)
	viper.SetDefault("scraper.userAgent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	viper.SetDefault("batch.maxConcurrent", 5)
	viper.SetDefault("batch.maxRetries", 3)
	viper.SetDefault("batch.retryDelayMS", 1000)
	viper.SetDefault("batch.politeDelaySec", 1)
	viper.SetDefault("batch.windowDays", 90)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
