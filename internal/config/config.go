package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"catalog/crawler/internal/parser"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Source    SourceConfig       `mapstructure:"source"`
	Selectors parser.SelectorSet `mapstructure:"selectors"`
	Catalog   CatalogConfig      `mapstructure:"catalog"`
	Crawl     CrawlConfig        `mapstructure:"crawl"`
	Store     StoreConfig        `mapstructure:"store"`
	Log       LogConfig          `mapstructure:"log"`
}

// SourceConfig describes the crawled site and how politely to talk to it
type SourceConfig struct {
	URLRoot              string        `mapstructure:"url_root"`
	Interval             time.Duration `mapstructure:"interval"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	Timeout              time.Duration `mapstructure:"timeout"`
	UserAgent            string        `mapstructure:"user_agent"`
	Proxies              []string      `mapstructure:"proxies"`
	ProxyCheckURL        string        `mapstructure:"proxy_check_url"`
	FirstPageSuffix      string        `mapstructure:"first_page_suffix"`
}

// CatalogConfig holds where the catalog tree snapshot lives
type CatalogConfig struct {
	Backend      string `mapstructure:"backend"` // file or redis
	Path         string `mapstructure:"path"`
	BackupSuffix string `mapstructure:"backup_suffix"`
	SeedHTML     string `mapstructure:"seed_html"`
	RedisKey     string `mapstructure:"redis_key"`
}

// CrawlConfig narrows which months a run visits
type CrawlConfig struct {
	Years []int `mapstructure:"years"`
}

// StoreConfig selects and configures the record sinks
type StoreConfig struct {
	Backends []string       `mapstructure:"backends"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// MongoConfig holds document store connection details
type MongoConfig struct {
	URI               string `mapstructure:"uri"`
	Database          string `mapstructure:"database"`
	DailyCollection   string `mapstructure:"daily_collection"`
	MonthlyCollection string `mapstructure:"monthly_collection"`
}

// PostgresConfig holds database configuration
type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DailyTable   string `mapstructure:"daily_table"`
	MonthlyTable string `mapstructure:"monthly_table"`
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	StreamPrefix  string `mapstructure:"stream_prefix"`
	StreamMaxLen  int64  `mapstructure:"stream_max_len"` // approximate cap, 0 keeps everything
	ConsumerGroup string `mapstructure:"consumer_group"` // created up front when set
}

// Addr renders host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig controls logrus
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// Short environment names accepted next to the derived ones (SOURCE_URL_ROOT, ...).
var envAliases = map[string]string{
	"source.url_root":      "URL_ROOT",
	"store.mongo.uri":      "DB_URL",
	"store.mongo.database": "DB_NAME",
}

// Load reads .env files, then the YAML config file (path, or ./config.yaml
// when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-provided viper instance.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	loadEnvFiles(".env")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config.yaml found; using defaults and environment")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

// RequireSource checks the settings every networked stage needs.
func (c *Config) RequireSource() error {
	if strings.TrimSpace(c.Source.URLRoot) == "" {
		return errors.New("source.url_root (URL_ROOT) is required")
	}
	return nil
}

func loadEnvFiles(files ...string) {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			log.WithError(err).Warnf("Failed to load %s", file)
			continue
		}
		log.Debugf("Loaded env file %s", file)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url_root", "")
	v.SetDefault("source.interval", "750ms")
	v.SetDefault("source.max_requests_per_second", 0)
	v.SetDefault("source.timeout", "0s")
	v.SetDefault("source.user_agent", "")
	v.SetDefault("source.proxies", []string{})
	v.SetDefault("source.proxy_check_url", "")
	v.SetDefault("source.first_page_suffix", "_1")

	v.SetDefault("selectors.seed.container", "table tr td")
	v.SetDefault("selectors.seed.anchor", "a")
	v.SetDefault("selectors.month_index.container", "html")
	v.SetDefault("selectors.month_index.anchor", "a")
	v.SetDefault("selectors.descriptions.container", "ul")
	v.SetDefault("selectors.descriptions.anchor", "a")
	v.SetDefault("selectors.pages.container", "table")
	v.SetDefault("selectors.pages.anchor", "a")

	v.SetDefault("catalog.backend", "file")
	v.SetDefault("catalog.path", "json/root.json")
	v.SetDefault("catalog.backup_suffix", ".bu")
	v.SetDefault("catalog.seed_html", "html/root.html")
	v.SetDefault("catalog.redis_key", "catalog:root")

	v.SetDefault("crawl.years", []int{})

	v.SetDefault("store.backends", []string{"mongo"})
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "catalog")
	v.SetDefault("store.mongo.daily_collection", "daily")
	v.SetDefault("store.mongo.monthly_collection", "monthly")

	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.name", "catalog")
	v.SetDefault("store.postgres.user", "catalog_user")
	v.SetDefault("store.postgres.password", "catalog_pass")
	v.SetDefault("store.postgres.daily_table", "daily_products")
	v.SetDefault("store.postgres.monthly_table", "monthly_catalog")

	v.SetDefault("store.redis.host", "localhost")
	v.SetDefault("store.redis.port", 6379)
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.database", 0)
	v.SetDefault("store.redis.stream_prefix", "catalog:stream:")
	v.SetDefault("store.redis.stream_max_len", 0)
	v.SetDefault("store.redis.consumer_group", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
