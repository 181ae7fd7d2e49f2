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

// Config is the full application configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Feed          FeedConfig          `mapstructure:"feed"`
	View          ViewConfig          `mapstructure:"view"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Version         string        `mapstructure:"version"`
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig configures the S3 compatible object store.
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Region       string `mapstructure:"region"`
	VideoBucket  string `mapstructure:"video_bucket"`
	AvatarBucket string `mapstructure:"avatar_bucket"`
}

// Buckets lists every bucket the application writes to.
func (m *MinIOConfig) Buckets() []string {
	if m.AvatarBucket == "" || m.AvatarBucket == m.VideoBucket {
		return []string{m.VideoBucket}
	}
	return []string{m.VideoBucket, m.AvatarBucket}
}

// KafkaConfig configures brokers and topics.
type KafkaConfig struct {
	Brokers []string          `mapstructure:"brokers"`
	Topics  map[string]string `mapstructure:"topics"`
	GroupID string            `mapstructure:"group_id"`
}

// VideoEventsTopic returns the lifecycle topic name.
func (k *KafkaConfig) VideoEventsTopic() string {
	if t := k.Topics["video_events"]; t != "" {
		return t
	}
	return "video-events"
}

// ElasticsearchConfig configures the search cluster.
type ElasticsearchConfig struct {
	Hosts []string          `mapstructure:"hosts"`
	Index map[string]string `mapstructure:"index"`
}

// VideosIndex returns the videos index name.
func (e *ElasticsearchConfig) VideosIndex() string {
	if name := e.Index["videos"]; name != "" {
		return name
	}
	return "videos"
}

// JWTConfig configures token signing.
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// ExpireDuration is the token lifetime.
func (j *JWTConfig) ExpireDuration() time.Duration {
	return time.Duration(j.ExpireHours) * time.Hour
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// UploadConfig controls presigned URL lifetimes and stale session reaping.
type UploadConfig struct {
	PartURLTTL     time.Duration `mapstructure:"part_url_ttl"`
	DownloadURLTTL time.Duration `mapstructure:"download_url_ttl"`
	AvatarURLTTL   time.Duration `mapstructure:"avatar_url_ttl"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	ReapBatch      int           `mapstructure:"reap_batch"`
}

// FeedConfig bounds listing pages.
type FeedConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	SearchLimit     int `mapstructure:"search_limit"`
}

// ViewConfig sets the view dedup window.
type ViewConfig struct {
	DedupWindow time.Duration `mapstructure:"dedup_window"`
}

var globalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "clipstream")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.mode", "debug")
	v.SetDefault("app.port", 8000)
	v.SetDefault("app.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.video_bucket", "videos")
	v.SetDefault("minio.avatar_bucket", "avatars")

	v.SetDefault("kafka.group_id", "clipstream-worker")
	v.SetDefault("kafka.topics.video_events", "video-events")

	v.SetDefault("elasticsearch.index.videos", "videos")

	v.SetDefault("jwt.issuer", "clipstream")
	v.SetDefault("jwt.expire_hours", 72)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("upload.part_url_ttl", "120s")
	v.SetDefault("upload.download_url_ttl", "1h")
	v.SetDefault("upload.avatar_url_ttl", "120s")
	v.SetDefault("upload.session_ttl", "24h")
	v.SetDefault("upload.reap_interval", "10m")
	v.SetDefault("upload.reap_batch", 100)

	v.SetDefault("feed.default_page_size", 10)
	v.SetDefault("feed.max_page_size", 20)
	v.SetDefault("feed.search_limit", 500)

	v.SetDefault("view.dedup_window", "24h")
}

// Load reads configPath, overlaying a local .env and process environment.
// A missing config file is tolerated; defaults and environment still apply.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Path returns the config file path, honouring CONFIG_PATH.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// Get returns the loaded configuration and panics if Load was never called.
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded, please call Load() first")
	}
	return globalConfig
}
