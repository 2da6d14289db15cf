package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`
	MaxUploadBytes int64    `mapstructure:"MAX_UPLOAD_BYTES"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"POSTGRES_HOST"`
	DBPort     string `mapstructure:"POSTGRES_PORT"`
	DBUser     string `mapstructure:"POSTGRES_USER"`
	DBPassword string `mapstructure:"POSTGRES_PASSWORD"`
	DBName     string `mapstructure:"POSTGRES_DB"`
	Migrations string `mapstructure:"MIGRATIONS_SOURCE"`
	MongoURI   string `mapstructure:"MONGO_URI"`
	MongoDB    string `mapstructure:"MONGO_DB"`

	CacheBackend  string        `mapstructure:"CACHE_BACKEND"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	RedisPrefix   string        `mapstructure:"REDIS_PREFIX"`

	StorageEndpoint    string        `mapstructure:"STORAGE_ENDPOINT"`
	StorageRegion      string        `mapstructure:"STORAGE_REGION"`
	StorageBucket      string        `mapstructure:"STORAGE_BUCKET"`
	StorageAccessKey   string        `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey   string        `mapstructure:"STORAGE_SECRET_KEY"`
	StorageUseSSL      bool          `mapstructure:"STORAGE_USE_SSL"`
	StorageURLExpiry   time.Duration `mapstructure:"STORAGE_URL_EXPIRY"`
	StorageConcurrency int           `mapstructure:"STORAGE_SIGN_CONCURRENCY"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTIssuer string        `mapstructure:"JWT_ISSUER"`
	JWTExpiry time.Duration `mapstructure:"JWT_EXPIRY"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailSender   string `mapstructure:"MAIL_SENDER"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	LimiterEnabled bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	LimiterRPS     float64 `mapstructure:"RATE_LIMIT_RPS"`
	LimiterBurst   int     `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"PORT":             "4000",
	"ENVIRONMENT":      "development",
	"VERSION":          "1.0.0",
	"TRUSTED_ORIGINS":  "",
	"TLS_CERT_FILE":    "",
	"TLS_KEY_FILE":     "",
	"MAX_UPLOAD_BYTES": 5 << 20,

	"DB_DRIVER":         "postgres",
	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "",
	"POSTGRES_PASSWORD": "",
	"POSTGRES_DB":       "",
	"MIGRATIONS_SOURCE": "file://migrations",
	"MONGO_URI":         "mongodb://localhost:27017",
	"MONGO_DB":          "blogshelf",

	"CACHE_BACKEND":  "memory",
	"CACHE_TTL":      10 * time.Minute,
	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"REDIS_PREFIX":   "blogshelf",

	"STORAGE_ENDPOINT":         "localhost:9000",
	"STORAGE_REGION":           "us-east-1",
	"STORAGE_BUCKET":           "",
	"STORAGE_ACCESS_KEY":       "",
	"STORAGE_SECRET_KEY":       "",
	"STORAGE_USE_SSL":          false,
	"STORAGE_URL_EXPIRY":       time.Hour,
	"STORAGE_SIGN_CONCURRENCY": 4,

	"JWT_SECRET": "",
	"JWT_ISSUER": "blogshelf",
	"JWT_EXPIRY": 24 * time.Hour,

	"MAIL_HOST":     "",
	"MAIL_PORT":     25,
	"MAIL_USER":     "",
	"MAIL_PASSWORD": "",
	"MAIL_SENDER":   "Blogshelf <no-reply@blogshelf.local>",

	"RABBITMQ_HOST":     "",
	"RABBITMQ_PORT":     "5672",
	"RABBITMQ_USER":     "guest",
	"RABBITMQ_PASSWORD": "guest",

	"RATE_LIMIT_ENABLED": true,
	"RATE_LIMIT_RPS":     2.0,
	"RATE_LIMIT_BURST":   4,
}

// loadConfig reads the .env style file at path. The file is optional and every value can be
// overridden from the environment.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	config.TrustedOrigins = splitOrigins(config.TrustedOrigins)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func splitOrigins(values []string) []string {
	var origins []string
	for _, v := range values {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return origins
}

func (c *Config) validate() error {
	var errs []error

	switch c.DBDriver {
	case "postgres":
		if c.DBUser == "" || c.DBName == "" {
			errs = append(errs, errors.New("POSTGRES_USER and POSTGRES_DB must be set"))
		}
	case "mongo":
		if c.MongoURI == "" || c.MongoDB == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DB must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or mongo, got %q", c.DBDriver))
	}

	switch c.CacheBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend))
	}

	if c.StorageBucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET must be set"))
	}
	if c.StorageURLExpiry < mediaservice.MinURLExpiry || c.StorageURLExpiry > mediaservice.MaxURLExpiry {
		errs = append(errs, fmt.Errorf("STORAGE_URL_EXPIRY must be between %s and %s", mediaservice.MinURLExpiry, mediaservice.MaxURLExpiry))
	}
	if c.StorageConcurrency < 1 {
		errs = append(errs, errors.New("STORAGE_SIGN_CONCURRENCY must be at least 1"))
	}

	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.LimiterEnabled && (c.LimiterRPS <= 0 || c.LimiterBurst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if c.Environment == "production" && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set in production"))
	}

	return errors.Join(errs...)
}
