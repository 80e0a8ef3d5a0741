package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nijaru/yt-transcript/transcript"
)

type Config struct {
	DBPath            string        `yaml:"db_path"`
	ServerPort        string        `yaml:"server_port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	RateLimit         int           `yaml:"rate_limit"`
	RateLimitInterval time.Duration `yaml:"rate_limit_interval"`

	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"`

	ClientVersion    string   `yaml:"client_version"`
	DefaultLanguages []string `yaml:"default_languages"`

	Proxy   ProxyConfig   `yaml:"proxy"`
	Storage StorageConfig `yaml:"storage"`
}

type ProxyConfig struct {
	HTTPURL           string   `yaml:"http_url"`
	HTTPSURL          string   `yaml:"https_url"`
	WebshareUsername  string   `yaml:"webshare_username"`
	WebsharePassword  string   `yaml:"webshare_password"`
	WebshareLocations []string `yaml:"webshare_locations"`
	WebshareRetries   int      `yaml:"webshare_retries"`
}

// StorageConfig points at an S3 compatible bucket. Export is disabled while
// Bucket is empty.
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

func defaults() *Config {
	return &Config{
		DBPath:            "./data/transcripts.db",
		ServerPort:        "8080",
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		RequestTimeout:    2 * time.Minute,
		HTTPTimeout:       30 * time.Second,
		RateLimit:         5,
		RateLimitInterval: 1 * time.Second,
		LogDir:            "./logs",
		LogLevel:          "info",
		ClientVersion:     transcript.DefaultClientVersion,
		DefaultLanguages:  []string{"en"},
		Proxy:             ProxyConfig{WebshareRetries: 10},
		Storage:           StorageConfig{Region: "us-east-1"},
	}
}

// LoadConfig starts from the defaults, applies the YAML file named by
// CONFIG_FILE if set, and lets environment variables override both.
func LoadConfig() (*Config, error) {
	cfg := defaults()
	if path := GetEnv("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.DBPath = GetEnv("DB_PATH", cfg.DBPath)
	cfg.ServerPort = GetEnv("SERVER_PORT", cfg.ServerPort)
	cfg.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.HTTPTimeout = getEnvAsDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.RateLimit = getEnvAsInt("RATE_LIMIT", cfg.RateLimit)
	cfg.RateLimitInterval = getEnvAsDuration("RATE_LIMIT_INTERVAL", cfg.RateLimitInterval)
	cfg.LogDir = GetEnv("LOG_DIR", cfg.LogDir)
	cfg.LogLevel = GetEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ClientVersion = GetEnv("CLIENT_VERSION", cfg.ClientVersion)
	cfg.DefaultLanguages = getEnvAsList("DEFAULT_LANGUAGES", cfg.DefaultLanguages)

	cfg.Proxy.HTTPURL = GetEnv("HTTP_PROXY_URL", cfg.Proxy.HTTPURL)
	cfg.Proxy.HTTPSURL = GetEnv("HTTPS_PROXY_URL", cfg.Proxy.HTTPSURL)
	cfg.Proxy.WebshareUsername = GetEnv("WEBSHARE_PROXY_USERNAME", cfg.Proxy.WebshareUsername)
	cfg.Proxy.WebsharePassword = GetEnv("WEBSHARE_PROXY_PASSWORD", cfg.Proxy.WebsharePassword)
	cfg.Proxy.WebshareLocations = getEnvAsList("WEBSHARE_PROXY_LOCATIONS", cfg.Proxy.WebshareLocations)
	cfg.Proxy.WebshareRetries = getEnvAsInt("WEBSHARE_PROXY_RETRIES", cfg.Proxy.WebshareRetries)

	cfg.Storage.Bucket = GetEnv("SPACES_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.Region = GetEnv("SPACES_REGION", cfg.Storage.Region)
	cfg.Storage.Endpoint = GetEnv("SPACES_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = GetEnv("SPACES_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = GetEnv("SPACES_SECRET_KEY", cfg.Storage.SecretKey)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// TranscriptProxy builds the proxy config the transcript client should use,
// or nil when no proxy is configured. Webshare wins over generic URLs.
func (c *Config) TranscriptProxy() (transcript.ProxyConfig, error) {
	p := c.Proxy
	if p.WebshareUsername != "" {
		pc := transcript.NewWebshareProxyConfig(p.WebshareUsername, p.WebsharePassword)
		pc.FilterIPLocations = p.WebshareLocations
		pc.Retries = p.WebshareRetries
		return pc, nil
	}
	if p.HTTPURL != "" || p.HTTPSURL != "" {
		pc, err := transcript.NewGenericProxyConfig(p.HTTPURL, p.HTTPSURL)
		if err != nil {
			return nil, err
		}
		return pc, nil
	}
	return nil, nil
}

func ValidateConfig(cfg *Config) error {
	if cfg.ServerPort == "" {
		return errors.New("server port is required")
	}
	if cfg.DBPath == "" {
		return errors.New("database path is required")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.New("http timeout must be greater than 0")
	}
	if cfg.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if cfg.WriteTimeout < cfg.RequestTimeout {
		return errors.New("write timeout must not be shorter than the request timeout")
	}
	if cfg.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if cfg.RateLimit <= 0 {
		return errors.New("rate limit must be greater than 0")
	}
	if cfg.ClientVersion == "" {
		return errors.New("client version is required")
	}
	if len(cfg.DefaultLanguages) == 0 {
		return errors.New("at least one default language is required")
	}
	if cfg.Proxy.WebshareUsername != "" && cfg.Proxy.WebsharePassword == "" {
		return errors.New("webshare proxy password is required when a username is set")
	}
	if cfg.Storage.Bucket != "" && cfg.Storage.Endpoint == "" {
		return errors.New("storage endpoint is required when a bucket is set")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	return nil
}
