package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Vendor   VendorConfig   `mapstructure:"vendor"`
	Campaign CampaignConfig `mapstructure:"campaign"`
	Storage  string         `mapstructure:"storage"`
	LogLevel string         `mapstructure:"loglevel"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowedorigins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connecttimeout"`
}

// RedisConfig holds Redis-specific configuration. An empty URL disables Redis.
type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	LockTTL        time.Duration `mapstructure:"lockttl"`
	SendRateLimit  int           `mapstructure:"sendratelimit"`
	SendRateWindow time.Duration `mapstructure:"sendratewindow"`
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	ExpiresIn int    `mapstructure:"expiresin"`
}

// VendorConfig holds delivery vendor configuration.
// Mode is one of "simulated", "http" or "mock".
type VendorConfig struct {
	Mode               string        `mapstructure:"mode"`
	BaseURL            string        `mapstructure:"baseurl"`
	APIKey             string        `mapstructure:"apikey"`
	CallTimeout        time.Duration `mapstructure:"calltimeout"`
	MinDelay           time.Duration `mapstructure:"mindelay"`
	MaxDelay           time.Duration `mapstructure:"maxdelay"`
	SuccessProbability float64       `mapstructure:"successprobability"`
}

// CampaignConfig holds campaign dispatch configuration
type CampaignConfig struct {
	BatchSize          int           `mapstructure:"batchsize"`
	SuccessProbability float64       `mapstructure:"successprobability"`
	EngagementDelay    time.Duration `mapstructure:"engagementdelay"`
	OpenRate           float64       `mapstructure:"openrate"`
	ClickRate          float64       `mapstructure:"clickrate"`
}

// LoadConfig loads configuration from an optional .env file, an optional
// config.yaml under path and environment variables such as MONGODB_URI.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdowntimeout", 15*time.Second)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "minicrm")
	v.SetDefault("mongodb.connecttimeout", 10*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.lockttl", 5*time.Minute)
	v.SetDefault("redis.sendratelimit", 5)
	v.SetDefault("redis.sendratewindow", time.Minute)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiresin", 24*60*60) // 24 hours
	v.SetDefault("vendor.mode", "simulated")
	v.SetDefault("vendor.baseurl", "")
	v.SetDefault("vendor.apikey", "")
	v.SetDefault("vendor.calltimeout", 10*time.Second)
	v.SetDefault("vendor.mindelay", 500*time.Millisecond)
	v.SetDefault("vendor.maxdelay", 2*time.Second)
	v.SetDefault("vendor.successprobability", 0.95)
	v.SetDefault("campaign.batchsize", 10)
	v.SetDefault("campaign.successprobability", 0.9)
	v.SetDefault("campaign.engagementdelay", time.Minute)
	v.SetDefault("campaign.openrate", 0.8)
	v.SetDefault("campaign.clickrate", 0.4)
	v.SetDefault("storage", StorageMongoDB)
	v.SetDefault("loglevel", "info")
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch {
	case c.Campaign.BatchSize <= 0:
		return fmt.Errorf("campaign.batchsize must be positive, got %d", c.Campaign.BatchSize)
	case !isProbability(c.Campaign.SuccessProbability):
		return fmt.Errorf("campaign.successprobability must be within [0,1], got %v", c.Campaign.SuccessProbability)
	case !isProbability(c.Vendor.SuccessProbability):
		return fmt.Errorf("vendor.successprobability must be within [0,1], got %v", c.Vendor.SuccessProbability)
	case !isProbability(c.Campaign.OpenRate) || !isProbability(c.Campaign.ClickRate):
		return errors.New("campaign.openrate and campaign.clickrate must be within [0,1]")
	case c.Vendor.MaxDelay < c.Vendor.MinDelay:
		return errors.New("vendor.maxdelay must not be below vendor.mindelay")
	case c.Vendor.CallTimeout <= 0:
		return errors.New("vendor.calltimeout must be positive")
	case c.Vendor.Mode == "http" && c.Vendor.BaseURL == "":
		return errors.New("vendor.baseurl is required when vendor.mode is http")
	case c.Vendor.Mode == "http" && c.Vendor.APIKey == "":
		return errors.New("vendor.apikey is required when vendor.mode is http")
	case c.JWT.Secret == "":
		return errors.New("jwt.secret is required")
	case c.Storage != StorageMongoDB && c.Storage != StorageMemory:
		return fmt.Errorf("storage must be %q or %q, got %q", StorageMongoDB, StorageMemory, c.Storage)
	}
	return nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
