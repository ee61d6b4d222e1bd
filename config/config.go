package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config is the read-only configuration consumed by the core. Business
// limits are validation input only; editing them is out of scope here.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type StorageConfig struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	CDNBaseURL      string `mapstructure:"cdn_base_url"`
}

type BusinessConfig struct {
	MinDeposit          int64 `mapstructure:"min_deposit"`
	MinWithdrawal       int64 `mapstructure:"min_withdrawal"`
	EarnPerAd           int64 `mapstructure:"earn_per_ad"`
	MaxEarnAdsPerDay    int   `mapstructure:"max_earn_ads_per_day"`
	MaxFreeMatchesPerDay int  `mapstructure:"max_free_matches_per_day"`
	LedgerMaxAttempts   int   `mapstructure:"ledger_max_attempts"`
	AttemptTTLMinutes   int   `mapstructure:"attempt_ttl_minutes"`
}

func setDefaults() {
	viper.SetDefault("server.port", 5300)
	viper.SetDefault("server.allowed_origins", "http://localhost:3000")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topic", "arena.ledger.events")
	viper.SetDefault("business.min_deposit", 50)
	viper.SetDefault("business.min_withdrawal", 100)
	viper.SetDefault("business.earn_per_ad", 5)
	viper.SetDefault("business.max_earn_ads_per_day", 10)
	viper.SetDefault("business.max_free_matches_per_day", 5)
	viper.SetDefault("business.ledger_max_attempts", 5)
	viper.SetDefault("business.attempt_ttl_minutes", 30)
}

// Load reads the yaml config at path (optional) with ARENA_-prefixed
// environment overrides, e.g. ARENA_DATABASE_DSN.
func Load(path string) *Config {
	viper.Reset()
	setDefaults()

	viper.SetEnvPrefix("ARENA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("failed to read config file %s: %v", path, err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("failed to parse configuration: %v", err)
	}
	return cfg
}
