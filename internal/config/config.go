package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	SubmissionLockTTL      time.Duration
	OpenAIAPIKey           string
	OpenAIBaseURL          string
	OpenAIModel            string
	OpenAIMaxTokens        int
	OpenAITemperature      float32
	OpenAIRequestTimeout   time.Duration
	OpenAIMaxRetries       int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	MediaDir               string
	TransformTimeout       time.Duration
	SeedEnabled            bool
	SeedToken              string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ESSAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Essay Eval API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("submission.lock_ttl", "30s")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.request_timeout", "30s")
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("cloudinary.folder", "essay/media")
	v.SetDefault("media.dir", "./media")
	v.SetDefault("media.transform_timeout", "2m")

	lockTTL, err := time.ParseDuration(v.GetString("submission.lock_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid submission lock ttl: %w", err)
	}
	requestTimeout, err := time.ParseDuration(v.GetString("openai.request_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid openai request timeout: %w", err)
	}
	transformTimeout, err := time.ParseDuration(v.GetString("media.transform_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid media transform timeout: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		SubmissionLockTTL:      lockTTL,
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		OpenAIBaseURL:          v.GetString("openai.base_url"),
		OpenAIModel:            v.GetString("openai.model"),
		OpenAIMaxTokens:        v.GetInt("openai.max_tokens"),
		OpenAITemperature:      float32(v.GetFloat64("openai.temperature")),
		OpenAIRequestTimeout:   requestTimeout,
		OpenAIMaxRetries:       v.GetInt("openai.max_retries"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		MediaDir:               v.GetString("media.dir"),
		TransformTimeout:       transformTimeout,
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("openai api key must be provided")
	}

	return cfg, nil
}
