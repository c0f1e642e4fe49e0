package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	JWTSecret         string
	AIProvider        string
	OpenAIAPIKey      string
	OpenAIModel       string
	AnthropicAPIKey   string
	ModelTemperature  float32
	ModelTopP         float32
	ModelMaxTokens    int
	BonusThreshold    int
	BonusPoints       int
	ScoreCap          int
	BatchSize         int
	PromptCharLimit   int
	ReviewPageSize    int
	StatusCacheTTL    time.Duration
	EventsSubjectBase string
	AdminRateLimit    int
	AdminRateWindow   time.Duration
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
	v.SetEnvPrefix("BILIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Bilim Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.top_p", 0.9)
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("grading.bonus_threshold", 70)
	v.SetDefault("grading.bonus_points", 5)
	v.SetDefault("grading.score_cap", 100)
	v.SetDefault("grading.batch_size", 3)
	v.SetDefault("grading.prompt_char_limit", 15000)
	v.SetDefault("grading.review_page_size", 50)
	v.SetDefault("grading.status_cache_ttl", "30s")
	v.SetDefault("events.subject_base", "grading.submission")
	v.SetDefault("admin.rate_limit", 60)
	v.SetDefault("admin.rate_window", "1m")

	window, err := time.ParseDuration(v.GetString("admin.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid admin rate window: %w", err)
	}

	ttlString := v.GetString("grading.status_cache_ttl")
	if ttlString == "" {
		ttlString = "30s"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid status cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		AIProvider:        strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OpenAIModel:       v.GetString("ai.model"),
		AnthropicAPIKey:   v.GetString("anthropic_api_key"),
		ModelTemperature:  float32(v.GetFloat64("ai.temperature")),
		ModelTopP:         float32(v.GetFloat64("ai.top_p")),
		ModelMaxTokens:    v.GetInt("ai.max_tokens"),
		BonusThreshold:    v.GetInt("grading.bonus_threshold"),
		BonusPoints:       v.GetInt("grading.bonus_points"),
		ScoreCap:          v.GetInt("grading.score_cap"),
		BatchSize:         v.GetInt("grading.batch_size"),
		PromptCharLimit:   v.GetInt("grading.prompt_char_limit"),
		ReviewPageSize:    v.GetInt("grading.review_page_size"),
		StatusCacheTTL:    ttl,
		EventsSubjectBase: v.GetString("events.subject_base"),
		AdminRateLimit:    v.GetInt("admin.rate_limit"),
		AdminRateWindow:   window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}

	if cfg.ReviewPageSize <= 0 {
		cfg.ReviewPageSize = 50
	}

	return cfg, nil
}
