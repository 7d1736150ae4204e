package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Classifier holds the cascade's runtime settings. Values come from the
// config file (or VNSPEND_ environment variables) with sensible defaults.
type Classifier struct {
	DBPath               string
	FastURL              string
	AnthropicAPIKey      string
	LLMModel             string
	Temperature          float64
	FuzzyThreshold       float64
	ExternalTimeout      time.Duration
	LLMRequestsPerMinute int
	LLMCacheTTL          time.Duration
}

// LoadClassifier assembles the classifier configuration from Viper and
// environment variables. Missing external endpoints are normal: the cascade
// simply runs without those layers.
func LoadClassifier() Classifier {
	cfg := Classifier{
		DBPath:               DefaultDBPath(),
		Temperature:          viper.GetFloat64("calibration.temperature"),
		FuzzyThreshold:       viper.GetFloat64("fuzzy.threshold"),
		FastURL:              viper.GetString("external.fast_url"),
		AnthropicAPIKey:      viper.GetString("external.anthropic_api_key"),
		LLMModel:             viper.GetString("external.llm_model"),
		ExternalTimeout:      viper.GetDuration("external.timeout"),
		LLMRequestsPerMinute: viper.GetInt("external.llm_requests_per_minute"),
		LLMCacheTTL:          viper.GetDuration("external.llm_cache_ttl"),
	}

	if v := viper.GetString("database.path"); v != "" {
		cfg.DBPath = ExpandPath(v)
	}
	if cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return cfg
}
