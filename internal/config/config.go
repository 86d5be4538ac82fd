package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port      int
	LogLevel  string
	LogFormat string
	APIToken  string

	LLMProvider       string
	GeminiAPIKey      string
	GeminiModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	Temperature       float64
	MaxOutputTokens   int
	RequestsPerMinute int
	RequestsPerDay    int
	HistoryLimit      int
	TurnTimeout       time.Duration
	CatalogPath       string

	SessionBackend string
	RedisURL       string
	SessionTTL     time.Duration

	DatabaseURL string
	NatsURL     string
	NatsToken   string

	SlackBotToken string
	SlackChannel  string
}

// Load reads configuration from the environment. Unset variables fall back to
// defaults; values that cannot be used are reported as an error.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8760)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("llm_provider", "gemini")
	v.SetDefault("gemini_model", "gemini-2.5-flash-lite")
	v.SetDefault("anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("llm_temperature", 0.7)
	v.SetDefault("llm_max_output_tokens", 1024)
	v.SetDefault("llm_requests_per_minute", 10)
	v.SetDefault("llm_requests_per_day", 1000)
	v.SetDefault("history_limit", 20)
	v.SetDefault("turn_timeout", "30s")
	v.SetDefault("session_backend", "memory")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("session_ttl", "24h")

	v.BindEnv("port", "SENTINEL_PORT")
	v.BindEnv("api_token", "SENTINEL_API_TOKEN")
	v.BindEnv("turn_timeout", "SENTINEL_TURN_TIMEOUT")
	v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	v.BindEnv("slack_channel", "SLACK_ESCALATION_CHANNEL")

	c := Config{
		Port:              v.GetInt("port"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
		APIToken:          v.GetString("api_token"),
		LLMProvider:       strings.ToLower(v.GetString("llm_provider")),
		GeminiAPIKey:      v.GetString("gemini_api_key"),
		GeminiModel:       v.GetString("gemini_model"),
		AnthropicAPIKey:   v.GetString("anthropic_api_key"),
		AnthropicModel:    v.GetString("anthropic_model"),
		Temperature:       v.GetFloat64("llm_temperature"),
		MaxOutputTokens:   v.GetInt("llm_max_output_tokens"),
		RequestsPerMinute: v.GetInt("llm_requests_per_minute"),
		RequestsPerDay:    v.GetInt("llm_requests_per_day"),
		HistoryLimit:      v.GetInt("history_limit"),
		TurnTimeout:       v.GetDuration("turn_timeout"),
		CatalogPath:       v.GetString("catalog_path"),
		SessionBackend:    strings.ToLower(v.GetString("session_backend")),
		RedisURL:          v.GetString("redis_url"),
		SessionTTL:        v.GetDuration("session_ttl"),
		DatabaseURL:       v.GetString("database_url"),
		NatsURL:           v.GetString("nats_url"),
		NatsToken:         v.GetString("nats_token"),
		SlackBotToken:     v.GetString("slack_bot_token"),
		SlackChannel:      v.GetString("slack_channel"),
	}

	return c, c.validate()
}

func (c Config) validate() error {
	var errs []error
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY or GOOGLE_API_KEY is required for the gemini provider"))
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.SessionBackend != "memory" && c.SessionBackend != "redis" {
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("SENTINEL_PORT %d out of range", c.Port))
	}
	if c.TurnTimeout <= 0 {
		errs = append(errs, errors.New("SENTINEL_TURN_TIMEOUT must be positive"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE %v out of range [0, 2]", c.Temperature))
	}
	return errors.Join(errs...)
}
