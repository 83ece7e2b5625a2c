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
	AppName               string
	AppEnv                string
	AppPort               string
	DatabaseDriver        string
	DatabaseURL           string
	RedisURL              string
	NATSURL               string
	ChannelBase           string
	JWTSecret             string
	DraftTTL              time.Duration
	LegacyAssessmentURL   string
	LegacyAssessmentVerb  string
	LegacyDispatchTimeout time.Duration
	SubmitRateLimit       int
	SubmitRateWindow      time.Duration
	MaxImportBytes        int
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
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Rubric API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("channel.base", "gema:rubrics")
	v.SetDefault("assessment.draft_ttl", "2h")
	v.SetDefault("legacy.assessment_verb", "PUT")
	v.SetDefault("legacy.dispatch_timeout", "10s")
	v.SetDefault("submit.rate_limit", 20)
	v.SetDefault("submit.rate_window", "1m")
	v.SetDefault("import.max_bytes", 1<<20)

	draftTTL, err := parseDuration(v, "assessment.draft_ttl", "2h")
	if err != nil {
		return Config{}, fmt.Errorf("invalid assessment draft ttl: %w", err)
	}

	dispatchTimeout, err := parseDuration(v, "legacy.dispatch_timeout", "10s")
	if err != nil {
		return Config{}, fmt.Errorf("invalid legacy dispatch timeout: %w", err)
	}

	rateWindow, err := parseDuration(v, "submit.rate_window", "1m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate window: %w", err)
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseDriver:        strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		ChannelBase:           v.GetString("channel.base"),
		JWTSecret:             v.GetString("jwt.secret"),
		DraftTTL:              draftTTL,
		LegacyAssessmentURL:   strings.TrimSpace(v.GetString("legacy.assessment_url")),
		LegacyAssessmentVerb:  strings.ToUpper(v.GetString("legacy.assessment_verb")),
		LegacyDispatchTimeout: dispatchTimeout,
		SubmitRateLimit:       v.GetInt("submit.rate_limit"),
		SubmitRateWindow:      rateWindow,
		MaxImportBytes:        v.GetInt("import.max_bytes"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.LegacyAssessmentVerb {
	case "PUT", "POST":
	default:
		return Config{}, fmt.Errorf("legacy assessment verb must be PUT or POST, got %q", cfg.LegacyAssessmentVerb)
	}

	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 20
	}

	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = 1 << 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		raw = fallback
	}
	return time.ParseDuration(raw)
}
