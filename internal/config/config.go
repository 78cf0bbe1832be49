package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Source describes one spreadsheet endpoint.
type Source struct {
	URL   string
	Token string
}

// Configured reports whether the source can be fetched at all.
func (s Source) Configured() bool {
	return s.URL != ""
}

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	RedisAddr             string
	GRPCPort              int
	GRPCReflectionEnabled bool
	MetricsAddr           string

	Operational       Source
	Survey            Source
	SourceTokenHeader string
	HTTPTimeout       time.Duration
	SnapshotTTL       time.Duration
	ViewCacheTTL      time.Duration

	SurveyRatingHeader   string
	SurveyRatingFallback string
	SurveyTopLabel       string
	SurveySecondLabel    string
	ScoreStrategy        string

	DefaultTimeBase  string
	DefaultAggregate string
	Timezone         string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		MetricsAddr:           os.Getenv("METRICS_ADDR"),

		Operational: Source{
			URL:   os.Getenv("OPERATIONAL_URL"),
			Token: os.Getenv("OPERATIONAL_TOKEN"),
		},
		Survey: Source{
			URL:   os.Getenv("SURVEY_URL"),
			Token: os.Getenv("SURVEY_TOKEN"),
		},
		SourceTokenHeader: getEnv("SOURCE_TOKEN_HEADER", "X-Access-Token"),
		HTTPTimeout:       getDuration("HTTP_TIMEOUT", 30*time.Second),
		SnapshotTTL:       getDuration("SNAPSHOT_TTL", 10*time.Minute),
		ViewCacheTTL:      getDuration("VIEW_CACHE_TTL", time.Minute),

		SurveyRatingHeader:   getEnv("SURVEY_RATING_HEADER", "Como você avalia a qualidade do atendimento recebido?"),
		SurveyRatingFallback: getEnv("SURVEY_RATING_FALLBACK", "qualidade do atendimento"),
		SurveyTopLabel:       getEnv("SURVEY_TOP_LABEL", "Ótimo"),
		SurveySecondLabel:    getEnv("SURVEY_SECOND_LABEL", "Bom"),
		ScoreStrategy:        getEnv("SCORE_STRATEGY", "first_digit"),

		DefaultTimeBase:  getEnv("KPI_TIME_BASE", "created"),
		DefaultAggregate: getEnv("KPI_AGGREGATE", "mean"),
		Timezone:         getEnv("KPI_TIMEZONE", "UTC"),
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
