package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	milesPerKilometer = 0.621371
	metersPerMile     = 1609.344
)

type ClaimsServiceConfig struct {
	Port         string
	APIKey       string
	NodeID       int64
	LogFile      string
	PostgresCfg  PostgresConfig
	RabbitMQCfg  RabbitMQConfig
	RedisCfg     RedisConfig
	MinioCfg     MinioConfig
	GeminiAPICfg GeminiAPIConfig
	PipelineCfg  PipelineConfig
	EventSinkCfg EventSinkConfig
	PaymentCfg   PaymentRailConfig
	MonitorCfg   MonitorConfig
}

type MinioConfig struct {
	Enabled          bool
	MinioURL         string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioLocation    string
	MinioSecure      string
	MinioResourceURL string
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type GeminiAPIConfig struct {
	APIKeys           []string
	ModelName         string
	RequestsPerSecond float64
}

// PipelineConfig holds the decision thresholds of the claims pipeline.
type PipelineConfig struct {
	MatchRadiusMiles        float64
	WindSevereMPH           float64
	WindExtremeMPH          float64
	PrecipExtremeInches     float64
	ApprovalThreshold       float64
	DurationCeiling         time.Duration
	WeatherWindow           time.Duration
	CoverPlannedMaintenance bool
	Workers                 int
	WeatherTimeout          time.Duration
	ScorerTimeout           time.Duration
	PaymentTimeout          time.Duration
	Scorer                  string // rules | gemini
}

// MatchRadiusMeters is the match radius in the unit orb/geo works in.
func (p PipelineConfig) MatchRadiusMeters() float64 {
	return p.MatchRadiusMiles * metersPerMile
}

type EventSinkConfig struct {
	Type      string // http | amqp | none
	URL       string
	Key       string
	KeyHeader string
	Timeout   time.Duration
	Exchange  string
}

type PaymentRailConfig struct {
	Mode string // simulated | amqp | none
}

type MonitorConfig struct {
	Schedule  string
	Lookback  time.Duration
	Workers   int
	QueueSize int
}

func New() *ClaimsServiceConfig {
	return &ClaimsServiceConfig{
		Port:    getEnvOrDefault("PORT", "8083"),
		APIKey:  getEnvOrDefault("API_KEY", ""),
		NodeID:  int64(getEnvInt("NODE_ID", 1)),
		LogFile: getEnvOrDefault("LOG_FILE", ""),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "claims"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Enabled:  getEnvBool("RABBITMQ_ENABLED", false),
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_WEATHER_TTL", 30*time.Minute),
		},
		MinioCfg: MinioConfig{
			Enabled:          getEnvBool("MINIO_ENABLED", false),
			MinioURL:         getEnvOrDefault("MINIO_ENDPOINT", "localhost:9407"),
			MinioAccessKey:   getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey:   getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:    getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:      getEnvOrDefault("MINIO_SECURE", "false"),
			MinioResourceURL: getEnvOrDefault("MINIO_RESOURCE_URL", "http://localhost:9407/"),
		},
		GeminiAPICfg: GeminiAPIConfig{
			APIKeys:           splitList(getEnvOrDefault("GEMINI_API_KEYS", getEnvOrDefault("GEMINI_KEY", ""))),
			ModelName:         getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			RequestsPerSecond: getEnvFloat("GEMINI_RPS", 2),
		},
		PipelineCfg: PipelineConfig{
			MatchRadiusMiles:        radiusInMiles(getEnvFloat("MATCH_RADIUS", 10), getEnvOrDefault("MATCH_RADIUS_UNIT", "mi")),
			WindSevereMPH:           getEnvFloat("WIND_SEVERE_MPH", 40),
			WindExtremeMPH:          getEnvFloat("WIND_EXTREME_MPH", 60),
			PrecipExtremeInches:     getEnvFloat("PRECIP_EXTREME_INCHES", 2.0),
			ApprovalThreshold:       getEnvFloat("APPROVAL_THRESHOLD", 0.60),
			DurationCeiling:         getEnvDuration("DURATION_CEILING", 30*24*time.Hour),
			WeatherWindow:           getEnvDuration("WEATHER_WINDOW", 6*time.Hour),
			CoverPlannedMaintenance: getEnvBool("COVER_PLANNED_MAINTENANCE", false),
			Workers:                 getEnvInt("PIPELINE_WORKERS", 8),
			WeatherTimeout:          getEnvDuration("WEATHER_TIMEOUT", 3*time.Second),
			ScorerTimeout:           getEnvDuration("SCORER_TIMEOUT", 10*time.Second),
			PaymentTimeout:          getEnvDuration("PAYMENT_TIMEOUT", 15*time.Second),
			Scorer:                  getEnvOrDefault("SCORER", "rules"),
		},
		EventSinkCfg: EventSinkConfig{
			Type:      getEnvOrDefault("EVENT_SINK_TYPE", "none"),
			URL:       getEnvOrDefault("EVENT_SINK_URL", ""),
			Key:       getEnvOrDefault("EVENT_SINK_KEY", ""),
			KeyHeader: getEnvOrDefault("EVENT_SINK_KEY_HEADER", "aeg-sas-key"),
			Timeout:   getEnvDuration("EVENT_SINK_TIMEOUT", 15*time.Second),
			Exchange:  getEnvOrDefault("EVENT_SINK_EXCHANGE", "claims.events"),
		},
		PaymentCfg: PaymentRailConfig{
			Mode: getEnvOrDefault("PAYMENT_RAIL", "simulated"),
		},
		MonitorCfg: MonitorConfig{
			Schedule:  getEnvOrDefault("MONITOR_SCHEDULE", "@every 5m"),
			Lookback:  getEnvDuration("MONITOR_LOOKBACK", 72*time.Hour),
			Workers:   getEnvInt("MONITOR_WORKERS", 2),
			QueueSize: getEnvInt("MONITOR_QUEUE_SIZE", 100),
		},
	}
}

// DefaultPipelineConfig returns the pipeline thresholds without reading the environment.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MatchRadiusMiles:    10,
		WindSevereMPH:       40,
		WindExtremeMPH:      60,
		PrecipExtremeInches: 2.0,
		ApprovalThreshold:   0.60,
		DurationCeiling:     30 * 24 * time.Hour,
		WeatherWindow:       6 * time.Hour,
		Workers:             8,
		WeatherTimeout:      3 * time.Second,
		ScorerTimeout:       10 * time.Second,
		PaymentTimeout:      15 * time.Second,
		Scorer:              "rules",
	}
}

func radiusInMiles(value float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "km", "kilometers":
		return value * milesPerKilometer
	case "mi", "miles", "":
		return value
	default:
		slog.Warn("Unknown match radius unit, assuming miles", "unit", unit)
		return value
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Invalid number in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
