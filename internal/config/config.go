package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// Sync engine knobs
	HealthCheckInterval   time.Duration // how often the monitor probes every system
	ProbeTimeout          time.Duration // per-probe deadline; a hung probe is recorded as unhealthy
	ResponseTimeThreshold time.Duration // slower probes raise a warning alert
	AlertRetentionDays    int
	MappingRetentionDays  int // default age threshold for cleanup of inactive mappings
	WebhookBulkMax        int // max events accepted in one bulk webhook request
	ErrorRateCritical     float64
	ConflictRateWarning   float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-venue"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-venue"),

		HealthCheckInterval:   getDurationEnv("HEALTH_CHECK_INTERVAL", 5*time.Minute),
		ProbeTimeout:          getDurationEnv("PROBE_TIMEOUT", 10*time.Second),
		ResponseTimeThreshold: getDurationEnv("RESPONSE_TIME_THRESHOLD", 2*time.Second),
		AlertRetentionDays:    getIntEnv("ALERT_RETENTION_DAYS", 7),
		MappingRetentionDays:  getIntEnv("MAPPING_RETENTION_DAYS", 90),
		WebhookBulkMax:        getIntEnv("WEBHOOK_BULK_MAX", 100),
		ErrorRateCritical:     getFloatEnv("ERROR_RATE_CRITICAL", 0.10),
		ConflictRateWarning:   getFloatEnv("CONFLICT_RATE_WARNING", 0.05),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
