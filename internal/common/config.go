package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort            int
	MetricsPort         int
	DBPath              string
	SiteBase            string
	SchedulerInterval   time.Duration
	KafkaBrokers        []string
	CampaignEventsTopic string
	OTLPEndpoint        string
	ServiceName         string
}

func LoadConfig(service string) (*Config, error) {
	// Local development convenience; absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{ServiceName: service}

	httpPort, err := getEnvInt("HTTP_PORT", 8000)
	if err != nil {
		return nil, err
	}
	cfg.HTTPPort = httpPort

	metricsPort, err := getEnvInt("METRICS_PORT", httpPort+1000)
	if err != nil {
		return nil, err
	}
	cfg.MetricsPort = metricsPort

	interval, err := getEnvDuration("SCHEDULER_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.SchedulerInterval = interval

	cfg.DBPath = getEnv("DB_PATH", "dpd_marketing.db")
	cfg.SiteBase = strings.TrimRight(getEnv("SITE_BASE", "http://localhost:8000"), "/")
	cfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.CampaignEventsTopic = getEnv("CAMPAIGN_EVENTS_TOPIC", "campaign.events")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}
