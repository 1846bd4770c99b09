package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Store and location backends.
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"

	LocationFile  = "file"
	LocationRedis = "redis"

	NotifierLog  = "log"
	NotifierMQTT = "mqtt"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Sampling and dispatch policy.
	PollInterval        time.Duration
	NoLocationBackoff   time.Duration
	DispatchInterval    time.Duration
	AlertCooldown       time.Duration
	AlertEntryTTL       time.Duration
	NotificationTimeout time.Duration

	// External providers.
	AQIBaseURL       string
	AQITimeout       time.Duration
	IPInfoURL        string
	NominatimURL     string
	GeoTimeout       time.Duration
	GeocodeUserAgent string
	GeocodeCacheSize int

	// Persistence.
	StoreBackend    string
	SeriesFile      string
	AlertsFile      string
	SQLitePath      string
	LocationBackend string
	LocationFile    string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisKey        string

	// Kafka event mirror.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSampleTopic string
	KafkaAlertTopic  string

	// Notification transport.
	Notifier        string
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		AQIBaseURL:       sharedcfg.EnvOrDefault("AQI_BASE_URL", "https://air-quality-api.open-meteo.com/v1/air-quality"),
		IPInfoURL:        sharedcfg.EnvOrDefault("IPINFO_URL", "https://ipinfo.io/json"),
		NominatimURL:     sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org/reverse"),
		GeocodeUserAgent: sharedcfg.EnvOrDefault("GEOCODE_USER_AGENT", "aqi-app"),
		GeocodeCacheSize: parsePositiveInt("GEOCODE_CACHE_SIZE", 256),

		StoreBackend:    sharedcfg.EnvOrDefault("STORE_BACKEND", StoreCSV),
		SeriesFile:      sharedcfg.EnvOrDefault("SERIES_FILE", "aqi_data.csv"),
		AlertsFile:      sharedcfg.EnvOrDefault("ALERTS_FILE", "alerts.csv"),
		SQLitePath:      sharedcfg.EnvOrDefault("SQLITE_PATH", "data/aqi.db"),
		LocationBackend: sharedcfg.EnvOrDefault("LOCATION_BACKEND", LocationFile),
		LocationFile:    sharedcfg.EnvOrDefault("LOCATION_FILE", "location.json"),
		RedisAddr:       sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisKey:        sharedcfg.EnvOrDefault("REDIS_LOCATION_KEY", "aqi:location"),

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSampleTopic: sharedcfg.EnvOrDefault("KAFKA_SAMPLE_TOPIC", "aqi-samples"),
		KafkaAlertTopic:  sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "aqi-alerts"),

		Notifier:        sharedcfg.EnvOrDefault("NOTIFIER", NotifierLog),
		MQTTBroker:      sharedcfg.EnvOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:    sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "aqi-monitor"),
		MQTTTopicPrefix: sharedcfg.EnvOrDefault("MQTT_TOPIC_PREFIX", "aqi/alerts"),
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"POLL_INTERVAL", "60s", &cfg.PollInterval},
		{"NO_LOCATION_BACKOFF", "5s", &cfg.NoLocationBackoff},
		{"DISPATCH_INTERVAL", "5s", &cfg.DispatchInterval},
		{"ALERT_COOLDOWN", "1h", &cfg.AlertCooldown},
		{"ALERT_ENTRY_TTL", "6h", &cfg.AlertEntryTTL},
		{"NOTIFICATION_TIMEOUT", "10s", &cfg.NotificationTimeout},
		{"AQI_TIMEOUT", "10s", &cfg.AQITimeout},
		{"GEO_TIMEOUT", "5s", &cfg.GeoTimeout},
	}
	for _, d := range durations {
		v, err := parsePositiveDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}
	cfg.RedisDB = redisDB

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AlertEntryTTL <= c.AlertCooldown {
		return errors.New("ALERT_ENTRY_TTL must exceed ALERT_COOLDOWN")
	}
	switch c.StoreBackend {
	case StoreCSV, StoreSQLite:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LocationBackend {
	case LocationFile, LocationRedis:
	default:
		return fmt.Errorf("unsupported LOCATION_BACKEND %q", c.LocationBackend)
	}
	switch c.Notifier {
	case NotifierLog, NotifierMQTT:
	default:
		return fmt.Errorf("unsupported NOTIFIER %q", c.Notifier)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
