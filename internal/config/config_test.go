package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.NoLocationBackoff)
	assert.Equal(t, 5*time.Second, cfg.DispatchInterval)
	assert.Equal(t, time.Hour, cfg.AlertCooldown)
	assert.Equal(t, 6*time.Hour, cfg.AlertEntryTTL)
	assert.Equal(t, 10*time.Second, cfg.NotificationTimeout)
	assert.Equal(t, 10*time.Second, cfg.AQITimeout)
	assert.Equal(t, 5*time.Second, cfg.GeoTimeout)

	assert.Equal(t, "aqi-app", cfg.GeocodeUserAgent)
	assert.Equal(t, 256, cfg.GeocodeCacheSize)

	assert.Equal(t, StoreCSV, cfg.StoreBackend)
	assert.Equal(t, "aqi_data.csv", cfg.SeriesFile)
	assert.Equal(t, "alerts.csv", cfg.AlertsFile)
	assert.Equal(t, LocationFile, cfg.LocationBackend)
	assert.Equal(t, "location.json", cfg.LocationFile)
	assert.Equal(t, 0, cfg.RedisDB)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "aqi-samples", cfg.KafkaSampleTopic)
	assert.Equal(t, "aqi-alerts", cfg.KafkaAlertTopic)

	assert.Equal(t, NotifierLog, cfg.Notifier)
	assert.Equal(t, "aqi/alerts", cfg.MQTTTopicPrefix)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("ALERT_COOLDOWN", "30m")
	t.Setenv("ALERT_ENTRY_TTL", "2h")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/aqi.db")
	t.Setenv("LOCATION_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("NOTIFIER", "mqtt")
	t.Setenv("MQTT_BROKER", "tcp://mqtt:1883")
	t.Setenv("GEOCODE_CACHE_SIZE", "16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.AlertCooldown)
	assert.Equal(t, 2*time.Hour, cfg.AlertEntryTTL)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/aqi.db", cfg.SQLitePath)
	assert.Equal(t, LocationRedis, cfg.LocationBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, NotifierMQTT, cfg.Notifier)
	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTTBroker)
	assert.Equal(t, 16, cfg.GeocodeCacheSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestLoad_NegativeDispatchInterval(t *testing.T) {
	t.Setenv("DISPATCH_INTERVAL", "-5s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISPATCH_INTERVAL")
}

func TestLoad_TTLMustExceedCooldown(t *testing.T) {
	t.Setenv("ALERT_COOLDOWN", "2h")
	t.Setenv("ALERT_ENTRY_TTL", "2h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_ENTRY_TTL")
}

func TestLoad_UnsupportedStoreBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLoad_UnsupportedNotifier(t *testing.T) {
	t.Setenv("NOTIFIER", "desktop")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFIER")
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoad_InvalidCacheSizeFallsBack(t *testing.T) {
	t.Setenv("GEOCODE_CACHE_SIZE", "zero")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.GeocodeCacheSize)
}
