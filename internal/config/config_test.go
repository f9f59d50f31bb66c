package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "DB_DRIVER", "ORDER_HOLD_WINDOW", "SWEEP_INTERVAL", "KAFKA_BROKERS", "WALLET_CURRENCY"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 10*time.Minute, cfg.OrderHoldWindow)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, "VND", cfg.WalletCurrency)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ORDER_HOLD_WINDOW", "15m")
	t.Setenv("SWEEP_BATCH_SIZE", "25")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("IS_PROD", "true")

	cfg := LoadConfig()

	assert.Equal(t, 15*time.Minute, cfg.OrderHoldWindow)
	assert.Equal(t, 25, cfg.SweepBatchSize)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.IsProd)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBDriver: "mysql", DBUser: "app", DBPassword: "secret", DBHost: "db", DBPort: "3306", DBName: "tickets"}
	assert.Equal(t, "app:secret@tcp(db:3306)/tickets?parseTime=true&loc=UTC", cfg.DSN())

	cfg.DBDriver = "postgres"
	cfg.DBPort = "5432"
	cfg.DBSSLMode = "disable"
	assert.Equal(t, "host=db user=app password=secret dbname=tickets port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
