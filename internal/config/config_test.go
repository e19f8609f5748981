package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092 , ,b:9092"))
}

func TestFromViper_Defaults(t *testing.T) {
	v := newViper()
	cfg := FromViper(v)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, "/catalogo", cfg.ImageKitFolder)
	assert.Equal(t, "order_events", cfg.OrderEventsTopic)
	assert.True(t, cfg.CookieSecure)
}

func TestFromViper_Overrides(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("SERVER_PORT", 9090)
	v.Set("KAFKA_BROKERS", "k1:9092,k2:9092")
	v.Set("JWT_SECRET", "s3cret")
	v.Set("ACCESS_TTL", "5m")

	cfg := FromViper(v)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []byte("s3cret"), cfg.JWTAccessSecret)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
}
