package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":55555", cfg.Port)
	assert.Empty(t, cfg.WSPort, "bridge should be disabled by default")
	assert.Positive(t, cfg.MaxMessageSize)
	assert.Positive(t, cfg.SendQueueSize)
	assert.Positive(t, cfg.RateLimit.Burst)
}

func TestSanitizeRepairsInvalidValues(t *testing.T) {
	cfg := Config{
		Port:           "",
		MaxMessageSize: -1,
		SendQueueSize:  0,
		WriteTimeout:   -time.Second,
		RateLimit:      RateLimitConfig{Burst: 0, RefillInterval: 0},
	}.Sanitize()

	def := DefaultConfig()
	assert.Equal(t, def.Port, cfg.Port)
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.SendQueueSize, cfg.SendQueueSize)
	assert.Equal(t, def.WriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
}

func TestSanitizePortForms(t *testing.T) {
	tests := []struct {
		name string
		port string
		want string
	}{
		{name: "bare port gains colon", port: "9000", want: ":9000"},
		{name: "colon port kept", port: ":9000", want: ":9000"},
		{name: "host and port kept", port: "127.0.0.1:9000", want: "127.0.0.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Port: tt.port}.Sanitize()
			assert.Equal(t, tt.want, cfg.Port)
		})
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CHAT_PORT", "6000")
	t.Setenv("CHAT_WS_PORT", "6001")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example.com, http://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":6000", cfg.Port)
	assert.Equal(t, ":6001", cfg.WSPort)
	assert.Equal(t, []string{"http://a.example.com", "http://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
}

func TestNewConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-5")

	cfg := NewConfigFromEnv()

	def := DefaultConfig()
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.RateLimit.Burst, cfg.RateLimit.Burst)
}
