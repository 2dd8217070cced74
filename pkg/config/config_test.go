package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, int64(5*1024*1024), cfg.Documents.MaxFileSizeBytes)
	assert.Equal(t, []string{"application/pdf", "image/jpeg", "image/png"}, cfg.Documents.AllowedMIMEs)
	assert.Equal(t, 720*time.Hour, cfg.Notifications.TTL)
	assert.False(t, cfg.Notifications.Async)
	assert.True(t, cfg.Timeline.ExportEnabled)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("DOCUMENTS_MAX_FILE_SIZE", 0)
	v.Set("NOTIFICATION_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg := fromViper(v)

	assert.Equal(t, int64(5*1024*1024), cfg.Documents.MaxFileSizeBytes)
	assert.Equal(t, 30*24*time.Hour, cfg.Notifications.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
