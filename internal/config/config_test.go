package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	// Empty variables count as unset
	for _, key := range []string{"REDIS_HOST", "REDIS_PORT", "BROADCAST_CHANNEL", "TASK_STATUSES"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, "taskflow:invalidate", cfg.BroadcastChannel)
	assert.Empty(t, cfg.ExtraTaskStatuses)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("TASK_STATUSES", "on_hold, review,,")
	t.Setenv("DEBUG", "true")

	cfg := Load()

	assert.Equal(t, "cache.internal:6379", cfg.RedisAddr())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, []string{"on_hold", "review"}, cfg.ExtraTaskStatuses)
	assert.True(t, cfg.Debug)
}
