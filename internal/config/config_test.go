package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 3, cfg.ParticipantCount)
	assert.Equal(t, 2, cfg.DiscussionRounds)
	assert.Equal(t, 5, cfg.MaxContextResults)
	assert.Equal(t, 20*time.Second, cfg.PingInterval)
	assert.Equal(t, "", cfg.LLMURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DISCUSSION_ROUNDS", "4")
	t.Setenv("TURN_TIMEOUT_MS", "1500")
	t.Setenv("WS_SUBMIT_RPS", "0.5")
	t.Setenv("PARTICIPANT_COUNT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 4, cfg.DiscussionRounds)
	assert.Equal(t, 1500*time.Millisecond, cfg.TurnTimeout)
	assert.Equal(t, 0.5, cfg.SubmitRPS)
	assert.Equal(t, 3, cfg.ParticipantCount)
}
