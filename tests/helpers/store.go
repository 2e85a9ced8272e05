package helpers

import (
	"testing"
	"time"

	"github.com/xiaot623/roundtable/internal/config"
	"github.com/xiaot623/roundtable/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestConfig returns settings suited to fast, deterministic tests.
func NewTestConfig() *config.Config {
	return &config.Config{
		StoreDriver:       "memory",
		ParticipantCount:  3,
		DiscussionRounds:  2,
		MaxContextResults: 5,
		TurnTimeout:       2 * time.Second,
		MaxContentLength:  4000,
		PingInterval:      time.Second,
		WriteTimeout:      time.Second,
		ReadTimeout:       5 * time.Second,
		MaxMessageSize:    65536,
		SendBuffer:        256,
		SubmitRPS:         100,
		SubmitBurst:       100,
		LogLevel:          "debug",
	}
}
