// Package store provides transcript storage for discussions.
package store

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/xiaot623/roundtable/internal/domain"
)

// Store is the append-only transcript store.
//
// AppendMessage is linearizable per discussion: concurrent appends to the same
// discussion receive distinct, gap-free, strictly increasing sequence numbers.
// Implementations never broadcast; delivery is the caller's concern.
type Store interface {
	CreateDiscussion(ctx context.Context, topic string, metadata map[string]string) (*domain.Discussion, error)
	GetDiscussion(ctx context.Context, discussionID string) (*domain.Discussion, error)
	ListDiscussions(ctx context.Context) ([]domain.Discussion, error)
	DeleteDiscussion(ctx context.Context, discussionID string) error

	// SaveParticipants fails with domain.ErrRosterAssigned when a roster is already saved.
	SaveParticipants(ctx context.Context, discussionID string, participants []domain.Participant) error
	GetParticipants(ctx context.Context, discussionID string) ([]domain.Participant, error)

	AppendMessage(ctx context.Context, discussionID string, draft domain.MessageDraft) (*domain.Message, error)
	GetMessage(ctx context.Context, discussionID, messageID string) (*domain.Message, error)
	GetMessages(ctx context.Context, discussionID string) ([]domain.Message, error)
	// LastMessage returns the newest message, or nil when the discussion is empty.
	LastMessage(ctx context.Context, discussionID string) (*domain.Message, error)

	Close() error
}

func newDiscussionID() string {
	return "disc_" + uuid.New().String()[:8]
}

func newMessageID() string {
	return "msg_" + uuid.New().String()
}

func validateDraft(draft domain.MessageDraft) error {
	if !draft.SenderKind.Valid() {
		return domain.ErrInvalidMessage
	}
	if draft.SenderID == "" {
		return domain.ErrInvalidMessage
	}
	return nil
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) Lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
