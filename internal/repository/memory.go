package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/xiaot623/roundtable/internal/domain"
)

// MemoryStore implements Store with process-lifetime maps.
type MemoryStore struct {
	mu          sync.RWMutex
	discussions map[string]*discussionLog
	order       []*discussionLog
	now         func() time.Time
}

type discussionLog struct {
	mu         sync.RWMutex
	discussion domain.Discussion
	messages   []domain.Message
	index      map[string]int
	roster     []domain.Participant
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		discussions: make(map[string]*discussionLog),
		now:         time.Now,
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) lookup(discussionID string) (*discussionLog, error) {
	s.mu.RLock()
	l, ok := s.discussions[discussionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDiscussionNotFound, discussionID)
	}
	return l, nil
}

// CreateDiscussion creates a new discussion.
func (s *MemoryStore) CreateDiscussion(ctx context.Context, topic string, metadata map[string]string) (*domain.Discussion, error) {
	now := s.now()
	l := &discussionLog{
		discussion: domain.Discussion{
			DiscussionID: newDiscussionID(),
			Topic:        topic,
			CreatedAt:    now,
			UpdatedAt:    now,
			Metadata:     cloneMetadata(metadata),
		},
		index: make(map[string]int),
	}

	s.mu.Lock()
	s.discussions[l.discussion.DiscussionID] = l
	s.order = append(s.order, l)
	s.mu.Unlock()

	d := l.discussion
	d.Metadata = cloneMetadata(d.Metadata)
	return &d, nil
}

// GetDiscussion retrieves a discussion by ID.
func (s *MemoryStore) GetDiscussion(ctx context.Context, discussionID string) (*domain.Discussion, error) {
	l, err := s.lookup(discussionID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	d := l.discussion
	d.Metadata = cloneMetadata(d.Metadata)
	return &d, nil
}

// ListDiscussions returns all discussions in creation order.
func (s *MemoryStore) ListDiscussions(ctx context.Context) ([]domain.Discussion, error) {
	s.mu.RLock()
	logs := make([]*discussionLog, len(s.order))
	copy(logs, s.order)
	s.mu.RUnlock()

	discussions := make([]domain.Discussion, 0, len(logs))
	for _, l := range logs {
		l.mu.RLock()
		d := l.discussion
		l.mu.RUnlock()
		d.Metadata = cloneMetadata(d.Metadata)
		discussions = append(discussions, d)
	}
	return discussions, nil
}

// AppendMessage validates and appends a message, assigning its id and sequence number.
func (s *MemoryStore) AppendMessage(ctx context.Context, discussionID string, draft domain.MessageDraft) (*domain.Message, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	l, err := s.lookup(discussionID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if draft.ParentID != "" {
		if _, ok := l.index[draft.ParentID]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidParent, draft.ParentID)
		}
	}

	now := s.now()
	msg := domain.Message{
		MessageID:    newMessageID(),
		DiscussionID: discussionID,
		Seq:          int64(len(l.messages)) + 1,
		SenderKind:   draft.SenderKind,
		SenderID:     draft.SenderID,
		Content:      draft.Content,
		ParentID:     draft.ParentID,
		RunID:        draft.RunID,
		CreatedAt:    now,
		Metadata:     draft.Metadata,
	}
	l.index[msg.MessageID] = len(l.messages)
	l.messages = append(l.messages, msg)
	l.discussion.UpdatedAt = now
	l.discussion.LastSeq = msg.Seq

	return &msg, nil
}

// GetMessage retrieves one message of a discussion.
func (s *MemoryStore) GetMessage(ctx context.Context, discussionID, messageID string) (*domain.Message, error) {
	l, err := s.lookup(discussionID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, messageID)
	}
	msg := l.messages[i]
	return &msg, nil
}

// GetMessages returns the full transcript in sequence order.
func (s *MemoryStore) GetMessages(ctx context.Context, discussionID string) ([]domain.Message, error) {
	l, err := s.lookup(discussionID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	messages := make([]domain.Message, len(l.messages))
	copy(messages, l.messages)
	return messages, nil
}

// LastMessage returns the newest message, or nil for an empty discussion.
func (s *MemoryStore) LastMessage(ctx context.Context, discussionID string) (*domain.Message, error) {
	l, err := s.lookup(discussionID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return nil, nil
	}
	msg := l.messages[len(l.messages)-1]
	return &msg, nil
}

// DeleteDiscussion removes a discussion with its transcript and roster.
func (s *MemoryStore) DeleteDiscussion(ctx context.Context, discussionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.discussions[discussionID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDiscussionNotFound, discussionID)
	}
	delete(s.discussions, discussionID)
	s.order = slices.DeleteFunc(s.order, func(o *discussionLog) bool { return o == l })
	return nil
}

// SaveParticipants records the roster of a discussion. A roster is saved once.
func (s *MemoryStore) SaveParticipants(ctx context.Context, discussionID string, participants []domain.Participant) error {
	l, err := s.lookup(discussionID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.roster) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrRosterAssigned, discussionID)
	}
	l.roster = slices.Clone(participants)
	return nil
}

// GetParticipants returns the roster in assignment order; empty when none was saved.
func (s *MemoryStore) GetParticipants(ctx context.Context, discussionID string) ([]domain.Participant, error) {
	l, err := s.lookup(discussionID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	participants := make([]domain.Participant, len(l.roster))
	copy(participants, l.roster)
	return participants, nil
}
