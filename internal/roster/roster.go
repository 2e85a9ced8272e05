// Package roster assigns role-bearing participants to discussions.
package roster

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/xiaot623/roundtable/internal/domain"
)

// Store persists assignments across process restarts.
type Store interface {
	SaveParticipants(ctx context.Context, discussionID string, participants []domain.Participant) error
	GetParticipants(ctx context.Context, discussionID string) ([]domain.Participant, error)
}

// Roster holds the participant assignment of every discussion.
// Assignments are written through to the backing store and cached.
type Roster struct {
	mu          sync.RWMutex
	size        int
	backing     Store
	assignments map[string][]domain.Participant
}

// New creates a roster that assigns size participants per discussion.
// size is clamped to the number of known roles. A nil backing keeps
// assignments in memory only.
func New(size int, backing Store) *Roster {
	if size < 0 {
		size = 0
	}
	if n := len(domain.Roles()); size > n {
		size = n
	}
	return &Roster{
		size:        size,
		backing:     backing,
		assignments: make(map[string][]domain.Participant),
	}
}

// Size returns the number of participants assigned per discussion.
func (r *Roster) Size() int {
	return r.size
}

// AssignParticipants binds the first Size roles, in canonical order, to the discussion.
// A discussion can only be assigned once.
func (r *Roster) AssignParticipants(ctx context.Context, discussionID string, templates map[domain.RoleTag]string) ([]domain.Participant, error) {
	roles := domain.Roles()[:r.size]
	participants := make([]domain.Participant, 0, len(roles))
	for _, role := range roles {
		tmpl, ok := templates[role]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingTemplate, role)
		}
		participants = append(participants, domain.Participant{
			ParticipantID:  "agt_" + uuid.New().String()[:8],
			DiscussionID:   discussionID,
			Role:           role,
			DisplayName:    role.Title() + " Agent",
			Description:    "Specialist in " + string(role) + " thinking",
			PromptTemplate: tmpl,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assignments[discussionID]; exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrRosterAssigned, discussionID)
	}
	if r.backing != nil {
		if err := r.backing.SaveParticipants(ctx, discussionID, participants); err != nil {
			return nil, err
		}
	}
	r.assignments[discussionID] = participants
	return clone(participants), nil
}

// GetParticipants returns the discussion's participants in assignment order.
// Assignments missing from the cache are loaded from the backing store.
func (r *Roster) GetParticipants(ctx context.Context, discussionID string) ([]domain.Participant, error) {
	r.mu.RLock()
	participants, ok := r.assignments[discussionID]
	r.mu.RUnlock()

	if !ok && r.backing != nil {
		loaded, err := r.backing.GetParticipants(ctx, discussionID)
		if err != nil {
			return nil, err
		}
		if len(loaded) > 0 {
			r.mu.Lock()
			if cached, exists := r.assignments[discussionID]; exists {
				loaded = cached
			} else {
				r.assignments[discussionID] = loaded
			}
			r.mu.Unlock()
		}
		participants = loaded
	}

	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyRoster, discussionID)
	}
	return clone(participants), nil
}

// Forget drops the cached assignment of a discussion that no longer exists.
func (r *Roster) Forget(discussionID string) {
	r.mu.Lock()
	delete(r.assignments, discussionID)
	r.mu.Unlock()
}

func clone(in []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, len(in))
	copy(out, in)
	return out
}
