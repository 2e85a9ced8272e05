package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/roundtable/internal/domain"
	store "github.com/xiaot623/roundtable/internal/repository"
)

func allTemplates() map[domain.RoleTag]string {
	templates := make(map[domain.RoleTag]string)
	for _, role := range domain.Roles() {
		templates[role] = "prompt for " + string(role)
	}
	return templates
}

func TestAssignParticipantsTakesRolesInOrder(t *testing.T) {
	r := New(3, nil)
	participants, err := r.AssignParticipants(context.Background(), "disc_1", allTemplates())
	require.NoError(t, err)
	require.Len(t, participants, 3)

	assert.Equal(t, domain.RoleResearcher, participants[0].Role)
	assert.Equal(t, domain.RoleCritic, participants[1].Role)
	assert.Equal(t, domain.RoleCreative, participants[2].Role)
	assert.Equal(t, "Researcher Agent", participants[0].DisplayName)
	assert.Equal(t, "Specialist in critic thinking", participants[1].Description)
	assert.Equal(t, "prompt for creative", participants[2].PromptTemplate)

	ids := map[string]bool{}
	for _, p := range participants {
		assert.Equal(t, "disc_1", p.DiscussionID)
		ids[p.ParticipantID] = true
	}
	assert.Len(t, ids, 3)

	got, err := r.GetParticipants(context.Background(), "disc_1")
	require.NoError(t, err)
	assert.Equal(t, participants, got)
}

func TestAssignParticipantsTwiceFails(t *testing.T) {
	r := New(2, nil)
	_, err := r.AssignParticipants(context.Background(), "disc_1", allTemplates())
	require.NoError(t, err)

	_, err = r.AssignParticipants(context.Background(), "disc_1", allTemplates())
	assert.ErrorIs(t, err, domain.ErrRosterAssigned)

	got, err := r.GetParticipants(context.Background(), "disc_1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAssignParticipantsMissingTemplate(t *testing.T) {
	r := New(3, nil)
	templates := allTemplates()
	delete(templates, domain.RoleCritic)

	_, err := r.AssignParticipants(context.Background(), "disc_1", templates)
	assert.ErrorIs(t, err, domain.ErrMissingTemplate)

	_, err = r.GetParticipants(context.Background(), "disc_1")
	assert.ErrorIs(t, err, domain.ErrEmptyRoster)
}

func TestRosterSizeIsClamped(t *testing.T) {
	assert.Equal(t, len(domain.Roles()), New(42, nil).Size())
	assert.Equal(t, 0, New(-1, nil).Size())

	r := New(0, nil)
	_, err := r.AssignParticipants(context.Background(), "disc_1", allTemplates())
	require.NoError(t, err)
	_, err = r.GetParticipants(context.Background(), "disc_1")
	assert.ErrorIs(t, err, domain.ErrEmptyRoster)
}

func TestAssignmentIsReloadedFromStore(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	d, err := backing.CreateDiscussion(ctx, "topic", nil)
	require.NoError(t, err)

	assigned, err := New(3, backing).AssignParticipants(ctx, d.DiscussionID, allTemplates())
	require.NoError(t, err)

	// A fresh roster over the same store sees the same participants.
	restarted := New(3, backing)
	got, err := restarted.GetParticipants(ctx, d.DiscussionID)
	require.NoError(t, err)
	assert.Equal(t, assigned, got)

	_, err = restarted.AssignParticipants(ctx, d.DiscussionID, allTemplates())
	assert.ErrorIs(t, err, domain.ErrRosterAssigned)
}

func TestAssignmentToUnknownDiscussionFails(t *testing.T) {
	ctx := context.Background()
	r := New(2, store.NewMemoryStore())

	_, err := r.AssignParticipants(ctx, "disc_missing", allTemplates())
	assert.ErrorIs(t, err, domain.ErrDiscussionNotFound)

	_, err = r.GetParticipants(ctx, "disc_missing")
	assert.ErrorIs(t, err, domain.ErrDiscussionNotFound)
}
