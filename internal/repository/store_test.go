package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/roundtable/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// forEachStore runs the same contract against every implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestSQLiteStore(t))
	})
}

func human(content, parent string) domain.MessageDraft {
	return domain.MessageDraft{
		SenderKind: domain.SenderHuman,
		SenderID:   "user",
		Content:    content,
		ParentID:   parent,
	}
}

func TestStoreCreateAndGetDiscussion(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.CreateDiscussion(ctx, "future of work", map[string]string{"user_id": "u1"})
		require.NoError(t, err)
		assert.NotEmpty(t, d.DiscussionID)
		assert.Equal(t, "future of work", d.Topic)
		assert.Equal(t, int64(0), d.LastSeq)

		got, err := s.GetDiscussion(ctx, d.DiscussionID)
		require.NoError(t, err)
		assert.Equal(t, d.DiscussionID, got.DiscussionID)
		assert.Equal(t, "u1", got.Metadata["user_id"])

		_, err = s.GetDiscussion(ctx, "disc_missing")
		assert.ErrorIs(t, err, domain.ErrDiscussionNotFound)
	})
}

func TestStoreListDiscussionsInCreationOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var ids []string
		for _, topic := range []string{"a", "b", "c"} {
			d, err := s.CreateDiscussion(ctx, topic, nil)
			require.NoError(t, err)
			ids = append(ids, d.DiscussionID)
		}

		list, err := s.ListDiscussions(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, d := range list {
			assert.Equal(t, ids[i], d.DiscussionID)
		}
	})
}

func TestStoreAppendAssignsSequence(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.CreateDiscussion(ctx, "topic", nil)
		require.NoError(t, err)

		first, err := s.AppendMessage(ctx, d.DiscussionID, human("hello", ""))
		require.NoError(t, err)
		second, err := s.AppendMessage(ctx, d.DiscussionID, domain.MessageDraft{
			SenderKind: domain.SenderParticipant,
			SenderID:   "agt_1",
			Content:    "reply",
			ParentID:   first.MessageID,
			Metadata:   domain.MessageMetadata{Role: domain.RoleCritic, Round: 2},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.Seq)
		assert.Equal(t, int64(2), second.Seq)
		assert.NotEqual(t, first.MessageID, second.MessageID)
		assert.False(t, second.CreatedAt.Before(first.CreatedAt))

		messages, err := s.GetMessages(ctx, d.DiscussionID)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, first.MessageID, messages[0].MessageID)
		assert.Equal(t, first.MessageID, messages[1].ParentID)
		assert.Equal(t, domain.RoleCritic, messages[1].Metadata.Role)
		assert.Equal(t, 2, messages[1].Metadata.Round)

		last, err := s.LastMessage(ctx, d.DiscussionID)
		require.NoError(t, err)
		assert.Equal(t, second.MessageID, last.MessageID)

		got, err := s.GetDiscussion(ctx, d.DiscussionID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.LastSeq)
	})
}

func TestStoreAppendRejectsBadInput(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a, err := s.CreateDiscussion(ctx, "a", nil)
		require.NoError(t, err)
		b, err := s.CreateDiscussion(ctx, "b", nil)
		require.NoError(t, err)

		inA, err := s.AppendMessage(ctx, a.DiscussionID, human("in a", ""))
		require.NoError(t, err)

		_, err = s.AppendMessage(ctx, "disc_missing", human("x", ""))
		assert.ErrorIs(t, err, domain.ErrDiscussionNotFound)

		_, err = s.AppendMessage(ctx, a.DiscussionID, human("x", "msg_nope"))
		assert.ErrorIs(t, err, domain.ErrInvalidParent)

		// A parent from another discussion is not a valid parent.
		_, err = s.AppendMessage(ctx, b.DiscussionID, human("x", inA.MessageID))
		assert.ErrorIs(t, err, domain.ErrInvalidParent)

		_, err = s.AppendMessage(ctx, a.DiscussionID, domain.MessageDraft{SenderKind: "robot", SenderID: "r", Content: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)

		messages, err := s.GetMessages(ctx, b.DiscussionID)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
}

func TestStoreGetMessage(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.CreateDiscussion(ctx, "topic", nil)
		require.NoError(t, err)
		msg, err := s.AppendMessage(ctx, d.DiscussionID, human("hello", ""))
		require.NoError(t, err)

		got, err := s.GetMessage(ctx, d.DiscussionID, msg.MessageID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Content)

		_, err = s.GetMessage(ctx, d.DiscussionID, "msg_nope")
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)

		last, err := s.LastMessage(ctx, d.DiscussionID)
		require.NoError(t, err)
		assert.NotNil(t, last)
	})
}

func TestStoreLastMessageEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.CreateDiscussion(ctx, "topic", nil)
		require.NoError(t, err)

		last, err := s.LastMessage(ctx, d.DiscussionID)
		require.NoError(t, err)
		assert.Nil(t, last)
	})
}

func TestStoreConcurrentAppendsAreGapFree(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.CreateDiscussion(ctx, "topic", nil)
		require.NoError(t, err)

		const writers, perWriter = 8, 25
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					if _, err := s.AppendMessage(ctx, d.DiscussionID, human("x", "")); err != nil {
						t.Errorf("append failed: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()

		messages, err := s.GetMessages(ctx, d.DiscussionID)
		require.NoError(t, err)
		require.Len(t, messages, writers*perWriter)
		for i, m := range messages {
			assert.Equal(t, int64(i+1), m.Seq)
		}
	})
}

func TestStoreParticipantsRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d, err := s.CreateDiscussion(ctx, "topic", nil)
		require.NoError(t, err)

		empty, err := s.GetParticipants(ctx, d.DiscussionID)
		require.NoError(t, err)
		assert.Empty(t, empty)

		roster := []domain.Participant{
			{ParticipantID: "agt_1", DiscussionID: d.DiscussionID, Role: domain.RoleResearcher, DisplayName: "Researcher Agent", Description: "r", PromptTemplate: "p1"},
			{ParticipantID: "agt_2", DiscussionID: d.DiscussionID, Role: domain.RoleCritic, DisplayName: "Critic Agent", Description: "c", PromptTemplate: "p2"},
		}
		require.NoError(t, s.SaveParticipants(ctx, d.DiscussionID, roster))

		got, err := s.GetParticipants(ctx, d.DiscussionID)
		require.NoError(t, err)
		assert.Equal(t, roster, got)

		err = s.SaveParticipants(ctx, d.DiscussionID, roster[:1])
		assert.ErrorIs(t, err, domain.ErrRosterAssigned)

		err = s.SaveParticipants(ctx, "disc_missing", roster)
		assert.ErrorIs(t, err, domain.ErrDiscussionNotFound)
		_, err = s.GetParticipants(ctx, "disc_missing")
		assert.ErrorIs(t, err, domain.ErrDiscussionNotFound)
	})
}

func TestStoreDeleteDiscussion(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		keep, err := s.CreateDiscussion(ctx, "keep", nil)
		require.NoError(t, err)
		drop, err := s.CreateDiscussion(ctx, "drop", nil)
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, drop.DiscussionID, human("hi", ""))
		require.NoError(t, err)
		require.NoError(t, s.SaveParticipants(ctx, drop.DiscussionID, []domain.Participant{
			{ParticipantID: "agt_1", DiscussionID: drop.DiscussionID, Role: domain.RoleCritic, DisplayName: "Critic Agent"},
		}))

		require.NoError(t, s.DeleteDiscussion(ctx, drop.DiscussionID))

		_, err = s.GetDiscussion(ctx, drop.DiscussionID)
		assert.ErrorIs(t, err, domain.ErrDiscussionNotFound)
		list, err := s.ListDiscussions(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, keep.DiscussionID, list[0].DiscussionID)

		assert.ErrorIs(t, s.DeleteDiscussion(ctx, drop.DiscussionID), domain.ErrDiscussionNotFound)
	})
}

func TestSQLiteFileStoreKeepsRosterAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "roundtable.db")

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	d, err := s.CreateDiscussion(ctx, "topic", nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveParticipants(ctx, d.DiscussionID, []domain.Participant{
		{ParticipantID: "agt_1", DiscussionID: d.DiscussionID, Role: domain.RoleCreative, DisplayName: "Creative Agent", PromptTemplate: "p"},
	}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetParticipants(ctx, d.DiscussionID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "agt_1", got[0].ParticipantID)
	assert.Equal(t, domain.RoleCreative, got[0].Role)
}
