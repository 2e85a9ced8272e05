package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/hub"
	"go.uber.org/zap"
)

// CreateDiscussion opens a discussion, assigns its roster and posts the welcome message.
func (s *Service) CreateDiscussion(ctx context.Context, req domain.CreateDiscussionRequest) (*domain.CreateDiscussionResponse, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if req.UserID != "" {
		metadata["user_id"] = req.UserID
	}

	templates, err := s.prompts.Templates(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt templates: %w", err)
	}

	discussion, err := s.store.CreateDiscussion(ctx, topic, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}

	participants, err := s.roster.AssignParticipants(ctx, discussion.DiscussionID, templates)
	if err != nil {
		s.discard(ctx, discussion.DiscussionID)
		return nil, fmt.Errorf("failed to assign participants: %w", err)
	}

	if _, err := s.appendAndPublish(ctx, discussion.DiscussionID, domain.MessageDraft{
		SenderKind: domain.SenderSystem,
		SenderID:   "system",
		Content:    welcomeMessage(participants),
		Metadata:   domain.MessageMetadata{Type: domain.MessageTypeWelcome},
	}); err != nil {
		s.discard(ctx, discussion.DiscussionID)
		return nil, fmt.Errorf("failed to post welcome message: %w", err)
	}

	// Re-read so the response reflects the welcome message.
	if d, err := s.store.GetDiscussion(ctx, discussion.DiscussionID); err == nil {
		discussion = d
	}

	s.logger.Info("discussion_created",
		zap.String("discussion_id", discussion.DiscussionID),
		zap.String("topic", topic),
		zap.Int("participants", len(participants)))

	return &domain.CreateDiscussionResponse{
		Discussion: *discussion,
		Roster:     participants,
	}, nil
}

// discard removes a discussion whose creation did not complete.
func (s *Service) discard(ctx context.Context, discussionID string) {
	s.roster.Forget(discussionID)
	if err := s.store.DeleteDiscussion(context.WithoutCancel(ctx), discussionID); err != nil {
		s.logger.Error("discussion_cleanup_failed",
			zap.String("discussion_id", discussionID),
			zap.Error(err))
	}
}

func welcomeMessage(participants []domain.Participant) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, fmt.Sprintf("%s (%s)", p.DisplayName, p.Role))
	}
	msg := fmt.Sprintf("Discussion created with %d participants", len(participants))
	if len(names) > 0 {
		msg += ": " + strings.Join(names, ", ")
	}
	return msg
}

// ListDiscussions returns every discussion in creation order.
func (s *Service) ListDiscussions(ctx context.Context) ([]domain.Discussion, error) {
	discussions, err := s.store.ListDiscussions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	return discussions, nil
}

// GetDiscussion returns a discussion with its transcript and roster.
func (s *Service) GetDiscussion(ctx context.Context, discussionID string) (*domain.DiscussionDetail, error) {
	discussion, err := s.store.GetDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	participants, err := s.GetParticipants(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	return &domain.DiscussionDetail{
		Discussion:   *discussion,
		Messages:     messages,
		Participants: participants,
	}, nil
}

// GetMessages returns the transcript of a discussion.
func (s *Service) GetMessages(ctx context.Context, discussionID string) ([]domain.Message, error) {
	return s.store.GetMessages(ctx, discussionID)
}

// GetParticipants returns the roster; a discussion without one yields an empty list.
func (s *Service) GetParticipants(ctx context.Context, discussionID string) ([]domain.Participant, error) {
	if _, err := s.store.GetDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}
	participants, err := s.roster.GetParticipants(ctx, discussionID)
	if errors.Is(err, domain.ErrEmptyRoster) {
		return []domain.Participant{}, nil
	}
	return participants, err
}

// Subscribe registers a live subscriber and returns the transcript so far.
func (s *Service) Subscribe(ctx context.Context, discussionID string) (*hub.Subscription, []domain.Message, error) {
	return s.hub.Subscribe(ctx, discussionID)
}

// Unsubscribe removes a subscriber. Safe to call more than once.
func (s *Service) Unsubscribe(sub *hub.Subscription) {
	s.hub.Unsubscribe(sub)
}
