package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xiaot623/roundtable/internal/adapter/llm"
	"github.com/xiaot623/roundtable/internal/domain"
	"go.uber.org/zap"
)

// processRun drives one submission through every phase and records the outcome.
func (s *Service) processRun(sub submission) {
	// Runs outlive the request that queued them.
	ctx := context.Background()
	started := time.Now()

	s.updateRun(sub.runID, func(r *domain.Run) {
		r.Status = domain.RunStatusRunning
		r.StartedAt = &started
	})

	err := s.executeRun(ctx, sub)

	ended := time.Now()
	status := domain.RunStatusDone
	if err != nil {
		status = domain.RunStatusFailed
		s.logger.Error("run_failed",
			zap.String("discussion_id", sub.req.DiscussionID),
			zap.String("run_id", sub.runID),
			zap.Error(err))
	}
	s.updateRun(sub.runID, func(r *domain.Run) {
		r.Status = status
		r.EndedAt = &ended
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Phase = domain.PhaseDone
		}
	})
	s.metrics.RunFinished(string(status), ended.Sub(started))
	s.logger.Info("run_finished",
		zap.String("discussion_id", sub.req.DiscussionID),
		zap.String("run_id", sub.runID),
		zap.String("status", string(status)),
		zap.Duration("elapsed", ended.Sub(started)))
}

// executeRun appends the human message, the initial round, every discussion
// round and the synthesis. Each message is published as soon as it is stored.
func (s *Service) executeRun(ctx context.Context, sub submission) error {
	req := sub.req
	discussion, err := s.store.GetDiscussion(ctx, req.DiscussionID)
	if err != nil {
		return fmt.Errorf("failed to load discussion: %w", err)
	}

	parentID := req.ParentID
	if parentID == "" {
		last, err := s.store.LastMessage(ctx, req.DiscussionID)
		if err != nil {
			return fmt.Errorf("failed to load latest message: %w", err)
		}
		if last != nil {
			parentID = last.MessageID
		}
	}

	human, err := s.appendAndPublish(ctx, req.DiscussionID, domain.MessageDraft{
		SenderKind: domain.SenderHuman,
		SenderID:   req.SenderID,
		Content:    req.Content,
		ParentID:   parentID,
		RunID:      sub.runID,
	})
	if err != nil {
		return fmt.Errorf("%w: human message: %w", domain.ErrStoreInvariant, err)
	}
	s.updateRun(sub.runID, func(r *domain.Run) { r.TriggerMessageID = human.MessageID })

	participants, err := s.GetParticipants(ctx, req.DiscussionID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) == 0 {
		s.logger.Warn("run_without_participants",
			zap.String("discussion_id", req.DiscussionID),
			zap.String("run_id", sub.runID))
	}

	transcript := []domain.Message{*human}
	turn := func(p domain.Participant, phase domain.Phase, round int, docs []domain.ContextDocument) error {
		content, err := s.respond(ctx, &llm.TurnRequest{
			Participant: p,
			Topic:       discussion.Topic,
			Phase:       phase,
			Round:       round,
			Human:       *human,
			History:     append([]domain.Message(nil), transcript...),
			Context:     docs,
		})
		if err != nil {
			s.skipTurn(sub.runID, p, phase, round, err)
			return nil
		}

		parent := transcript[len(transcript)-1].MessageID
		if phase == domain.PhaseInitialRound {
			parent = human.MessageID
		}
		msg, err := s.appendAndPublish(ctx, req.DiscussionID, domain.MessageDraft{
			SenderKind: domain.SenderParticipant,
			SenderID:   p.ParticipantID,
			Content:    content,
			ParentID:   parent,
			RunID:      sub.runID,
			Metadata: domain.MessageMetadata{
				Role:            p.Role,
				ParticipantName: p.DisplayName,
				Phase:           phase,
				Round:           round,
			},
		})
		if err != nil {
			return fmt.Errorf("%w: %s turn: %w", domain.ErrStoreInvariant, p.Role, err)
		}
		transcript = append(transcript, *msg)
		s.updateRun(sub.runID, func(r *domain.Run) { r.TurnsAppended++ })
		return nil
	}

	s.enterPhase(sub.runID, domain.PhaseInitialRound, 0)
	docs := s.contexts.FetchContext(ctx, human.Content, s.config.MaxContextResults)
	for _, p := range participants {
		if err := turn(p, domain.PhaseInitialRound, 0, docs); err != nil {
			return err
		}
	}

	for round := 1; round <= s.config.DiscussionRounds; round++ {
		s.enterPhase(sub.runID, domain.PhaseDiscussionRound, round)
		docs := s.contexts.FetchContext(ctx, human.Content, s.config.MaxContextResults)
		for _, p := range participants {
			if err := turn(p, domain.PhaseDiscussionRound, round, docs); err != nil {
				return err
			}
		}
	}

	s.enterPhase(sub.runID, domain.PhaseSynthesis, 0)
	summary, err := s.synthesize(ctx, &llm.SynthesisRequest{
		Topic:        discussion.Topic,
		Messages:     append([]domain.Message(nil), transcript...),
		Participants: participants,
	})
	if err != nil {
		s.logger.Warn("synthesis_skipped",
			zap.String("discussion_id", req.DiscussionID),
			zap.String("run_id", sub.runID),
			zap.Error(err))
		return nil
	}
	if _, err := s.appendAndPublish(ctx, req.DiscussionID, domain.MessageDraft{
		SenderKind: domain.SenderSystem,
		SenderID:   "synthesis",
		Content:    summary,
		ParentID:   transcript[len(transcript)-1].MessageID,
		RunID:      sub.runID,
		Metadata:   domain.MessageMetadata{Type: domain.MessageTypeSynthesis, Phase: domain.PhaseSynthesis},
	}); err != nil {
		return fmt.Errorf("%w: synthesis: %w", domain.ErrStoreInvariant, err)
	}
	return nil
}

// respond calls the responder under the per-turn timeout. Panics and empty
// answers count as failures.
func (s *Service) respond(ctx context.Context, req *llm.TurnRequest) (content string, err error) {
	ctx, cancel := s.turnContext(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: responder panic: %v", domain.ErrCollaboratorFailure, r)
		}
	}()

	content, err = s.responder.Respond(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrCollaboratorFailure)
	}
	return content, nil
}

func (s *Service) synthesize(ctx context.Context, req *llm.SynthesisRequest) (summary string, err error) {
	ctx, cancel := s.turnContext(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: synthesis panic: %v", domain.ErrCollaboratorFailure, r)
		}
	}()

	summary, err = s.responder.Synthesize(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("%w: empty synthesis", domain.ErrCollaboratorFailure)
	}
	return summary, nil
}

func (s *Service) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.TurnTimeout > 0 {
		return context.WithTimeout(ctx, s.config.TurnTimeout)
	}
	return context.WithCancel(ctx)
}

// appendAndPublish stores a message and immediately hands it to subscribers.
// The emit lock keeps publish order equal to sequence order; neither step blocks.
func (s *Service) appendAndPublish(ctx context.Context, discussionID string, draft domain.MessageDraft) (*domain.Message, error) {
	v, _ := s.emitLocks.LoadOrStore(discussionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.store.AppendMessage(ctx, discussionID, draft)
	if err != nil {
		return nil, err
	}
	s.metrics.MessageAppended(string(msg.SenderKind))
	s.hub.Publish(*msg)
	return msg, nil
}

func (s *Service) skipTurn(runID string, p domain.Participant, phase domain.Phase, round int, err error) {
	s.metrics.TurnSkipped(string(p.Role))
	s.updateRun(runID, func(r *domain.Run) { r.TurnsSkipped++ })
	s.logger.Warn("turn_skipped",
		zap.String("run_id", runID),
		zap.String("participant_id", p.ParticipantID),
		zap.String("role", string(p.Role)),
		zap.String("phase", string(phase)),
		zap.Int("round", round),
		zap.Error(err))
}

func (s *Service) enterPhase(runID string, phase domain.Phase, round int) {
	s.updateRun(runID, func(r *domain.Run) {
		r.Phase = phase
		r.Round = round
	})
	s.logger.Debug("run_phase", zap.String("run_id", runID), zap.String("phase", string(phase)), zap.Int("round", round))
}

func (s *Service) updateRun(runID string, fn func(*domain.Run)) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	if r, ok := s.runs[runID]; ok {
		fn(r)
	}
}
