package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/policy"
	"go.uber.org/zap"
)

// discussionQueue holds submissions waiting for the discussion's worker.
type discussionQueue struct {
	pending []submission
}

type submission struct {
	runID string
	req   domain.SubmitRequest
}

// SubmitHumanMessage validates a human message and queues it for processing.
// Processing happens asynchronously; the returned run id tracks it.
func (s *Service) SubmitHumanMessage(ctx context.Context, req domain.SubmitRequest) (*domain.SubmitResponse, error) {
	if req.DiscussionID == "" {
		return nil, fmt.Errorf("%w: discussion_id is required", domain.ErrInvalidInput)
	}
	if req.SenderID == "" {
		req.SenderID = "user"
	}

	if _, err := s.store.GetDiscussion(ctx, req.DiscussionID); err != nil {
		return nil, err
	}

	if s.admission != nil {
		decision, reason, err := s.admission.Evaluate(ctx, req.DiscussionID, req.SenderID, req.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate submission policy: %w", err)
		}
		if decision == policy.DecisionBlock {
			s.metrics.SubmissionRejected()
			s.logger.Info("submission_rejected",
				zap.String("discussion_id", req.DiscussionID),
				zap.String("sender_id", req.SenderID),
				zap.String("reason", reason))
			return nil, fmt.Errorf("%w: %s", domain.ErrSubmissionRejected, reason)
		}
	} else if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	if req.ParentID != "" {
		if _, err := s.store.GetMessage(ctx, req.DiscussionID, req.ParentID); err != nil {
			if errors.Is(err, domain.ErrMessageNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrInvalidParent, req.ParentID)
			}
			return nil, err
		}
	}

	run := &domain.Run{
		RunID:        "run_" + uuid.New().String()[:8],
		DiscussionID: req.DiscussionID,
		Status:       domain.RunStatusQueued,
		Phase:        domain.PhaseAwaitHuman,
		QueuedAt:     time.Now(),
	}
	s.runsMu.Lock()
	s.runs[run.RunID] = run
	s.runOrder = append(s.runOrder, run.RunID)
	s.runsMu.Unlock()

	position := s.enqueue(submission{runID: run.RunID, req: req})

	s.logger.Info("submission_queued",
		zap.String("discussion_id", req.DiscussionID),
		zap.String("run_id", run.RunID),
		zap.Int("queue_position", position))

	return &domain.SubmitResponse{
		Status:        "accepted",
		RunID:         run.RunID,
		DiscussionID:  req.DiscussionID,
		QueuePosition: position,
	}, nil
}

// enqueue appends to the discussion's queue, starting its worker if idle.
// It returns the submission's 1-based position among waiting submissions.
func (s *Service) enqueue(sub submission) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[sub.req.DiscussionID]
	if !ok {
		q = &discussionQueue{}
		if len(s.queues) == 0 {
			s.idle = make(chan struct{})
		}
		s.queues[sub.req.DiscussionID] = q
		go s.drain(sub.req.DiscussionID, q)
	}
	q.pending = append(q.pending, sub)
	return len(q.pending)
}

// drain processes one discussion's submissions in arrival order, then exits.
func (s *Service) drain(discussionID string, q *discussionQueue) {
	for {
		s.mu.Lock()
		if len(q.pending) == 0 {
			delete(s.queues, discussionID)
			if len(s.queues) == 0 && s.idle != nil {
				close(s.idle)
				s.idle = nil
			}
			s.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		s.mu.Unlock()

		s.processRun(next)
	}
}

// Wait blocks until every queued submission has been processed or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
