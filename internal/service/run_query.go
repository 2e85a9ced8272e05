package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/roundtable/internal/domain"
)

// GetRun returns a snapshot of a run's progress.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	run := *r
	return &run, nil
}

// ListRuns returns a discussion's runs in submission order.
func (s *Service) ListRuns(ctx context.Context, discussionID string) ([]domain.Run, error) {
	if _, err := s.store.GetDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()
	runs := []domain.Run{}
	for _, id := range s.runOrder {
		if r := s.runs[id]; r.DiscussionID == discussionID {
			runs = append(runs, *r)
		}
	}
	return runs, nil
}
