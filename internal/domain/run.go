package domain

import "time"

// Run tracks one processing instance triggered by a human submission.
type Run struct {
	RunID            string     `json:"run_id"`
	DiscussionID     string     `json:"discussion_id"`
	TriggerMessageID string     `json:"trigger_message_id,omitempty"`
	Status           RunStatus  `json:"status"`
	Phase            Phase      `json:"phase"`
	Round            int        `json:"round,omitempty"`
	TurnsAppended    int        `json:"turns_appended"`
	TurnsSkipped     int        `json:"turns_skipped"`
	QueuedAt         time.Time  `json:"queued_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	Error            string     `json:"error,omitempty"`
}
