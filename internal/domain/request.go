package domain

// CreateDiscussionRequest represents the request to open a discussion.
type CreateDiscussionRequest struct {
	Topic    string            `json:"topic"`
	UserID   string            `json:"user_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateDiscussionResponse is the new discussion plus its roster.
type CreateDiscussionResponse struct {
	Discussion
	Roster []Participant `json:"roster"`
}

// DiscussionDetail is a discussion with its transcript and roster.
type DiscussionDetail struct {
	Discussion   Discussion    `json:"discussion"`
	Messages     []Message     `json:"messages"`
	Participants []Participant `json:"participants"`
}

// SubmitRequest represents a human message submitted to a discussion.
type SubmitRequest struct {
	DiscussionID string `json:"-"`
	SenderID     string `json:"sender_id,omitempty"`
	Content      string `json:"content"`
	ParentID     string `json:"parent_id,omitempty"`
}

// SubmitResponse acknowledges a queued submission.
type SubmitResponse struct {
	Status        string `json:"status"`
	RunID         string `json:"run_id"`
	DiscussionID  string `json:"discussion_id"`
	QueuePosition int    `json:"queue_position"`
}
