package domain

import "time"

// Discussion is a conversation thread on a topic.
type Discussion struct {
	DiscussionID string            `json:"discussion_id"`
	Topic        string            `json:"topic"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	LastSeq      int64             `json:"last_seq"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Participant is an automated contributor bound to one discussion.
type Participant struct {
	ParticipantID  string  `json:"participant_id"`
	DiscussionID   string  `json:"discussion_id"`
	Role           RoleTag `json:"role"`
	DisplayName    string  `json:"display_name"`
	Description    string  `json:"description"`
	PromptTemplate string  `json:"prompt_template"`
}

// ContextDocument is a retrieved snippet used to ground a turn.
type ContextDocument struct {
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Source     string  `json:"source,omitempty"`
	Score      float64 `json:"score"`
}
