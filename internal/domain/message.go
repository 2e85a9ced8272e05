package domain

import "time"

// Message is one immutable entry of a discussion transcript.
type Message struct {
	MessageID    string          `json:"message_id"`
	DiscussionID string          `json:"discussion_id"`
	Seq          int64           `json:"seq"`
	SenderKind   SenderKind      `json:"sender_kind"`
	SenderID     string          `json:"sender_id"`
	Content      string          `json:"content"`
	ParentID     string          `json:"parent_id,omitempty"`
	RunID        string          `json:"run_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Metadata     MessageMetadata `json:"metadata"`
}

// MessageMetadata carries the structured tags attached to a message.
type MessageMetadata struct {
	Type            MessageType `json:"type,omitempty"`
	Role            RoleTag     `json:"role,omitempty"`
	ParticipantName string      `json:"participant_name,omitempty"`
	Phase           Phase       `json:"phase,omitempty"`
	Round           int         `json:"round,omitempty"`
}

// IsSynthesis reports whether the message closes a run.
func (m *Message) IsSynthesis() bool {
	return m.Metadata.Type == MessageTypeSynthesis
}

// MessageDraft is the caller-supplied part of a message; the store fills in the rest.
type MessageDraft struct {
	SenderKind SenderKind
	SenderID   string
	Content    string
	ParentID   string
	RunID      string
	Metadata   MessageMetadata
}
