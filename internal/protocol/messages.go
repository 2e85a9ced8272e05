// Package protocol defines the WebSocket message protocol between clients and the server.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/xiaot623/roundtable/internal/domain"
)

// Message types from client to server
const (
	TypeSubmitMessage = "submit_message"
)

// Message types from server to client
const (
	TypeHistorySnapshot = "history_snapshot"
	TypeMessageAppended = "message_appended"
	TypeSubmitAck       = "submit_ack"
	TypeError           = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type         string `json:"type"`
	Ts           int64  `json:"ts"`
	DiscussionID string `json:"discussion_id,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

// NewBase stamps a message of type t with the current time.
func NewBase(t, discussionID, requestID string) BaseMessage {
	return BaseMessage{
		Type:         t,
		Ts:           time.Now().UnixMilli(),
		DiscussionID: discussionID,
		RequestID:    requestID,
	}
}

// HistorySnapshotMessage is the first frame on every connection.
type HistorySnapshotMessage struct {
	BaseMessage
	Discussion   domain.Discussion    `json:"discussion"`
	Messages     []domain.Message     `json:"messages"`
	Participants []domain.Participant `json:"participants"`
}

// MessageAppendedMessage carries one newly stored message.
type MessageAppendedMessage struct {
	BaseMessage
	Message domain.Message `json:"message"`
}

// SubmitMessage is sent by a client to post a human message.
type SubmitMessage struct {
	BaseMessage
	Content  string `json:"content"`
	SenderID string `json:"sender_id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// SubmitAckMessage confirms a queued submission.
type SubmitAckMessage struct {
	BaseMessage
	RunID         string `json:"run_id"`
	QueuePosition int    `json:"queue_position"`
}

// ErrorMessage is sent by the server when an error occurs.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInvalidParent  = "invalid_parent"
	ErrorCodeRejected       = "submission_rejected"
	ErrorCodeRateLimited    = "rate_limited"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeInternalError  = "internal_error"
)

// Decode parses a client frame and returns its type alongside the raw bytes.
func Decode(data []byte) (string, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return "", err
	}
	return base.Type, nil
}
