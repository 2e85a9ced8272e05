package domain

import "errors"

var (
	// ErrDiscussionNotFound is returned when a discussion id is unknown.
	ErrDiscussionNotFound = errors.New("discussion not found")
	// ErrInvalidParent is returned when a parent id does not name a message of the same discussion.
	ErrInvalidParent = errors.New("invalid parent message")
	// ErrMessageNotFound is returned when a message id is unknown within a discussion.
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidMessage is returned for malformed message drafts.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrEmptyRoster is returned when a discussion has no participants assigned.
	ErrEmptyRoster = errors.New("empty roster")
	// ErrRosterAssigned is returned when a roster is assigned twice.
	ErrRosterAssigned = errors.New("roster already assigned")
	// ErrMissingTemplate is returned when no prompt template exists for a role.
	ErrMissingTemplate = errors.New("missing prompt template")
	// ErrCollaboratorFailure wraps failures of response or retrieval collaborators.
	ErrCollaboratorFailure = errors.New("collaborator failure")
	// ErrStoreInvariant is returned when the store rejects an append during a run.
	ErrStoreInvariant = errors.New("store invariant violation")
	// ErrRunNotFound is returned when a run id is unknown.
	ErrRunNotFound = errors.New("run not found")
	// ErrSubmissionRejected is returned when the admission policy blocks a submission.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)
