// Package domain defines the core domain models for the discussion engine.
package domain

import "strings"

// RunStatus represents the status of a processing run.
type RunStatus string

const (
	RunStatusQueued  RunStatus = "QUEUED"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusDone    RunStatus = "DONE"
	RunStatusFailed  RunStatus = "FAILED"
)

// IsTerminal reports whether the run will not change status again.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

// Phase is the orchestration phase a run is in.
type Phase string

const (
	PhaseAwaitHuman      Phase = "AWAIT_HUMAN"
	PhaseInitialRound    Phase = "INITIAL_ROUND"
	PhaseDiscussionRound Phase = "DISCUSSION_ROUND"
	PhaseSynthesis       Phase = "SYNTHESIS"
	PhaseDone            Phase = "DONE"
)

// SenderKind identifies who authored a message.
type SenderKind string

const (
	SenderHuman       SenderKind = "human"
	SenderParticipant SenderKind = "participant"
	SenderSystem      SenderKind = "system"
)

// Valid reports whether k is a known sender kind.
func (k SenderKind) Valid() bool {
	switch k {
	case SenderHuman, SenderParticipant, SenderSystem:
		return true
	}
	return false
}

// MessageType tags special system messages.
type MessageType string

const (
	MessageTypeWelcome   MessageType = "welcome"
	MessageTypeSynthesis MessageType = "synthesis"
)

// RoleTag is the perspective a participant argues from.
type RoleTag string

const (
	RoleResearcher RoleTag = "researcher"
	RoleCritic     RoleTag = "critic"
	RoleCreative   RoleTag = "creative"
	RoleSummarizer RoleTag = "summarizer"
	RoleAnalyst    RoleTag = "analyst"
	RoleGeneralist RoleTag = "generalist"
)

// Roles returns every role in canonical assignment order.
func Roles() []RoleTag {
	return []RoleTag{
		RoleResearcher,
		RoleCritic,
		RoleCreative,
		RoleSummarizer,
		RoleAnalyst,
		RoleGeneralist,
	}
}

// Valid reports whether r is one of the known roles.
func (r RoleTag) Valid() bool {
	for _, role := range Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Title returns the capitalized role name, e.g. "Researcher".
func (r RoleTag) Title() string {
	if r == "" {
		return ""
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}
