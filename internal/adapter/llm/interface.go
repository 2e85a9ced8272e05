// Package llm produces participant contributions and discussion syntheses.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/roundtable/internal/domain"
)

// Responder is the participant-response collaborator.
type Responder interface {
	// Respond produces one participant turn.
	Respond(ctx context.Context, req *TurnRequest) (string, error)
	// Synthesize produces the closing summary of a run.
	Synthesize(ctx context.Context, req *SynthesisRequest) (string, error)
}

// TurnRequest is everything a participant sees when it takes a turn.
type TurnRequest struct {
	Participant domain.Participant
	Topic       string
	Phase       domain.Phase
	Round       int
	Human       domain.Message
	// History holds the run's messages so far, oldest first.
	History []domain.Message
	Context []domain.ContextDocument
}

// SynthesisRequest carries the full ordered transcript of one run.
type SynthesisRequest struct {
	Topic        string
	Messages     []domain.Message
	Participants []domain.Participant
}

// recentWindow is how many trailing messages a discussion turn quotes.
const recentWindow = 5

// FormatPrompt renders the initial-round user prompt.
func FormatPrompt(template, userMessage string, docs []domain.ContextDocument) string {
	var b strings.Builder
	if template != "" {
		b.WriteString(template)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "User message: %s\n\nContext:\n", userMessage)
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(d.Text)
	}
	return b.String()
}

// FormatTranscript renders the last few messages as "Speaker: content" blocks.
func FormatTranscript(messages []domain.Message) string {
	if len(messages) > recentWindow {
		messages = messages[len(messages)-recentWindow:]
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n\n", speaker(m), m.Content)
	}
	return b.String()
}

func speaker(m domain.Message) string {
	switch m.SenderKind {
	case domain.SenderHuman:
		return "User"
	case domain.SenderParticipant:
		if m.Metadata.Role != "" {
			return m.Metadata.Role.Title()
		}
		return "Agent"
	default:
		return "System"
	}
}
