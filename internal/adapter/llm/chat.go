package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/roundtable/internal/domain"
)

const synthesisSystemPrompt = "You are the moderator of a multi-perspective discussion. " +
	"Summarize the exchange as markdown with the sections Key Points, Consensus View and Next Steps."

// ChatResponder asks a chat completions model for every turn.
type ChatResponder struct {
	client *Client
	model  string
}

// NewChatResponder creates a responder backed by client.
func NewChatResponder(client *Client, model string) *ChatResponder {
	return &ChatResponder{client: client, model: model}
}

// Respond produces one participant turn.
func (c *ChatResponder) Respond(ctx context.Context, req *TurnRequest) (string, error) {
	var user string
	if req.Phase == domain.PhaseInitialRound {
		user = FormatPrompt("", req.Human.Content, req.Context)
	} else {
		user = fmt.Sprintf("Discussion round %d on %q. Recent messages:\n\n%s\nRespond as the %s, adding something new.",
			req.Round, req.Topic, FormatTranscript(req.History), req.Participant.DisplayName)
		if len(req.Context) > 0 {
			user += "\n\n" + FormatPrompt("", req.Human.Content, req.Context)
		}
	}
	return c.complete(ctx, req.Participant.PromptTemplate, user)
}

// Synthesize produces the closing summary.
func (c *ChatResponder) Synthesize(ctx context.Context, req *SynthesisRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", req.Topic)
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "%s: %s\n\n", speaker(m), m.Content)
	}
	return c.complete(ctx, synthesisSystemPrompt, b.String())
}

func (c *ChatResponder) complete(ctx context.Context, system, user string) (string, error) {
	content, err := c.client.Complete(ctx, c.model, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCollaboratorFailure, err)
	}
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrCollaboratorFailure)
	}
	return content, nil
}
