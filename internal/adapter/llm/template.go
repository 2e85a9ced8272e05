package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/roundtable/internal/domain"
)

// Voice is how one role phrases its contributions.
type Voice interface {
	// Opening answers the human message directly.
	Opening(subject string) string
	// Followup reacts to the discussion so far.
	Followup(subject string) string
}

type researcher struct{}

func (researcher) Opening(s string) string {
	return fmt.Sprintf("Based on my research about this topic, I can provide the following information: %s involves several key aspects that we should consider. First, the available data suggests... [research perspective]", s)
}

func (researcher) Followup(s string) string {
	return fmt.Sprintf("Building on the previous points, my research indicates that %s has several important aspects we haven't fully explored. The evidence suggests... [research contribution]", s)
}

type critic struct{}

func (critic) Opening(s string) string {
	return fmt.Sprintf("I'd like to critically examine some assumptions in the discussion so far. When we consider %s, we should question whether... [critical perspective]", s)
}

func (critic) Followup(s string) string {
	return fmt.Sprintf("I'd like to challenge some of the assumptions made earlier. When we look at %s more critically, we should consider... [critical contribution]", s)
}

type creative struct{}

func (creative) Opening(s string) string {
	return fmt.Sprintf("Looking at %s from a creative angle, we might consider these novel approaches: What if we tried... [creative perspective]", s)
}

func (creative) Followup(s string) string {
	return fmt.Sprintf("The discussion so far has sparked some interesting ideas. What if we approached %s from this angle instead... [creative contribution]", s)
}

type summarizer struct{}

func (summarizer) Opening(s string) string {
	return fmt.Sprintf("To synthesize the discussion so far about %s, the key points are: 1) ... 2) ... 3) ... [summary perspective]", s)
}

func (summarizer) Followup(s string) string {
	return fmt.Sprintf("To consolidate what we've discussed about %s so far: 1) ... 2) ... 3) ... Let's build on these points by... [summary contribution]", s)
}

type analyst struct{}

func (analyst) Opening(s string) string {
	return fmt.Sprintf("Analyzing %s systematically, we can break this down into several components: First, ... Second, ... Third, ... [analytical perspective]", s)
}

func (analyst) Followup(s string) string {
	return fmt.Sprintf("Analyzing the different perspectives shared on %s, I notice these patterns: First, ... Second, ... This suggests that... [analytical contribution]", s)
}

type generalist struct{}

func (generalist) Opening(s string) string {
	return fmt.Sprintf("Considering %s from multiple angles, I see several important aspects: On one hand... On the other hand... [balanced perspective]", s)
}

func (generalist) Followup(s string) string {
	return fmt.Sprintf("Considering all viewpoints shared about %s, I see merit in multiple approaches. We could synthesize these ideas by... [balanced contribution]", s)
}

var voices = map[domain.RoleTag]Voice{
	domain.RoleResearcher: researcher{},
	domain.RoleCritic:     critic{},
	domain.RoleCreative:   creative{},
	domain.RoleSummarizer: summarizer{},
	domain.RoleAnalyst:    analyst{},
	domain.RoleGeneralist: generalist{},
}

// VoiceFor returns the voice of role; unknown roles speak as generalists.
func VoiceFor(role domain.RoleTag) Voice {
	if v, ok := voices[role]; ok {
		return v
	}
	return generalist{}
}

// TemplateResponder answers with canned, role-shaped contributions.
type TemplateResponder struct {
	delay time.Duration
}

// NewTemplateResponder creates a responder that waits delay before each answer.
func NewTemplateResponder(delay time.Duration) *TemplateResponder {
	return &TemplateResponder{delay: delay}
}

// Respond produces one participant turn.
func (t *TemplateResponder) Respond(ctx context.Context, req *TurnRequest) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	v := VoiceFor(req.Participant.Role)
	if req.Phase == domain.PhaseInitialRound {
		return v.Opening(req.Human.Content), nil
	}
	return v.Followup(leadingWords(FormatTranscript(req.History), 10)), nil
}

// Synthesize produces the closing markdown summary.
func (t *TemplateResponder) Synthesize(ctx context.Context, req *SynthesisRequest) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", err
	}

	counts := make(map[domain.RoleTag]int)
	var order []domain.RoleTag
	for _, m := range req.Messages {
		role := m.Metadata.Role
		if role == "" {
			continue
		}
		if counts[role] == 0 {
			order = append(order, role)
		}
		counts[role]++
	}

	var b strings.Builder
	b.WriteString("# Discussion Summary\n\n")
	b.WriteString("After thorough deliberation among multiple perspectives, we've reached the following conclusions:\n\n")
	b.WriteString("## Key Points\n\n")
	b.WriteString("1. The topic has been examined from multiple angles, including research-based evidence, critical analysis, and creative approaches.\n")
	b.WriteString("2. Several important considerations have emerged through our collaborative reasoning process.\n")
	b.WriteString("3. The different perspectives have contributed to a more comprehensive understanding of the topic.\n\n")
	if len(order) > 0 {
		b.WriteString("## Perspectives\n\n")
		for _, role := range order {
			fmt.Fprintf(&b, "- %s: %d contribution(s)\n", role.Title(), counts[role])
		}
		b.WriteString("\n")
	}
	b.WriteString("## Consensus View\n\n")
	b.WriteString("Based on our collaborative discussion, the most balanced approach appears to be...\n\n")
	b.WriteString("## Next Steps\n\n")
	b.WriteString("To further explore this topic, we recommend...\n\n")
	b.WriteString("This synthesis represents our collective intelligence on the matter, drawing from diverse expertise and reasoning approaches.")
	return b.String(), nil
}

func (t *TemplateResponder) wait(ctx context.Context) error {
	if t.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func leadingWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
