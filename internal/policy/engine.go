// Package policy evaluates admission rules for human submissions.
package policy

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query     rego.PreparedEvalQuery
	maxLength int
}

// Input is what a submission policy sees.
type Input struct {
	DiscussionID string `json:"discussion_id"`
	SenderID     string `json:"sender_id"`
	Content      string `json:"content"`
	Length       int    `json:"length"`
	MaxLength    int    `json:"max_length"`
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string, maxLength int) (*Engine, error) {
	r := rego.New(
		rego.Query("data.submission_policy.result"),
		rego.Module("submission_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query, maxLength: maxLength}, nil
}

// LoadEngine reads the policy from path, falling back to DefaultPolicy when path is empty.
func LoadEngine(ctx context.Context, path string, maxLength int) (*Engine, error) {
	content := DefaultPolicy
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		content = string(data)
	}
	return NewEngine(ctx, content, maxLength)
}

// Evaluate checks a submission.
// Returns: decision (allow, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, discussionID, senderID, content string) (string, string, error) {
	input := Input{
		DiscussionID: discussionID,
		SenderID:     senderID,
		Content:      content,
		Length:       utf8.RuneCountInString(content),
		MaxLength:    e.maxLength,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case string:
		return v, "", nil
	case map[string]interface{}:
		decision, _ := v["decision"].(string)
		reason, _ := v["reason"].(string)
		if decision == "" {
			decision = DecisionAllow
		}
		return decision, reason, nil
	}
	return DecisionAllow, "unexpected return type", nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package submission_policy

default decision = "allow"

default reason = ""

empty_content {
	trim_space(input.content) == ""
}

too_long {
	not empty_content
	input.max_length > 0
	input.length > input.max_length
}

decision = "block" {
	empty_content
}

decision = "block" {
	too_long
}

reason = "content is empty" {
	empty_content
}

reason = "content exceeds maximum length" {
	too_long
}

result = {"decision": decision, "reason": reason}
`
