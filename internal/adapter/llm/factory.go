package llm

import (
	"time"

	"go.uber.org/zap"
)

// Options selects and configures a Responder.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// Delay is the simulated latency of the template responder.
	Delay time.Duration
}

// NewResponder returns a chat-backed responder when BaseURL is set, otherwise templates.
func NewResponder(opts Options, logger *zap.Logger) Responder {
	if opts.BaseURL == "" {
		logger.Info("responder_selected", zap.String("kind", "template"))
		return NewTemplateResponder(opts.Delay)
	}
	logger.Info("responder_selected", zap.String("kind", "chat"), zap.String("base_url", opts.BaseURL), zap.String("model", opts.Model))
	return NewChatResponder(NewClient(opts.BaseURL, opts.APIKey, opts.Timeout), opts.Model)
}
