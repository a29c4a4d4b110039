package notify

import (
	"context"
	"errors"
)

// Template ids understood by every notifier.
const (
	TemplateTaskAssigned = "task_assigned"
	TemplateFormReceived = "form_received"
)

var ErrUnknownTemplate = errors.New("unknown notification template")

// Message is a template id plus a flat parameter map.
type Message struct {
	TemplateID string
	To         string
	Params     map[string]string
}

// Notifier delivers a message. Success means the provider accepted it; there
// is no delivery guarantee.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Noop drops every message.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }
