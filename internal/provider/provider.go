package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/dosewatch/dosewatch/internal/domain"
)

// Provider is the outbound delivery port: the external "send this reminder"
// capability the engine depends on.
type Provider interface {
	Send(ctx context.Context, reminder Reminder) (*Response, error)
}

// Reminder is the delivery payload for one due dose.
type Reminder struct {
	To      string
	Channel domain.Channel
	Subject string
	Body    string
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.To) == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}
	if !r.Channel.IsValid() || r.Channel == domain.ChannelNone {
		return fmt.Errorf("%w: invalid delivery channel %q", domain.ErrValidation, r.Channel)
	}
	if strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("%w: body is required", domain.ErrValidation)
	}
	return nil
}

// Response stores delivery call metadata for audit logging.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
