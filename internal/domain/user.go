package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel represents the delivery channel a user prefers.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
	// ChannelNone disables reminder delivery for the user.
	ChannelNone Channel = "NONE"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelNone:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// User is the reminder recipient. The engine reads only the fields below.
type User struct {
	ID        string
	Name      string
	Target    string
	Channel   Channel
	CreatedAt time.Time
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !u.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, u.Channel)
	}
	return nil
}

// CanReceive reports whether the user has a usable delivery target.
func (u *User) CanReceive() bool {
	if u == nil {
		return false
	}
	return u.Channel.IsValid() && u.Channel != ChannelNone && strings.TrimSpace(u.Target) != ""
}
