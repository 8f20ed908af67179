// Package grinch implements the webhook-backed persona that can be summoned
// into a channel to post taunts, and banished again.
package grinch

import (
	"context"
	"errors"
	"fmt"
)

// State is the lifecycle position of a persona.
type State int

const (
	StateAbsent State = iota
	StateActive
	StateBanished
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateActive:
		return "active"
	case StateBanished:
		return "banished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Identity is the name and avatar a persona posts under.
type Identity struct {
	Name      string
	AvatarURL string
}

// Hook is the platform handle of a created webhook.
type Hook struct {
	ID        string
	Token     string
	ChannelID string
}

// Hooks is the webhook capability the persona is built on. Implementations
// must return errors matching ErrForbidden or ErrGone where they apply.
type Hooks interface {
	Create(ctx context.Context, channelID, name, reason string) (*Hook, error)
	Send(ctx context.Context, hook *Hook, text string, as Identity) error
	Delete(ctx context.Context, hook *Hook, reason string) error
}

// Persona posts messages through a single webhook under a fixed identity.
// It is not safe for concurrent use; the Router serializes access per channel.
type Persona struct {
	hooks    Hooks
	hook     *Hook
	identity Identity

	state         State
	retirePending bool
}

// NewPersona wraps an already created webhook.
func NewPersona(hooks Hooks, hook *Hook, identity Identity) *Persona {
	return &Persona{
		hooks:    hooks,
		hook:     hook,
		identity: identity,
		state:    StateActive,
	}
}

func (p *Persona) Hook() *Hook  { return p.hook }
func (p *Persona) State() State { return p.state }

// RetirePending reports whether a previous Retire was refused by the
// platform and the webhook is still live.
func (p *Persona) RetirePending() bool { return p.retirePending }

// Send posts text as the persona. No retry is attempted.
func (p *Persona) Send(ctx context.Context, text string) error {
	if p.state != StateActive {
		return fmt.Errorf("send as %s: %w", p.state, ErrInvalidState)
	}
	return p.hooks.Send(ctx, p.hook, text, p.identity)
}

// Retire deletes the webhook, recording actor in the audit reason. A webhook
// that is already gone counts as retired. On ErrForbidden the persona stays
// active and is marked RetirePending.
func (p *Persona) Retire(ctx context.Context, actor string) error {
	if p.state != StateActive {
		return fmt.Errorf("retire %s persona: %w", p.state, ErrInvalidState)
	}

	reason := fmt.Sprintf("%s banished %s", actor, p.identity.Name)
	err := p.hooks.Delete(ctx, p.hook, reason)
	switch {
	case err == nil, errors.Is(err, ErrGone):
		p.state = StateBanished
		p.retirePending = false
		return nil
	case errors.Is(err, ErrForbidden):
		p.retirePending = true
		return err
	default:
		return err
	}
}
