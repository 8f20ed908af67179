package grinch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Scripted lines. These are product copy.
var greetings = []string{
	"Whats up lol im the Grinch.",
	"im here to steal your presents",
}

const (
	taunt = "Yes? What do you want?"
	usage = "Usage: `grinch <summon/banish>`"

	msgCannotCreate   = "I can't create a webhook for this channel."
	msgSummonFailed   = "Failed to summon the Grinch. Try again later."
	msgAlreadyHere    = "The Grinch is already here. Use `grinch banish` first."
	msgNothingHere    = "There is no Grinch to banish."
	msgNeedManageHook = "Please give me the `manage webhook` permission."
	msgBanishFailed   = "Failed to banish the Grinch. Try again later."
)

// Request is the routing context of one command invocation.
type Request struct {
	GuildID      string
	ChannelID    string
	ChannelName  string
	ActorID      string
	ActorName    string
	ActorMention string

	// Reply sends a one-line message back to the invoker.
	Reply func(text string) error
	// Typing, when set, shows a typing indicator. Failures are ignored.
	Typing func() error
}

func (req Request) reply(text string) {
	if req.Reply == nil {
		return
	}
	if err := req.Reply(text); err != nil {
		log.Printf("[WARN] Failed to reply in channel %s: %v", req.ChannelID, err)
	}
}

func (req Request) typing() {
	if req.Typing != nil {
		_ = req.Typing()
	}
}

// Router owns at most one persona per channel and runs the summon, banish
// and poke transitions. Invocations for the same channel are serialized;
// different channels proceed independently.
type Router struct {
	hooks    Hooks
	identity Identity
	audit    Auditor
	now      func() time.Time

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu      sync.Mutex
	persona *Persona
	refs    int // guarded by Router.mu
}

// NewRouter creates a Router posting as identity. A nil auditor logs events.
func NewRouter(hooks Hooks, identity Identity, audit Auditor) *Router {
	if audit == nil {
		audit = LogAuditor{}
	}
	return &Router{
		hooks:    hooks,
		identity: identity,
		audit:    audit,
		now:      time.Now,
		slots:    make(map[string]*slot),
	}
}

// lock returns the locked slot of a channel. Without create, a channel
// that has no slot yields nil. Every non-nil result must be released.
func (r *Router) lock(channelID string, create bool) *slot {
	r.mu.Lock()
	s, ok := r.slots[channelID]
	if !ok {
		if !create {
			r.mu.Unlock()
			return nil
		}
		s = &slot{}
		r.slots[channelID] = s
	}
	s.refs++
	r.mu.Unlock()

	s.mu.Lock()
	return s
}

// release unlocks s and drops it from the map when it is empty and nobody
// else holds or waits for it.
func (r *Router) release(channelID string, s *slot) {
	empty := s.persona == nil

	r.mu.Lock()
	s.refs--
	if s.refs == 0 && empty {
		delete(r.slots, channelID)
	}
	r.mu.Unlock()

	s.mu.Unlock()
}

// Status reports the persona state in a channel and whether a refused
// banish is waiting to be retried.
func (r *Router) Status(channelID string) (State, bool) {
	s := r.lock(channelID, false)
	if s == nil {
		return StateAbsent, false
	}
	defer r.release(channelID, s)

	if s.persona == nil {
		return StateAbsent, false
	}
	return s.persona.State(), s.persona.RetirePending()
}

// Summon creates the webhook and greets the channel. With force, an active
// persona is banished first instead of rejecting the request.
func (r *Router) Summon(ctx context.Context, req Request, force bool) error {
	s := r.lock(req.ChannelID, true)
	defer r.release(req.ChannelID, s)

	req.typing()

	if s.persona != nil {
		if !force {
			req.reply(msgAlreadyHere)
			return fmt.Errorf("summon in %s: %w", req.ChannelID, ErrInvalidState)
		}
		if err := r.retire(ctx, s, req); err != nil {
			return err
		}
	}

	reason := fmt.Sprintf("%s summoned %s", req.ActorName, r.identity.Name)
	hook, err := r.hooks.Create(ctx, req.ChannelID, r.identity.Name, reason)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			req.reply(msgCannotCreate)
			return err
		}
		req.reply(msgSummonFailed)
		return fmt.Errorf("create webhook: %w", err)
	}

	p := NewPersona(r.hooks, hook, r.identity)
	s.persona = p
	r.record(ctx, ActionSummoned, req, hook)

	req.reply(fmt.Sprintf("%s summoned the Grinch!", req.ActorMention))

	for _, line := range greetings {
		if err := p.Send(ctx, line); err != nil {
			if errors.Is(err, ErrGone) {
				s.persona = nil
				r.record(ctx, ActionVanished, req, hook)
			}
			return fmt.Errorf("send greeting: %w", err)
		}
	}
	return nil
}

// Banish deletes the webhook of the active persona.
func (r *Router) Banish(ctx context.Context, req Request) error {
	s := r.lock(req.ChannelID, false)
	if s != nil {
		defer r.release(req.ChannelID, s)
	}

	if s == nil || s.persona == nil {
		req.reply(msgNothingHere)
		return fmt.Errorf("banish in %s: %w", req.ChannelID, ErrInvalidState)
	}
	if err := r.retire(ctx, s, req); err != nil {
		return err
	}

	req.reply(fmt.Sprintf("%s banished the Grinch!", req.ActorMention))
	return nil
}

// Poke handles the bare group invocation: the persona, if any, gets a
// best-effort taunt and the invoker always gets the usage line.
func (r *Router) Poke(ctx context.Context, req Request) error {
	req.typing()

	s := r.lock(req.ChannelID, false)
	if s == nil {
		req.reply(usage)
		return nil
	}
	defer r.release(req.ChannelID, s)

	if p := s.persona; p != nil {
		if err := p.Send(ctx, taunt); err != nil {
			log.Printf("[WARN] Grinch taunt in channel %s failed: %v", req.ChannelID, err)
			if errors.Is(err, ErrGone) {
				s.persona = nil
				r.record(ctx, ActionVanished, req, p.Hook())
			}
		}
	}

	req.reply(usage)
	return nil
}

// retire must be called with s.mu held and s.persona set. The slot is
// cleared only when the webhook is known to be gone.
func (r *Router) retire(ctx context.Context, s *slot, req Request) error {
	p := s.persona
	if err := p.Retire(ctx, req.ActorName); err != nil {
		if errors.Is(err, ErrForbidden) {
			req.reply(msgNeedManageHook)
			return err
		}
		req.reply(msgBanishFailed)
		return fmt.Errorf("delete webhook: %w", err)
	}

	s.persona = nil
	r.record(ctx, ActionBanished, req, p.Hook())
	return nil
}

func (r *Router) record(ctx context.Context, action Action, req Request, hook *Hook) {
	e := Event{
		Action:       action,
		GuildID:      req.GuildID,
		ChannelID:    req.ChannelID,
		ChannelName:  req.ChannelName,
		ActorID:      req.ActorID,
		ActorName:    req.ActorName,
		ActorMention: req.ActorMention,
		At:           r.now(),
	}
	if hook != nil {
		e.WebhookID = hook.ID
	}
	r.audit.Record(ctx, e)
}
