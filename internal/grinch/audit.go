package grinch

import (
	"context"
	"log"
	"time"
)

// Action names a persona lifecycle transition.
type Action string

const (
	ActionSummoned Action = "summoned"
	ActionBanished Action = "banished"
	// ActionVanished is recorded when the webhook disappeared on the
	// platform side without a banish.
	ActionVanished Action = "vanished"
)

// Event is one audit record.
type Event struct {
	Action       Action
	GuildID      string
	ChannelID    string
	ChannelName  string
	ActorID      string
	ActorName    string
	ActorMention string
	WebhookID    string
	At           time.Time
}

// Auditor receives lifecycle events. Delivery is fire-and-forget.
type Auditor interface {
	Record(ctx context.Context, e Event)
}

// AuditorFunc adapts a function to Auditor.
type AuditorFunc func(ctx context.Context, e Event)

func (f AuditorFunc) Record(ctx context.Context, e Event) { f(ctx, e) }

// LogAuditor writes events to the standard logger.
type LogAuditor struct{}

func (LogAuditor) Record(_ context.Context, e Event) {
	log.Printf("[AUDIT] > %s (%s, %s) %s the Grinch in #%s (%s), webhook %s",
		e.ActorName, e.ActorID, e.ActorMention, e.Action, e.ChannelName, e.ChannelID, e.WebhookID)
}

// MultiAuditor fans an event out to every non-nil auditor in order.
func MultiAuditor(auditors ...Auditor) Auditor {
	return AuditorFunc(func(ctx context.Context, e Event) {
		for _, a := range auditors {
			if a != nil {
				a.Record(ctx, e)
			}
		}
	})
}
