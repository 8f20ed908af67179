package grinch

import (
	"context"
	"log"

	core "github.com/keshon/santa/internal/grinch"
	"github.com/keshon/santa/internal/storage"
)

// StorageAuditor appends persona events to the guild record.
func StorageAuditor(store *storage.Storage) core.Auditor {
	return core.AuditorFunc(func(_ context.Context, e core.Event) {
		if store == nil || e.GuildID == "" {
			return
		}
		err := store.AppendPersonaEvent(e.GuildID, storage.PersonaEvent{
			Action:      string(e.Action),
			ChannelID:   e.ChannelID,
			ChannelName: e.ChannelName,
			UserID:      e.ActorID,
			Username:    e.ActorName,
			WebhookID:   e.WebhookID,
			Datetime:    e.At,
		})
		if err != nil {
			log.Printf("[WARN] Failed to store grinch %s event for guild %s: %v", e.Action, e.GuildID, err)
		}
	})
}
