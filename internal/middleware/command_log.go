package middleware

import (
	"context"
	"log"

	"github.com/keshon/santa/internal/bot"
	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/internal/storage"
	"github.com/keshon/santa/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

// WithCommandLogger records every execution into the guild's command history.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)

			switch v := inv.Data.(type) {
			case *command.SlashInteractionContext:
				e := v.Event
				user := bot.ResolveUser(e)
				if lerr := logCommand(v.Session, v.Storage, e.GuildID, e.ChannelID, user.ID, user.Username, c.Name()); lerr != nil {
					log.Printf("[WARN] Failed to log command /%s: %v", c.Name(), lerr)
				}
			case *command.MessageContext:
				e := v.Event
				if e.Author == nil {
					break
				}
				if lerr := logCommand(v.Session, v.Storage, e.GuildID, e.ChannelID, e.Author.ID, e.Author.Username, c.Name()); lerr != nil {
					log.Printf("[WARN] Failed to log message command %s: %v", c.Name(), lerr)
				}
			}
			return err
		})
	}
}

// logCommand stores a history entry, resolving channel and guild names from state.
func logCommand(s *discordgo.Session, store *storage.Storage, guildID, channelID, userID, username, commandName string) error {
	if store == nil || guildID == "" {
		return nil
	}
	channelName := bot.ChannelName(s, channelID)
	guildName := bot.GuildName(s, guildID)
	return store.AppendCommandHistory(guildID, channelID, channelName, guildName, userID, username, commandName)
}
