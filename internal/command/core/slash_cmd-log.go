package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/santa/internal/bot"
	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/internal/storage"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMessageLength = 2000
	codeLeftBlockWrapper    = "```md"
	codeRightBlockWrapper   = "```"
)

var maxContentLength = discordMaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper) - 1

// LogCommand shows the guild's recent command history.
type LogCommand struct{}

func (c *LogCommand) Name() string        { return "cmd-log" }
func (c *LogCommand) Description() string { return "Review recent commands" }
func (c *LogCommand) Group() string       { return "core" }
func (c *LogCommand) Category() string    { return "⚙️ Settings" }
func (c *LogCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionAdministrator}
}

func (c *LogCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *LogCommand) Run(ctx context.Context, data interface{}) error {
	switch v := data.(type) {
	case *command.SlashInteractionContext:
		msg := historyMessage(v.Storage, v.Event.GuildID)
		return bot.RespondEphemeral(v.Session, v.Event, msg)
	case *command.MessageContext:
		msg := historyMessage(v.Storage, v.Event.GuildID)
		return bot.Reply(v.Session, v.Event.Message, msg)
	}
	return nil
}

func historyMessage(store *storage.Storage, guildID string) string {
	if store == nil {
		return "No command logs found."
	}
	records, err := store.GetCommandsHistory(guildID)
	if err != nil {
		return fmt.Sprintf("Failed to fetch command logs: %v", err)
	}
	return formatHistory(records)
}

// formatHistory renders records latest first as an md code block that fits
// one Discord message.
func formatHistory(records []storage.CommandHistoryRecord) string {
	if len(records) == 0 {
		return "No command logs found."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-19s\t%-15s\t%-12s\t%s\n", "# Datetime", "# Username", "# Channel", "# Command"))

	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		line := fmt.Sprintf(
			"%-19s\t%-15s\t#%-12s\t/%s\n",
			r.Datetime.Format("2006-01-02 15:04:05"),
			r.Username,
			r.ChannelName,
			r.Command,
		)

		if builder.Len()+len(line) > maxContentLength {
			break
		}
		builder.WriteString(line)
	}

	return codeLeftBlockWrapper + "\n" + builder.String() + codeRightBlockWrapper
}
