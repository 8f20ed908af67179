package grinch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/keshon/santa/internal/bot"
	"github.com/keshon/santa/internal/command"
	core "github.com/keshon/santa/internal/grinch"
	"github.com/keshon/santa/internal/storage"

	"github.com/bwmarrin/discordgo"
)

const (
	actionSummon = "summon"
	actionBanish = "banish"
	actionStatus = "status"
	flagForce    = "force"

	statusEventsLimit = 5
)

// Router is the part of *core.Router the command drives.
type Router interface {
	Summon(ctx context.Context, req core.Request, force bool) error
	Banish(ctx context.Context, req core.Request) error
	Poke(ctx context.Context, req core.Request) error
	Status(channelID string) (core.State, bool)
}

// personaLog is the read side of the persona event history.
type personaLog interface {
	GetPersonaEvents(guildID string) ([]storage.PersonaEvent, error)
}

// GrinchCommand summons and banishes the Grinch persona of a channel.
type GrinchCommand struct {
	Router Router
}

func (c *GrinchCommand) Name() string        { return "grinch" }
func (c *GrinchCommand) Description() string { return "Summon or banish the Grinch" }
func (c *GrinchCommand) Group() string       { return "grinch" }
func (c *GrinchCommand) Category() string    { return "🎭 Roleplay" }
func (c *GrinchCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionManageMessages}
}

func (c *GrinchCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "action",
				Description: "What to do with the Grinch",
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "summon", Value: actionSummon},
					{Name: "banish", Value: actionBanish},
					{Name: "status", Value: actionStatus},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        flagForce,
				Description: "Banish the current Grinch before summoning a new one",
				Required:    false,
			},
		},
	}
}

func (c *GrinchCommand) Run(ctx context.Context, data interface{}) error {
	switch v := data.(type) {
	case *command.SlashInteractionContext:
		if err := bot.RespondDeferred(v.Session, v.Event); err != nil {
			return err
		}
		args := slashArgs(v.Event.ApplicationCommandData().Options)
		c.dispatch(ctx, slashRequest(v), args, logOf(v.Storage))
	case *command.MessageContext:
		c.dispatch(ctx, messageRequest(v), v.Args, logOf(v.Storage))
	}
	return nil
}

func logOf(store *storage.Storage) personaLog {
	if store == nil {
		return nil
	}
	return store
}

// dispatch runs one invocation. The router answers the invoker itself, so
// failures are only logged here.
func (c *GrinchCommand) dispatch(ctx context.Context, req core.Request, args []string, events personaLog) {
	action, force := parseArgs(args)

	var err error
	switch action {
	case actionSummon:
		err = c.Router.Summon(ctx, req, force)
	case actionBanish:
		err = c.Router.Banish(ctx, req)
	case actionStatus:
		err = c.status(req, events)
	default:
		err = c.Router.Poke(ctx, req)
	}

	if err != nil {
		level := "[WARN]"
		if errors.Is(err, core.ErrInvalidState) {
			level = "[INFO]"
		}
		log.Printf("%s grinch %s by %s in #%s (%s): %v", level, actionName(action), req.ActorName, req.ChannelName, req.ChannelID, err)
	}
}

// status answers with the channel's persona state and its latest events.
func (c *GrinchCommand) status(req core.Request, events personaLog) error {
	state, pending := c.Router.Status(req.ChannelID)

	var recent []storage.PersonaEvent
	if events != nil && req.GuildID != "" {
		all, err := events.GetPersonaEvents(req.GuildID)
		if err != nil {
			log.Printf("[WARN] Failed to read grinch events for guild %s: %v", req.GuildID, err)
		}
		recent = channelEvents(all, req.ChannelID, statusEventsLimit)
	}

	if req.Reply == nil {
		return nil
	}
	return req.Reply(formatStatus(state, pending, recent))
}

// channelEvents returns up to limit events of a channel, newest first.
func channelEvents(all []storage.PersonaEvent, channelID string, limit int) []storage.PersonaEvent {
	var out []storage.PersonaEvent
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if all[i].ChannelID == channelID {
			out = append(out, all[i])
		}
	}
	return out
}

func formatStatus(state core.State, pending bool, recent []storage.PersonaEvent) string {
	var b strings.Builder
	if state == core.StateActive {
		b.WriteString("The Grinch is in this channel.")
	} else {
		b.WriteString("No Grinch in this channel.")
	}
	if pending {
		b.WriteString(" A banish is waiting for the `manage webhook` permission.")
	}
	if len(recent) == 0 {
		return b.String()
	}

	b.WriteString("\n```md\n")
	for _, e := range recent {
		fmt.Fprintf(&b, "%-19s\t%-9s\t%s\n", e.Datetime.Format("2006-01-02 15:04:05"), e.Action, e.Username)
	}
	b.WriteString("```")
	return b.String()
}

// parseArgs reads "[summon|banish|status] [force]". Anything unrecognised
// falls through to the bare invocation.
func parseArgs(args []string) (action string, force bool) {
	for i, a := range args {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case i == 0 && (a == actionSummon || a == actionBanish || a == actionStatus):
			action = a
		case a == flagForce || a == "--"+flagForce:
			force = true
		}
	}
	return action, force
}

func actionName(action string) string {
	if action == "" {
		return "poke"
	}
	return action
}

// slashArgs flattens slash options into the word form of the message command.
func slashArgs(opts []*discordgo.ApplicationCommandInteractionDataOption) []string {
	var action string
	var force bool
	for _, opt := range opts {
		switch opt.Name {
		case "action":
			action = opt.StringValue()
		case flagForce:
			force = opt.BoolValue()
		}
	}

	args := []string{action}
	if force {
		args = append(args, flagForce)
	}
	return args
}

func slashRequest(v *command.SlashInteractionContext) core.Request {
	s, e := v.Session, v.Event
	user := bot.ResolveUser(e)

	name := user.DisplayName()
	if e.Member != nil {
		name = e.Member.DisplayName()
	}

	return core.Request{
		GuildID:      e.GuildID,
		ChannelID:    e.ChannelID,
		ChannelName:  bot.ChannelName(s, e.ChannelID),
		ActorID:      user.ID,
		ActorName:    name,
		ActorMention: user.Mention(),
		Reply: func(text string) error {
			return bot.Followup(s, e, text)
		},
	}
}

func messageRequest(v *command.MessageContext) core.Request {
	s, m := v.Session, v.Event

	name := m.Author.DisplayName()
	if m.Member != nil {
		// Gateway members on messages carry no User; DisplayName only reads Nick.
		if nick := m.Member.Nick; nick != "" {
			name = nick
		}
	}

	return core.Request{
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		ChannelName:  bot.ChannelName(s, m.ChannelID),
		ActorID:      m.Author.ID,
		ActorName:    name,
		ActorMention: m.Author.Mention(),
		Reply: func(text string) error {
			return bot.Message(s, m.ChannelID, text)
		},
		Typing: func() error {
			return s.ChannelTyping(m.ChannelID)
		},
	}
}
