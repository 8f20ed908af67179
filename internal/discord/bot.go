package discord

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/keshon/santa/internal/bot"
	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/internal/config"
	"github.com/keshon/santa/internal/storage"
	"github.com/keshon/santa/pkg/cmd"
	"github.com/keshon/santa/pkg/jobmgr"

	"github.com/bwmarrin/discordgo"
)

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	registry *cmd.Registry
	commands *commandSync

	mu   sync.Mutex
	ctx  context.Context
	jobs *jobmgr.Manager
}

// NewBot creates the session and wires handlers. Nothing connects until Run.
func NewBot(cfg *config.Config, store *storage.Storage, reg *cmd.Registry) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		dg:       dg,
		cfg:      cfg,
		storage:  store,
		registry: reg,
		commands: newCommandSync(dg, store, cfg.CommandRegisterRPS),
	}
	b.setContext(context.Background())

	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onMessageCreate)

	return b, nil
}

// Session exposes the underlying session, e.g. for the webhook client.
func (b *Bot) Session() *discordgo.Session {
	return b.dg
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.setContext(ctx)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")

	// No new gateway events once closed; then drain the jobs they started.
	err := b.dg.Close()
	b.background().Shutdown()
	if err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

// setContext scopes command runs and background jobs to ctx.
func (b *Bot) setContext(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = ctx
	b.jobs = jobmgr.NewManager(ctx, func(msg string) {
		log.Printf("[DEBUG] [jobs] %s", msg)
	})
}

func (b *Bot) runContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

func (b *Bot) background() *jobmgr.Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jobs
}

// configureIntents asks for guild, message and message content events.
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.isGuildBlacklisted(g.ID) {
			b.leaveGuild(s, g.ID, g.Name)
		}
	}
	log.Printf("[INFO] ✅ Discord bot %v is running in %d guild(s).", r.User.Username, len(r.Guilds))
}

// onGuildCreate fires for every guild once the gateway is up and when the
// bot joins a new one.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.isGuildBlacklisted(g.ID) {
		b.leaveGuild(s, g.ID, g.Name)
		return
	}
	log.Printf("[INFO] Guild available: %s (%s)", g.Name, g.ID)

	if !b.cfg.InitSlashCommands {
		log.Println("[INFO] Registering slash commands skipped")
		return
	}

	guildID := g.ID
	b.background().Start("commands:"+guildID, func(ctx context.Context) error {
		if err := b.registerCommands(ctx, guildID); err != nil {
			log.Printf("[ERR] Error registering slash commands for guild %s: %v", guildID, err)
			return err
		}
		return nil
	})
}

func (b *Bot) leaveGuild(s *discordgo.Session, guildID, name string) {
	log.Printf("[INFO] Leaving blacklisted guild: %s (%s)", guildID, name)
	if err := s.GuildLeave(guildID); err != nil {
		log.Printf("[ERR] Failed to leave guild %s: %v", guildID, err)
	}
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.DiscordGuildBlacklist, guildID)
}

// registerCommands syncs the registry's slash commands for a guild.
func (b *Bot) registerCommands(ctx context.Context, guildID string) error {
	appID, err := b.appID()
	if err != nil {
		return err
	}
	return b.commands.sync(ctx, appID, guildID, commandDefinitions(b.registry))
}

// appID returns the bot's application ID, fetching from Discord if not cached in State.
func (b *Bot) appID() (string, error) {
	if u := b.dg.State.User; u != nil && u.ID != "" {
		return u.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return u.ID, nil
}

// onInteractionCreate dispatches slash commands through the registry.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.CommandType != discordgo.ChatApplicationCommand {
		return
	}

	c, ok := b.registry.Get(data.Name)
	if !ok {
		log.Printf("[WARN] Unknown command: %s", data.Name)
		return
	}

	ctx := &command.SlashInteractionContext{
		Session: s,
		Event:   i,
		Storage: b.storage,
	}
	if err := c.Run(b.runContext(), &cmd.Invocation{Data: ctx}); err != nil {
		log.Println("[ERR] Error running slash command:", err)
		bot.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{Description: fmt.Sprintf("Error running slash command: %v", err)})
	}
}

// onMessageCreate dispatches "@bot <command> [args...]" messages.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || s.State.User == nil {
		return
	}

	name, args, ok := parseMention(m.Content, s.State.User.ID)
	if !ok {
		return
	}

	c, found := b.registry.Get(name)
	if !found {
		return
	}

	ctx := &command.MessageContext{
		Session: s,
		Event:   m,
		Storage: b.storage,
		Args:    args,
	}
	if err := c.Run(b.runContext(), &cmd.Invocation{Args: args, Data: ctx}); err != nil {
		log.Println("[ERR] Error running message command:", err)
		bot.MessageEmbed(s, m.ChannelID, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Error running command: %v", err),
		})
	}
}
