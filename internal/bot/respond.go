// Package bot holds Discord response helpers shared by commands, middleware
// and the gateway handlers.
package bot

import (
	"github.com/bwmarrin/discordgo"
)

const EmbedColor = 0x2e8b57

// --- Interaction responses ---

// RespondDeferred acknowledges an interaction publicly; the answer follows
// through Followup.
func RespondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// RespondEphemeral sends a plain text ephemeral response to an interaction.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// RespondEmbedEphemeral sends an ephemeral embed response to an interaction.
func RespondEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	if embed.Color == 0 {
		embed.Color = EmbedColor
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// --- Followup messages ---

// Followup sends a public followup message.
func Followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
	return err
}

// --- Channel messages (non-interaction) ---

// Message sends a plain text message to a channel.
func Message(s *discordgo.Session, channelID, content string) error {
	_, err := s.ChannelMessageSend(channelID, content)
	return err
}

// Reply sends content as a reply to message m.
func Reply(s *discordgo.Session, m *discordgo.Message, content string) error {
	_, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference())
	return err
}

// MessageEmbed sends an embed to a channel.
func MessageEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) error {
	if embed.Color == 0 {
		embed.Color = EmbedColor
	}
	_, err := s.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// --- Lookups ---

// ChannelName resolves a channel name from state, falling back to the REST API.
func ChannelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil && ch != nil {
		return ch.Name
	}
	if ch, err := s.Channel(channelID); err == nil && ch != nil {
		return ch.Name
	}
	return ""
}

// GuildName resolves a guild name from state, falling back to the REST API.
func GuildName(s *discordgo.Session, guildID string) string {
	if g, err := s.State.Guild(guildID); err == nil && g != nil {
		return g.Name
	}
	if g, err := s.Guild(guildID); err == nil && g != nil {
		return g.Name
	}
	return ""
}

// ResolveUser returns the user behind an interaction, whether sent in a guild or a DM.
func ResolveUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}
