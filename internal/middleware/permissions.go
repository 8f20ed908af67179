package middleware

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/keshon/santa/internal/bot"
	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/internal/config"
	"github.com/keshon/santa/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:      "Administrator",
	discordgo.PermissionManageChannels:     "Manage Channels",
	discordgo.PermissionManageGuild:        "Manage Server",
	discordgo.PermissionViewChannel:        "View Channel",
	discordgo.PermissionSendMessages:       "Send Messages",
	discordgo.PermissionManageMessages:     "Manage Messages",
	discordgo.PermissionEmbedLinks:         "Embed Links",
	discordgo.PermissionManageRoles:        "Manage Roles",
	discordgo.PermissionManageWebhooks:     "Manage Webhooks",
	discordgo.PermissionModerateMembers:    "Moderate Members",
	discordgo.PermissionKickMembers:        "Kick Members",
	discordgo.PermissionBanMembers:         "Ban Members",
	discordgo.PermissionReadMessageHistory: "Read Message History",
}

// permissionGate reads channel permissions and tells a denied user why.
type permissionGate interface {
	ChannelPermissions(s *discordgo.Session, userID, channelID string) (int64, error)
	DenySlash(s *discordgo.Session, e *discordgo.InteractionCreate, msg string)
	DenyMessage(s *discordgo.Session, m *discordgo.Message, msg string)
}

type discordGate struct{}

func (discordGate) ChannelPermissions(s *discordgo.Session, userID, channelID string) (int64, error) {
	return s.UserChannelPermissions(userID, channelID)
}

func (discordGate) DenySlash(s *discordgo.Session, e *discordgo.InteractionCreate, msg string) {
	_ = bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{Description: msg})
}

func (discordGate) DenyMessage(s *discordgo.Session, m *discordgo.Message, msg string) {
	_ = bot.Reply(s, m, msg)
}

// withUserPermissionCheck requires the invoking member to hold at least one
// of the command's UserPermissions in the channel. Administrators and the
// configured developer always pass.
func withUserPermissionCheck(cfg *config.Config, gate permissionGate) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			meta, ok := cmd.Root(c).(command.DiscordMeta)
			if !ok || len(meta.UserPermissions()) == 0 {
				return c.Run(ctx, inv)
			}
			required := meta.UserPermissions()

			var (
				userID string
				perms  int64
				deny   func(string)
			)

			switch v := inv.Data.(type) {
			case *command.SlashInteractionContext:
				if v.Event.Member == nil || v.Event.Member.User == nil {
					return nil
				}
				userID, perms = v.Event.Member.User.ID, v.Event.Member.Permissions
				deny = func(msg string) { gate.DenySlash(v.Session, v.Event, msg) }
			case *command.MessageContext:
				if v.Event.Author == nil {
					return nil
				}
				userID = v.Event.Author.ID
				p, err := gate.ChannelPermissions(v.Session, userID, v.Event.ChannelID)
				if err != nil {
					return fmt.Errorf("failed to get user permissions: %w", err)
				}
				perms = p
				deny = func(msg string) { gate.DenyMessage(v.Session, v.Event.Message, msg) }
			default:
				return c.Run(ctx, inv)
			}

			if config.IsDeveloper(cfg, userID) || HasAnyPermission(perms, required) {
				return c.Run(ctx, inv)
			}

			log.Printf("[INFO] User %s lacks permissions for /%s", userID, c.Name())
			deny(MissingPermissionsMessage(required))
			return nil
		})
	}
}

// HasAnyPermission reports whether perms grants Administrator or any of required.
func HasAnyPermission(perms int64, required []int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, p := range required {
		if perms&p != 0 {
			return true
		}
	}
	return false
}

// MissingPermissionsMessage lists required permissions by name.
func MissingPermissionsMessage(required []int64) string {
	names := make([]string, 0, len(required))
	for _, p := range required {
		name := PermissionNames[p]
		if name == "" {
			name = fmt.Sprintf("0x%x", p)
		}
		names = append(names, name)
	}
	return fmt.Sprintf(
		"You need at least one of the following permissions to run this command:\n`%s`",
		strings.Join(names, "`, `"),
	)
}
