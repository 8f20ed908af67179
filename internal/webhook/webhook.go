// Package webhook implements grinch.Hooks on top of Discord channel webhooks.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/keshon/santa/internal/grinch"

	"github.com/bwmarrin/discordgo"
)

// restAPI is the subset of *discordgo.Session the client needs.
type restAPI interface {
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookDelete(webhookID string, options ...discordgo.RequestOption) error
}

// Client creates, uses and deletes channel webhooks.
type Client struct {
	api restAPI
}

var _ grinch.Hooks = (*Client)(nil)

// New returns a Client using the given Discord session.
func New(s *discordgo.Session) *Client {
	return &Client{api: s}
}

// Create makes a webhook named name in channelID, tagging the audit log with reason.
func (c *Client) Create(ctx context.Context, channelID, name, reason string) (*grinch.Hook, error) {
	wh, err := c.api.WebhookCreate(channelID, name, "",
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create webhook in %s: %w", channelID, classify(err))
	}
	return &grinch.Hook{ID: wh.ID, Token: wh.Token, ChannelID: wh.ChannelID}, nil
}

// Send executes the webhook with the persona's name and avatar overriding
// the webhook defaults. Mentions in text are not resolved.
func (c *Client) Send(ctx context.Context, hook *grinch.Hook, text string, as grinch.Identity) error {
	params := &discordgo.WebhookParams{
		Content:         text,
		Username:        as.Name,
		AvatarURL:       as.AvatarURL,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if _, err := c.api.WebhookExecute(hook.ID, hook.Token, true, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("could not execute webhook %s: %w", hook.ID, classify(err))
	}
	return nil
}

// Delete removes the webhook, tagging the audit log with reason.
func (c *Client) Delete(ctx context.Context, hook *grinch.Hook, reason string) error {
	err := c.api.WebhookDelete(hook.ID,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		return fmt.Errorf("could not delete webhook %s: %w", hook.ID, classify(err))
	}
	return nil
}

// classify attaches grinch.ErrForbidden or grinch.ErrGone to REST errors
// that carry those meanings, keeping the original error in the chain.
func classify(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}

	code := 0
	if rest.Message != nil {
		code = rest.Message.Code
	}
	status := 0
	if rest.Response != nil {
		status = rest.Response.StatusCode
	}

	switch {
	case code == discordgo.ErrCodeMissingPermissions,
		code == discordgo.ErrCodeMissingAccess,
		status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", grinch.ErrForbidden, err)
	case code == discordgo.ErrCodeUnknownWebhook,
		code == discordgo.ErrCodeUnknownChannel,
		status == http.StatusNotFound:
		return fmt.Errorf("%w: %w", grinch.ErrGone, err)
	}
	return err
}
