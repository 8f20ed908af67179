package middleware

import (
	"context"

	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/pkg/cmd"
)

// WithGuildOnly drops invocations that do not come from a guild channel.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if command.GuildID(inv.Data) == "" {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}
