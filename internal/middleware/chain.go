package middleware

import (
	"github.com/keshon/santa/internal/config"
	"github.com/keshon/santa/pkg/cmd"
)

// Default is the chain every command is registered with. Apply makes the last
// entry outermost, so only guild invocations that pass the permission check
// reach the command logger.
func Default(cfg *config.Config) []cmd.Middleware {
	return defaultChain(cfg, discordGate{})
}

func defaultChain(cfg *config.Config, gate permissionGate) []cmd.Middleware {
	return []cmd.Middleware{
		WithCommandLogger(),
		withUserPermissionCheck(cfg, gate),
		WithGuildOnly(),
	}
}
