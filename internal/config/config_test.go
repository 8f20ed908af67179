package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "secret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.DiscordToken)
	assert.Equal(t, "datastore.json", cfg.StoragePath)
	assert.Equal(t, "Grinch", cfg.WebhookName)
	assert.Equal(t, "", cfg.WebhookAvatarURL)
	assert.True(t, cfg.InitSlashCommands)
	assert.Equal(t, 5.0, cfg.CommandRegisterRPS)
	assert.Empty(t, cfg.DiscordGuildBlacklist)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("WEBHOOK_NAME", "The Grinch")
	t.Setenv("WEBHOOK_AVATAR_URL", "https://example.com/g.png")
	t.Setenv("DISCORD_GUILD_BLACKLIST", "1,2")
	t.Setenv("INIT_SLASH_COMMANDS", "false")
	t.Setenv("DEVELOPER_ID", "42")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "The Grinch", cfg.WebhookName)
	assert.Equal(t, "https://example.com/g.png", cfg.WebhookAvatarURL)
	assert.Equal(t, []string{"1", "2"}, cfg.DiscordGuildBlacklist)
	assert.False(t, cfg.InitSlashCommands)
	assert.True(t, IsDeveloper(cfg, "42"))
	assert.False(t, IsDeveloper(cfg, "43"))
}

func TestParse_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Parse()
	assert.Error(t, err)
}

func TestParse_InvalidRate(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("COMMAND_REGISTER_RPS", "0")

	_, err := Parse()
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")
	t.Setenv("WEBHOOK_NAME", "")
	os.Unsetenv("WEBHOOK_NAME")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DISCORD_TOKEN=from-file\nWEBHOOK_NAME=Mr Grinch\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DiscordToken)
	assert.Equal(t, "Mr Grinch", cfg.WebhookName)
}

func TestIsDeveloper_Unset(t *testing.T) {
	assert.False(t, IsDeveloper(nil, "1"))
	assert.False(t, IsDeveloper(&Config{}, ""))
}
