package discord

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/internal/storage"
	"github.com/keshon/santa/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMention(t *testing.T) {
	cases := []struct {
		content string
		name    string
		args    []string
		ok      bool
	}{
		{content: "<@42> grinch summon force", name: "grinch", args: []string{"summon", "force"}, ok: true},
		{content: "  <@!42>   Grinch  ", name: "grinch", args: []string{}, ok: true},
		{content: "<@42>", ok: false},
		{content: "grinch summon", ok: false},
		{content: "hey <@42> grinch", ok: false},
		{content: "<@43> grinch", ok: false},
	}
	for _, tc := range cases {
		name, args, ok := parseMention(tc.content, "42")
		assert.Equal(t, tc.ok, ok, tc.content)
		if tc.ok {
			assert.Equal(t, tc.name, name, tc.content)
			assert.Equal(t, tc.args, args, tc.content)
		}
	}
}

func testDefinition(description string) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "grinch",
		Description: description,
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "force", Description: "f"},
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "a",
				Choices: []*discordgo.ApplicationCommandOptionChoice{{Name: "summon", Value: "summon"}},
			},
		},
	}
}

func TestHashCommand(t *testing.T) {
	a := testDefinition("Summon or banish the Grinch")
	b := testDefinition("Summon or banish the Grinch")
	// Option order and runtime IDs do not matter.
	b.Options[0], b.Options[1] = b.Options[1], b.Options[0]
	b.ID, b.Version = "123", "7"

	assert.Equal(t, hashCommand(a), hashCommand(b))
	assert.NotEqual(t, hashCommand(a), hashCommand(testDefinition("Something else")))
}

func TestRestStatus(t *testing.T) {
	rest := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	assert.Equal(t, http.StatusTooManyRequests, restStatus(rest))
	assert.Equal(t, http.StatusTooManyRequests, restStatus(errors.Join(errors.New("wrapped"), rest)))
	assert.Equal(t, 0, restStatus(errors.New("plain")))
	assert.Equal(t, 0, restStatus(nil))
}

type fakeCommandAPI struct {
	remote  []*discordgo.ApplicationCommand
	created []string
	deleted []string
	failOn  string
}

func (f *fakeCommandAPI) ApplicationCommands(appID, guildID string, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	return append([]*discordgo.ApplicationCommand(nil), f.remote...), nil
}

func (f *fakeCommandAPI) ApplicationCommandCreate(appID, guildID string, c *discordgo.ApplicationCommand, _ ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	if c.Name == f.failOn {
		return nil, &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadRequest}}
	}
	f.created = append(f.created, c.Name)
	f.remote = append(f.remote, &discordgo.ApplicationCommand{ID: "id-" + c.Name, Name: c.Name})
	return c, nil
}

func (f *fakeCommandAPI) ApplicationCommandDelete(appID, guildID, cmdID string, _ ...discordgo.RequestOption) error {
	f.deleted = append(f.deleted, cmdID)
	var kept []*discordgo.ApplicationCommand
	for _, rc := range f.remote {
		if rc.ID != cmdID {
			kept = append(kept, rc)
		}
	}
	f.remote = kept
	return nil
}

func newTestSync(t *testing.T, api commandAPI) (*commandSync, *storage.Storage) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "datastore.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newCommandSync(api, store, 50), store
}

func TestCommandSync(t *testing.T) {
	api := &fakeCommandAPI{remote: []*discordgo.ApplicationCommand{{ID: "old-1", Name: "purge"}}}
	cs, store := newTestSync(t, api)
	ctx := context.Background()
	defs := []*discordgo.ApplicationCommand{testDefinition("Summon or banish the Grinch")}

	require.NoError(t, cs.sync(ctx, "app", "g1", defs))
	assert.Equal(t, []string{"old-1"}, api.deleted)
	assert.Equal(t, []string{"grinch"}, api.created)

	hashes, err := store.CommandHashes("g1")
	require.NoError(t, err)
	assert.Equal(t, hashCommand(defs[0]), hashes["grinch"])

	// Unchanged definitions are not registered again.
	require.NoError(t, cs.sync(ctx, "app", "g1", defs))
	assert.Equal(t, []string{"grinch"}, api.created)

	// A changed definition is.
	changed := []*discordgo.ApplicationCommand{testDefinition("Summon the Grinch")}
	require.NoError(t, cs.sync(ctx, "app", "g1", changed))
	assert.Equal(t, []string{"grinch", "grinch"}, api.created)
}

func TestCommandSync_RecreatesMissingRemote(t *testing.T) {
	api := &fakeCommandAPI{}
	cs, store := newTestSync(t, api)
	defs := []*discordgo.ApplicationCommand{testDefinition("Summon or banish the Grinch")}

	require.NoError(t, store.SetCommandHashes("g1", map[string]string{"grinch": hashCommand(defs[0])}))
	require.NoError(t, cs.sync(context.Background(), "app", "g1", defs))
	assert.Equal(t, []string{"grinch"}, api.created)
}

func TestCommandSync_FailedCreateIsNotCached(t *testing.T) {
	api := &fakeCommandAPI{failOn: "grinch"}
	cs, store := newTestSync(t, api)
	defs := []*discordgo.ApplicationCommand{testDefinition("Summon or banish the Grinch")}

	require.NoError(t, cs.sync(context.Background(), "app", "g1", defs))
	assert.Empty(t, api.created)

	hashes, err := store.CommandHashes("g1")
	require.NoError(t, err)
	assert.NotContains(t, hashes, "grinch")
}

type slashStub struct{}

func (slashStub) Name() string             { return "grinch" }
func (slashStub) Description() string      { return "stub" }
func (slashStub) Group() string            { return "grinch" }
func (slashStub) Category() string         { return "test" }
func (slashStub) UserPermissions() []int64 { return nil }
func (slashStub) Run(context.Context, interface{}) error {
	return nil
}
func (slashStub) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: "grinch", Description: "stub"}
}

type textStub struct{ slashStub }

func (textStub) Name() string { return "ping" }
func (textStub) SlashDefinition() *discordgo.ApplicationCommand {
	return nil
}

func TestCommandDefinitions(t *testing.T) {
	reg := cmd.NewRegistry()
	passthrough := func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, c.Run)
	}
	command.RegisterCommand(reg, slashStub{}, passthrough)
	command.RegisterCommand(reg, textStub{})

	defs := commandDefinitions(reg)
	require.Len(t, defs, 1)
	assert.Equal(t, "grinch", defs[0].Name)
	assert.Equal(t, discordgo.ChatApplicationCommand, defs[0].Type)
}
