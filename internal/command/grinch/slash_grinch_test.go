package grinch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/keshon/santa/internal/command"
	core "github.com/keshon/santa/internal/grinch"
	"github.com/keshon/santa/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	cases := []struct {
		args   []string
		action string
		force  bool
	}{
		{args: nil, action: "", force: false},
		{args: []string{"summon"}, action: "summon"},
		{args: []string{"SUMMON", "force"}, action: "summon", force: true},
		{args: []string{"summon", "--force"}, action: "summon", force: true},
		{args: []string{"banish"}, action: "banish"},
		{args: []string{"Status"}, action: "status"},
		{args: []string{"dance"}, action: ""},
		{args: []string{"please", "summon"}, action: ""},
		{args: []string{"", "force"}, action: "", force: true},
	}
	for _, tc := range cases {
		action, force := parseArgs(tc.args)
		assert.Equal(t, tc.action, action, "%v", tc.args)
		assert.Equal(t, tc.force, force, "%v", tc.args)
	}
}

func TestSlashArgs(t *testing.T) {
	opts := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "action", Type: discordgo.ApplicationCommandOptionString, Value: "summon"},
		{Name: "force", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
	}
	assert.Equal(t, []string{"summon", "force"}, slashArgs(opts))
	assert.Equal(t, []string{""}, slashArgs(nil))

	action, force := parseArgs(slashArgs(opts))
	assert.Equal(t, "summon", action)
	assert.True(t, force)
}

func TestSlashDefinition(t *testing.T) {
	c := &GrinchCommand{}
	def := c.SlashDefinition()

	assert.Equal(t, "grinch", def.Name)
	require.Len(t, def.Options, 2)
	assert.False(t, def.Options[0].Required)
	require.Len(t, def.Options[0].Choices, 3)
	assert.Equal(t, "summon", def.Options[0].Choices[0].Value)
	assert.Equal(t, "banish", def.Options[0].Choices[1].Value)
	assert.Equal(t, "status", def.Options[0].Choices[2].Value)
	assert.Equal(t, discordgo.ApplicationCommandOptionBoolean, def.Options[1].Type)
	assert.Equal(t, []int64{discordgo.PermissionManageMessages}, c.UserPermissions())
}

func TestRun_IgnoresUnknownContext(t *testing.T) {
	c := &GrinchCommand{}
	assert.NoError(t, c.Run(context.Background(), struct{}{}))
}

func TestStorageAuditor(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "datastore.json"))
	require.NoError(t, err)
	defer store.Close()

	at := time.Date(2024, 12, 24, 23, 0, 0, 0, time.UTC)
	audit := StorageAuditor(store)
	audit.Record(context.Background(), core.Event{
		Action:      core.ActionSummoned,
		GuildID:     "guild-1",
		ChannelID:   "chan-1",
		ChannelName: "general",
		ActorID:     "user-1",
		ActorName:   "Alice",
		WebhookID:   "hook-1",
		At:          at,
	})
	// Events outside a guild are not stored.
	audit.Record(context.Background(), core.Event{Action: core.ActionBanished})

	events, err := store.GetPersonaEvents("guild-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, storage.PersonaEvent{
		Action:      "summoned",
		ChannelID:   "chan-1",
		ChannelName: "general",
		UserID:      "user-1",
		Username:    "Alice",
		WebhookID:   "hook-1",
		Datetime:    at,
	}, events[0])
}

type routerCall struct {
	Op    string
	Force bool
	Req   core.Request
}

// fakeRouter records calls and reports a fixed channel state.
type fakeRouter struct {
	calls   []routerCall
	err     error
	state   core.State
	pending bool
}

func (f *fakeRouter) Summon(_ context.Context, req core.Request, force bool) error {
	f.calls = append(f.calls, routerCall{Op: "summon", Force: force, Req: req})
	return f.err
}

func (f *fakeRouter) Banish(_ context.Context, req core.Request) error {
	f.calls = append(f.calls, routerCall{Op: "banish", Req: req})
	return f.err
}

func (f *fakeRouter) Poke(_ context.Context, req core.Request) error {
	f.calls = append(f.calls, routerCall{Op: "poke", Req: req})
	return f.err
}

func (f *fakeRouter) Status(string) (core.State, bool) {
	return f.state, f.pending
}

type fakePersonaLog struct {
	events []storage.PersonaEvent
	err    error
}

func (f fakePersonaLog) GetPersonaEvents(string) ([]storage.PersonaEvent, error) {
	return f.events, f.err
}

// stateSession answers channel lookups from state so no request leaves the test.
func stateSession(t *testing.T) *discordgo.Session {
	t.Helper()
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:       "guild-1",
		Name:     "North Pole",
		Channels: []*discordgo.Channel{{ID: "chan-1", GuildID: "guild-1", Name: "general"}},
	}))
	return &discordgo.Session{State: state}
}

func messageContext(s *discordgo.Session, nick string, args ...string) *command.MessageContext {
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg-1",
		ChannelID: "chan-1",
		GuildID:   "guild-1",
		Author:    &discordgo.User{ID: "user-1", Username: "alice", GlobalName: "Alice"},
		Member:    &discordgo.Member{Nick: nick},
	}}
	return &command.MessageContext{Session: s, Event: m, Args: args}
}

func TestRun_MessageRouting(t *testing.T) {
	s := stateSession(t)
	cases := []struct {
		name  string
		nick  string
		args  []string
		op    string
		force bool
		actor string
	}{
		{name: "summon", args: []string{"summon"}, op: "summon", actor: "Alice"},
		{name: "summon force", args: []string{"summon", "--force"}, op: "summon", force: true, actor: "Alice"},
		{name: "banish uses nick", nick: "Cindy Lou", args: []string{"banish"}, op: "banish", actor: "Cindy Lou"},
		{name: "bare", args: nil, op: "poke", actor: "Alice"},
		{name: "unknown word", nick: "Cindy Lou", args: []string{"dance"}, op: "poke", actor: "Cindy Lou"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &fakeRouter{}
			c := &GrinchCommand{Router: r}

			require.NoError(t, c.Run(context.Background(), messageContext(s, tc.nick, tc.args...)))

			require.Len(t, r.calls, 1)
			call := r.calls[0]
			assert.Equal(t, tc.op, call.Op)
			assert.Equal(t, tc.force, call.Force)
			assert.Equal(t, tc.actor, call.Req.ActorName)
			assert.Equal(t, "user-1", call.Req.ActorID)
			assert.Equal(t, "<@user-1>", call.Req.ActorMention)
			assert.Equal(t, "guild-1", call.Req.GuildID)
			assert.Equal(t, "chan-1", call.Req.ChannelID)
			assert.Equal(t, "general", call.Req.ChannelName)
			assert.NotNil(t, call.Req.Reply)
			assert.NotNil(t, call.Req.Typing)
		})
	}
}

func TestRun_RouterErrorsAreNotReturned(t *testing.T) {
	for _, err := range []error{core.ErrInvalidState, errors.New("boom")} {
		r := &fakeRouter{err: err}
		c := &GrinchCommand{Router: r}
		assert.NoError(t, c.Run(context.Background(), messageContext(stateSession(t), "", "banish")))
		assert.Len(t, r.calls, 1)
	}
}

func TestDispatch_Status(t *testing.T) {
	at := time.Date(2024, 12, 24, 23, 0, 0, 0, time.UTC)
	events := fakePersonaLog{events: []storage.PersonaEvent{
		{Action: "summoned", ChannelID: "chan-1", Username: "Alice", Datetime: at},
		{Action: "summoned", ChannelID: "chan-2", Username: "Bob", Datetime: at.Add(time.Minute)},
		{Action: "banished", ChannelID: "chan-1", Username: "Cindy", Datetime: at.Add(2 * time.Minute)},
	}}

	var replies []string
	req := core.Request{
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Reply: func(text string) error {
			replies = append(replies, text)
			return nil
		},
	}
	r := &fakeRouter{state: core.StateActive, pending: true}
	c := &GrinchCommand{Router: r}

	c.dispatch(context.Background(), req, []string{"status"}, events)

	assert.Empty(t, r.calls)
	require.Len(t, replies, 1)
	assert.Equal(t, "The Grinch is in this channel. A banish is waiting for the `manage webhook` permission.\n"+
		"```md\n"+
		"2024-12-24 23:02:00\tbanished \tCindy\n"+
		"2024-12-24 23:00:00\tsummoned \tAlice\n"+
		"```", replies[0])
}

func TestDispatch_StatusWithoutHistory(t *testing.T) {
	var replies []string
	req := core.Request{ChannelID: "chan-1", Reply: func(text string) error {
		replies = append(replies, text)
		return nil
	}}
	c := &GrinchCommand{Router: &fakeRouter{}}

	c.dispatch(context.Background(), req, []string{"status"}, nil)
	c.dispatch(context.Background(), req, []string{"status"}, fakePersonaLog{err: errors.New("disk")})

	assert.Equal(t, []string{"No Grinch in this channel.", "No Grinch in this channel."}, replies)
}

func TestChannelEvents_Limit(t *testing.T) {
	var all []storage.PersonaEvent
	for i := 0; i < 8; i++ {
		all = append(all, storage.PersonaEvent{ChannelID: "chan-1", WebhookID: string(rune('a' + i))})
	}

	got := channelEvents(all, "chan-1", statusEventsLimit)
	require.Len(t, got, statusEventsLimit)
	assert.Equal(t, "h", got[0].WebhookID)
	assert.Equal(t, "d", got[4].WebhookID)
	assert.Empty(t, channelEvents(all, "chan-2", statusEventsLimit))
}
