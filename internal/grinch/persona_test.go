package grinch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersona_Lifecycle(t *testing.T) {
	hooks := &fakeHooks{}
	p := NewPersona(hooks, &Hook{ID: "h1", Token: "t"}, Identity{Name: "Grinch", AvatarURL: "avatar"})
	ctx := context.Background()

	assert.Equal(t, StateActive, p.State())
	require.NoError(t, p.Send(ctx, "hello"))
	require.Len(t, hooks.sent, 1)
	assert.Equal(t, sentMessage{HookID: "h1", Text: "hello", As: Identity{Name: "Grinch", AvatarURL: "avatar"}}, hooks.sent[0])

	require.NoError(t, p.Retire(ctx, "Bob"))
	assert.Equal(t, StateBanished, p.State())
	assert.Equal(t, []string{"Bob banished Grinch"}, hooks.deletes)

	assert.ErrorIs(t, p.Send(ctx, "still here?"), ErrInvalidState)
	assert.ErrorIs(t, p.Retire(ctx, "Bob"), ErrInvalidState)
	assert.Len(t, hooks.sent, 1)
	assert.Len(t, hooks.deletes, 1)
}

func TestPersona_RetireForbidden(t *testing.T) {
	hooks := &fakeHooks{deleteErr: ErrForbidden}
	p := NewPersona(hooks, &Hook{ID: "h1"}, Identity{Name: "Grinch"})

	assert.ErrorIs(t, p.Retire(context.Background(), "Bob"), ErrForbidden)
	assert.Equal(t, StateActive, p.State())
	assert.True(t, p.RetirePending())

	hooks.deleteErr = nil
	require.NoError(t, p.Retire(context.Background(), "Bob"))
	assert.False(t, p.RetirePending())
	assert.Equal(t, StateBanished, p.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "banished", StateBanished.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestMultiAuditor(t *testing.T) {
	a, b := &recordingAuditor{}, &recordingAuditor{}
	MultiAuditor(a, nil, b).Record(context.Background(), Event{Action: ActionSummoned})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
