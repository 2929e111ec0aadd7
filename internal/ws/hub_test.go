package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthorizer struct {
	allowed map[uuid.UUID]bool
	err     error
	kinds   []ChannelKind
}

func (s *stubAuthorizer) CanSubscribe(ctx context.Context, userID uuid.UUID, role string, kind ChannelKind, id uuid.UUID) (bool, error) {
	s.kinds = append(s.kinds, kind)
	if s.err != nil {
		return false, s.err
	}
	return s.allowed[id], nil
}

func TestParseChannel(t *testing.T) {
	id := uuid.New()

	kind, parsed, err := ParseChannel(BidChannel(id))
	require.NoError(t, err)
	assert.Equal(t, ChannelBid, kind)
	assert.Equal(t, id, parsed)

	for _, name := range []string{"", "task", "room-" + id.String(), "task-not-a-uuid"} {
		_, _, err := ParseChannel(name)
		assert.Error(t, err, name)
	}
}

func TestHub_Authorize(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	auth := &stubAuthorizer{allowed: map[uuid.UUID]bool{taskID: true}}
	hub := NewHub(NewBus(), auth)
	ctx := context.Background()

	ok, err := hub.Authorize(ctx, userID, "DOER", UserChannel(userID))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hub.Authorize(ctx, userID, "DOER", UserChannel(uuid.New()))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = hub.Authorize(ctx, userID, "DOER", TaskChannel(taskID))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hub.Authorize(ctx, userID, "DOER", BidChannel(uuid.New()))
	require.NoError(t, err)
	assert.False(t, ok)

	// личные каналы проверяются без обращения к авторизатору
	assert.Equal(t, []ChannelKind{ChannelTask, ChannelBid}, auth.kinds)

	_, err = hub.Authorize(ctx, userID, "DOER", "bogus")
	assert.Error(t, err)

	auth.err = errors.New("db down")
	_, err = hub.Authorize(ctx, userID, "DOER", TaskChannel(taskID))
	assert.Error(t, err)
}

func TestHub_WithoutAuthorizerDeniesSharedChannels(t *testing.T) {
	hub := NewHub(NewBus(), nil)
	ok, err := hub.Authorize(context.Background(), uuid.New(), "ADMIN", TaskChannel(uuid.New()))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHub_RegisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(NewBus(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("хаб не остановился")
	}

	client := &Client{hub: hub, userID: uuid.New()}
	returned := make(chan bool, 1)
	go func() {
		hub.Unregister(client)
		returned <- hub.Register(client)
	}()

	select {
	case registered := <-returned:
		assert.False(t, registered)
	case <-time.After(2 * time.Second):
		t.Fatal("Register или Unregister заблокировались после остановки хаба")
	}
	assert.Zero(t, hub.ConnectionCount())
}
