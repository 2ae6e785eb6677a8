package peertransport

import (
	"context"
	"testing"
	"time"

	"github.com/hyperware-ai/hyperprocess-core/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SendRequestDeliversToTarget(t *testing.T) {
	reg := NewRegistry()
	a := NewLocal(reg, "a", 4)
	b := NewLocal(reg, "b", 4)
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendRequest(context.Background(), "b", []byte(`{}`), []byte("tok"), true, time.Second))

	msg, err := b.AwaitNextMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, host.KindLocalRequest, msg.Kind)
	assert.Equal(t, "a", msg.Source)
}

func TestLocal_SendRequestDeliversTimeoutOutcomeWhenTargetNeverResponds(t *testing.T) {
	reg := NewRegistry()
	a := NewLocal(reg, "a", 4)
	b := NewLocal(reg, "b", 4)
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendRequest(context.Background(), "b", []byte(`{}`), []byte("tok"), true, 10*time.Millisecond))

	// drain the request out of b so it never answers, simulating a
	// handler that's hung or a peer that's gone away.
	_, err := b.AwaitNextMessage(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := a.AwaitNextMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.KindResponse, msg.Kind)
	assert.Equal(t, "tok", string(msg.ContextToken))
	assert.False(t, msg.Outcome.Success())
}

func TestLocal_RealResponseCancelsTheTimeoutTimer(t *testing.T) {
	reg := NewRegistry()
	a := NewLocal(reg, "a", 4)
	b := NewLocal(reg, "b", 4)
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendRequest(context.Background(), "b", []byte(`{}`), []byte("tok"), true, 50*time.Millisecond))

	req, err := b.AwaitNextMessage(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.SendResponse(context.Background(), 200, []byte(`"ok"`)))
	_ = req

	msg, err := a.AwaitNextMessage(context.Background())
	require.NoError(t, err)
	assert.True(t, msg.Outcome.Success())

	// if the timer wasn't cancelled, a second (spurious) KindResponse
	// would land on a's inbox shortly after; confirm none does.
	select {
	case second := <-a.inbox:
		t.Fatalf("expected no further message, got %+v", second)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestLocal_SendRequestToUnknownPeerErrors(t *testing.T) {
	reg := NewRegistry()
	a := NewLocal(reg, "a", 4)
	defer a.Close()

	err := a.SendRequest(context.Background(), "ghost", []byte(`{}`), []byte("tok"), true, time.Second)
	assert.Error(t, err)
}

func TestRemote_SendRequestDeliversTimeoutOutcomeWhenPeerNeverResponds(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()
	b, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.SendRequest(context.Background(), b.selfAddr, []byte(`{}`), []byte("tok"), true, 20*time.Millisecond))

	// b never answers, so a's armed timer should fire.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := a.AwaitNextMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, host.KindResponse, msg.Kind)
	assert.False(t, msg.Outcome.Success())
}

func TestRemote_RealResponseCancelsTheTimeoutTimer(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()
	b, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.SendRequest(context.Background(), b.selfAddr, []byte(`{}`), []byte("tok"), true, 100*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = b.AwaitNextMessage(ctx)
	require.NoError(t, err)
	require.NoError(t, b.SendResponse(context.Background(), 200, []byte(`"ok"`)))

	msg, err := a.AwaitNextMessage(ctx)
	require.NoError(t, err)
	assert.True(t, msg.Outcome.Success())

	select {
	case second := <-a.inbox:
		t.Fatalf("expected no further message, got %+v", second)
	case <-time.After(200 * time.Millisecond):
	}
}
