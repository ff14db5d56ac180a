package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarintake/pkg/platform/sentinel"
	"solarintake/pkg/requestcontext"
)

func TestPublisherSyncMode(t *testing.T) {
	store := NewMemoryStore(0)
	pub := NewPublisher(store)
	defer pub.Close()

	sessionID := uuid.New()
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	require.NoError(t, pub.Emit(ctx, Event{Type: AddressResolved, SessionID: sessionID, PostalCode: "90010000"}))

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, AddressResolved, events[0].Type)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].OccurredAt.IsZero())
	assert.Equal(t, "req-1", events[0].RequestID)
}

func TestPublisherAsyncModeDrainsOnClose(t *testing.T) {
	store := NewMemoryStore(0)
	pub := NewPublisher(store, WithAsyncBuffer(16))

	sessionID := uuid.New()
	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{Type: CoordinateResolved, SessionID: sessionID, Generation: uint64(i)}))
	}
	require.NoError(t, pub.Close())

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 10)
	assert.Equal(t, uint64(9), events[9].Generation)
}

func TestPublisherRejectsAfterClose(t *testing.T) {
	pub := NewPublisher(NewMemoryStore(0))
	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	err := pub.Emit(context.Background(), Event{Type: GeocodingFailed})
	assert.ErrorIs(t, err, sentinel.ErrClosed)
}

type failingSink struct{}

func (failingSink) Append(context.Context, Event) error { return errors.New("broker down") }

func TestPublisherFansOutAndReportsFirstError(t *testing.T) {
	store := NewMemoryStore(0)
	pub := NewPublisher(failingSink{}, WithSink(store))
	defer pub.Close()

	sessionID := uuid.New()
	err := pub.Emit(context.Background(), Event{Type: PostalLookupFailed, SessionID: sessionID})
	assert.EqualError(t, err, "broker down")

	events, _ := store.ListBySession(context.Background(), sessionID)
	assert.Len(t, events, 1, "other sinks still receive the event")
}

func TestMemoryStoreLimitAndForget(t *testing.T) {
	store := NewMemoryStore(3)
	sessionID := uuid.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(context.Background(), Event{SessionID: sessionID, Generation: uint64(i), OccurredAt: time.Now()}))
	}
	events, _ := store.ListBySession(context.Background(), sessionID)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(2), events[0].Generation)

	store.Forget(sessionID)
	events, _ = store.ListBySession(context.Background(), sessionID)
	assert.Empty(t, events)
}
