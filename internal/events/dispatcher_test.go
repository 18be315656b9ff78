package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var created, assigned int
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, _ Event) error {
		created++
		return nil
	})
	dispatcher.Subscribe(EventTicketAssigned, func(_ context.Context, _ Event) error {
		assigned++
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 1}))
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 2}))
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketStatusChanged, TicketID: 1}))

	assert.Equal(t, 2, created)
	assert.Equal(t, 0, assigned)
}

func TestDispatcherHandlerErrorDoesNotStopOthers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var reached bool
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, _ Event) error {
		reached = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.True(t, reached)
}
