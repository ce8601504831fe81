package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var calls []string

	bus.Subscribe(PostSave, nil, func(ctx context.Context, ev Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(PostSave, nil, func(ctx context.Context, ev Event) error {
		calls = append(calls, "second")
		return nil
	})
	bus.Subscribe(PreSave, nil, func(ctx context.Context, ev Event) error {
		calls = append(calls, "wrong kind")
		return nil
	})

	require.NoError(t, bus.Emit(context.Background(), Event{Kind: PostSave}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestBus_PredicateFiltersBySender(t *testing.T) {
	bus := NewBus()
	var senders []string

	bus.Subscribe(PostDelete, FromSender("sensor"), func(ctx context.Context, ev Event) error {
		senders = append(senders, ev.Sender)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, Event{Kind: PostDelete, Sender: "logger"}))
	require.NoError(t, bus.Emit(ctx, Event{Kind: PostDelete, Sender: "sensor"}))

	assert.Equal(t, []string{"sensor"}, senders)
}

func TestBus_FirstErrorStopsDelivery(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	reached := false

	bus.Subscribe(TypeAvailable, nil, func(ctx context.Context, ev Event) error {
		return boom
	})
	bus.Subscribe(TypeAvailable, nil, func(ctx context.Context, ev Event) error {
		reached = true
		return nil
	})

	err := bus.Emit(context.Background(), Event{Kind: TypeAvailable})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "type_available handler")
	assert.False(t, reached)
}

func TestBus_UnsubscribeFromHandler(t *testing.T) {
	bus := NewBus()
	count := 0

	var sub *Subscription
	sub = bus.Subscribe(TypeAvailable, nil, func(ctx context.Context, ev Event) error {
		count++
		sub.Unsubscribe()
		return nil
	})

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, Event{Kind: TypeAvailable}))
	require.NoError(t, bus.Emit(ctx, Event{Kind: TypeAvailable}))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.Len())

	// second call is a no-op
	sub.Unsubscribe()
}

func TestBus_HandlerRemovedMidDeliveryIsSkipped(t *testing.T) {
	bus := NewBus()
	var second *Subscription
	called := false

	bus.Subscribe(PostSave, nil, func(ctx context.Context, ev Event) error {
		second.Unsubscribe()
		return nil
	})
	second = bus.Subscribe(PostSave, nil, func(ctx context.Context, ev Event) error {
		called = true
		return nil
	})

	require.NoError(t, bus.Emit(context.Background(), Event{Kind: PostSave}))
	assert.False(t, called)
}

func TestSubscriptions_Unsubscribe(t *testing.T) {
	bus := NewBus()
	noop := func(ctx context.Context, ev Event) error { return nil }

	subs := Subscriptions{
		bus.Subscribe(PreSave, nil, noop),
		bus.Subscribe(PostSave, nil, noop),
	}
	bus.Subscribe(PostDelete, nil, noop)

	subs.Unsubscribe()
	assert.Equal(t, 1, bus.Len())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "pre_save", PreSave.String())
	assert.Equal(t, "definition_changed", DefinitionChanged.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
