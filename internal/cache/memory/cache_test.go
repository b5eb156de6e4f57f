package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

func TestPriceCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := NewPriceCache(0)

	_, _, err := pc.GetPrice(ctx, "solana")
	require.ErrorIs(t, err, domain.ErrNotFound)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pc.SetPrice(ctx, "solana", 142.5, ts))

	price, got, err := pc.GetPrice(ctx, "solana")
	require.NoError(t, err)
	assert.Equal(t, 142.5, price)
	assert.True(t, got.Equal(ts))
}

func TestPriceCacheTTL(t *testing.T) {
	ctx := context.Background()
	pc := NewPriceCache(time.Nanosecond)

	require.NoError(t, pc.SetPrice(ctx, "solana", 100, time.Now().UTC()))
	time.Sleep(time.Millisecond)

	_, _, err := pc.GetPrice(ctx, "solana")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignalBusFansOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewSignalBus()

	a, err := bus.Subscribe(ctx, "sync")
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, "sync")
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, "entries")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "sync", []byte(`{"inserted":3}`)))

	for _, ch := range []<-chan []byte{a, b} {
		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"inserted":3}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}

	select {
	case msg := <-other:
		t.Fatalf("unexpected message on entries channel: %s", msg)
	default:
	}
}

func TestSignalBusClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewSignalBus()

	ch, err := bus.Subscribe(ctx, "sync")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancel")
	}

	// Publishing after the subscriber is gone must not block or error.
	require.NoError(t, bus.Publish(context.Background(), "sync", []byte("x")))
}
