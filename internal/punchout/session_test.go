package punchout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/omnisupply/procurement-api/internal/punchout"
)

func newRedisStore(t *testing.T) (punchout.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return punchout.RedisStore{R: client, TTL: time.Hour}, mr
}

func sampleSession(token string) punchout.Session {
	return punchout.Session{
		Token:              token,
		BuyerCookie:        "BC-1",
		BrowserFormPostURL: "https://buyer.example.com/checkout",
		BuyerIdentity:      "AN01000002779",
		DeploymentMode:     "production",
		CreatedAt:          time.Now().UTC().Truncate(time.Second),
	}
}

func TestRedisStoreCreateGet(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := sampleSession("tok1")
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "tok1")
	require.NoError(t, err)
	require.Equal(t, sess.BuyerCookie, got.BuyerCookie)
	require.Equal(t, sess.BuyerIdentity, got.BuyerIdentity)

	_, err = store.Get(ctx, "unknown")
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
}

func TestRedisStoreCreateDuplicate(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleSession("tok1")))
	require.ErrorIs(t, store.Create(ctx, sampleSession("tok1")), punchout.ErrSessionExists)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleSession("tok1")))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "tok1")
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
}

func TestRedisStoreUpdateCartKeepsTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleSession("tok1")))
	mr.FastForward(30 * time.Minute)

	items := []punchout.LineItem{{
		SupplierPartID: "SKU-1",
		Quantity:       2,
		UnitPrice:      decimal.RequireFromString("9.99"),
		UnitOfMeasure:  "EA",
	}}
	require.NoError(t, store.UpdateCart(ctx, "tok1", items))

	got, err := store.Get(ctx, "tok1")
	require.NoError(t, err)
	require.Len(t, got.CartItems, 1)

	// The update must not have reset the clock: 30 minutes remain on the
	// original hour, not a fresh hour.
	mr.FastForward(45 * time.Minute)
	_, err = store.Get(ctx, "tok1")
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
}

func TestRedisStoreUpdateCartUnknownToken(t *testing.T) {
	store, _ := newRedisStore(t)
	err := store.UpdateCart(context.Background(), "ghost", nil)
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
}

func TestRedisStoreCloseIsSingleUse(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := sampleSession("tok1")
	sess.CartItems = []punchout.LineItem{{SupplierPartID: "SKU-1", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}}
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Close(ctx, "tok1")
	require.NoError(t, err)
	require.Len(t, got.CartItems, 1)

	_, err = store.Close(ctx, "tok1")
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
	_, err = store.Get(ctx, "tok1")
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
}

func TestRedisStoreCloseConcurrent(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleSession("tok1")))

	const workers = 8
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Close(ctx, "tok1"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	require.Equal(t, 1, count, "exactly one concurrent close may succeed")
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := punchout.NewMemoryStore(time.Hour)
	ctx := context.Background()

	sess := sampleSession("tok1")
	require.NoError(t, store.Create(ctx, sess))
	require.ErrorIs(t, store.Create(ctx, sess), punchout.ErrSessionExists)

	items := []punchout.LineItem{{SupplierPartID: "SKU-9", Quantity: 1, UnitPrice: decimal.NewFromInt(3)}}
	require.NoError(t, store.UpdateCart(ctx, "tok1", items))

	got, err := store.Close(ctx, "tok1")
	require.NoError(t, err)
	require.Len(t, got.CartItems, 1)

	_, err = store.Close(ctx, "tok1")
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	store := punchout.NewMemoryStore(time.Nanosecond)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleSession("tok1")))
	require.NoError(t, store.Create(ctx, sampleSession("tok2")))
	time.Sleep(5 * time.Millisecond)

	require.Equal(t, 2, store.SweepExpired())
	require.Equal(t, 0, store.SweepExpired())

	_, err := store.Get(ctx, "tok1")
	require.ErrorIs(t, err, punchout.ErrSessionNotFound)
}

func TestSessionTotal(t *testing.T) {
	sess := punchout.Session{CartItems: []punchout.LineItem{
		{Quantity: 3, UnitPrice: decimal.RequireFromString("18.40")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("4.29")},
		{Quantity: 0, UnitPrice: decimal.RequireFromString("100")}, // ignored
	}}
	require.Equal(t, "59.49", sess.Total().StringFixed(2))
}
