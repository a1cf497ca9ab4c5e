package live_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/live"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func opener(store docstore.Store, collection string) live.OpenFunc {
	return func(ctx context.Context) (*docstore.Subscription, error) {
		return store.Subscribe(ctx, docstore.Query{Collection: collection})
	}
}

// waitClosed drains ch and fails if it is not closed in time
func waitClosed(t *testing.T, ch <-chan docstore.Snapshot) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("subscription channel was not closed")
		}
	}
}

func firstSnapshot(t *testing.T, h *live.Handle) docstore.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-h.Snapshots():
		require.True(t, ok)
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}
	return docstore.Snapshot{}
}

func TestRegistry_SwitchingViewCancelsPrevious(t *testing.T) {
	store := testutil.NewStore(t)
	reg := live.NewRegistry(zap.NewNop())
	ctx := context.Background()

	customers, err := reg.Acquire(ctx, "uid-a", "client-1", "customers", opener(store, "public/customers"))
	require.NoError(t, err)
	defer customers.Release()
	firstSnapshot(t, customers)

	opportunities, err := reg.Acquire(ctx, "uid-a", "client-1", "opportunities", opener(store, "public/opportunities"))
	require.NoError(t, err)
	defer opportunities.Release()

	// the previous subscription is already stopped when Acquire returns
	waitClosed(t, customers.Snapshots())

	assert.Equal(t, 1, reg.Len())
	view, ok := reg.Active("uid-a", "client-1")
	require.True(t, ok)
	assert.Equal(t, "opportunities", view)

	// releasing the replaced handle leaves the current one registered
	customers.Release()
	assert.Equal(t, 1, reg.Len())

	snap := firstSnapshot(t, opportunities)
	assert.NoError(t, snap.Err)
}

func TestRegistry_ClientsAreIndependent(t *testing.T) {
	store := testutil.NewStore(t)
	reg := live.NewRegistry(zap.NewNop())
	ctx := context.Background()

	a, err := reg.Acquire(ctx, "uid-a", "client-a", "customers", opener(store, "public/customers"))
	require.NoError(t, err)
	b, err := reg.Acquire(ctx, "uid-a", "client-b", "customers", opener(store, "public/customers"))
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())

	a.Release()
	a.Release()
	assert.Equal(t, 1, reg.Len())
	waitClosed(t, a.Snapshots())

	// b still receives changes
	firstSnapshot(t, b)
	require.NoError(t, store.Create(ctx, "public/customers/c1", map[string]any{"companyName": "Acme"}))
	snap := firstSnapshot(t, b)
	assert.Len(t, snap.Docs, 1)

	reg.Close()
	assert.Zero(t, reg.Len())
	waitClosed(t, b.Snapshots())
}

func TestRegistry_Errors(t *testing.T) {
	store := testutil.NewStore(t)
	reg := live.NewRegistry(zap.NewNop())
	ctx := context.Background()

	_, err := reg.Acquire(ctx, "uid-a", "", "customers", opener(store, "public/customers"))
	assert.ErrorIs(t, err, live.ErrMissingClient)

	prev, err := reg.Acquire(ctx, "uid-a", "client-1", "customers", opener(store, "public/customers"))
	require.NoError(t, err)

	failure := errors.New("denied")
	_, err = reg.Acquire(ctx, "uid-a", "client-1", "price-book", func(context.Context) (*docstore.Subscription, error) {
		return nil, failure
	})
	assert.ErrorIs(t, err, failure)

	// the switch still cancelled the old view and nothing new was registered
	waitClosed(t, prev.Snapshots())
	assert.Zero(t, reg.Len())
}

func TestRegistry_SameClientIDForDifferentActors(t *testing.T) {
	store := testutil.NewStore(t)
	reg := live.NewRegistry(zap.NewNop())
	ctx := context.Background()

	a, err := reg.Acquire(ctx, "uid-a", "tab-1", "customers", opener(store, "public/customers"))
	require.NoError(t, err)
	defer a.Release()
	b, err := reg.Acquire(ctx, "uid-b", "tab-1", "customers", opener(store, "public/customers"))
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, 2, reg.Len())
	firstSnapshot(t, a)
	firstSnapshot(t, b)

	require.NoError(t, store.Create(ctx, "public/customers/c1", map[string]any{"companyName": "Acme"}))
	assert.Len(t, firstSnapshot(t, a).Docs, 1)
	assert.Len(t, firstSnapshot(t, b).Docs, 1)

	_, ok := reg.Active("uid-c", "tab-1")
	assert.False(t, ok)
}

func TestRegistry_AcquireAfterClose(t *testing.T) {
	store := testutil.NewStore(t)
	reg := live.NewRegistry(zap.NewNop())
	reg.Close()

	opened := false
	_, err := reg.Acquire(context.Background(), "uid-a", "client-1", "customers", func(ctx context.Context) (*docstore.Subscription, error) {
		opened = true
		return store.Subscribe(ctx, docstore.Query{Collection: "public/customers"})
	})
	assert.ErrorIs(t, err, live.ErrClosed)
	assert.False(t, opened)
	assert.Zero(t, reg.Len())
}
