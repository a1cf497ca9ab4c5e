package docstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name      string  `json:"name"`
	Owner     string  `json:"creatorId"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

func TestSQLStore_CreateGet(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "public/customers/c1", testItem{Name: "Acme", Owner: "alice", Amount: 10}))

	doc, err := store.Get(ctx, "public/customers/c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", doc.ID)
	assert.Equal(t, "public/customers/c1", doc.Path)
	assert.False(t, doc.CreateTime.IsZero())

	var got testItem
	require.NoError(t, doc.DataTo(&got))
	assert.Equal(t, testItem{Name: "Acme", Owner: "alice", Amount: 10}, got)

	err = store.Create(ctx, "public/customers/c1", testItem{Name: "Other"})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)

	_, err = store.Get(ctx, "public/customers/missing")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSQLStore_InvalidPath(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Create(ctx, "", testItem{}), docstore.ErrInvalidPath)
	assert.ErrorIs(t, store.Set(ctx, "customers", testItem{}, false), docstore.ErrInvalidPath)
	_, err := store.Query(ctx, docstore.Query{})
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
}

func TestSQLStore_SetMergeAndOverwrite(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users/u1", map[string]any{"email": "u1@example.com", "role": "Standard"}, true))
	require.NoError(t, store.Set(ctx, "users/u1", map[string]any{"lastLogin": "2026-01-01T00:00:00Z"}, true))

	doc, err := store.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", doc.Data["email"])
	assert.Equal(t, "2026-01-01T00:00:00Z", doc.Data["lastLogin"])

	require.NoError(t, store.Set(ctx, "users/u1", map[string]any{"email": "new@example.com"}, false))
	doc, err = store.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", doc.Data["email"])
	assert.NotContains(t, doc.Data, "role")
}

func TestSQLStore_Delete(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "public/priceBook/p1", testItem{Name: "Widget"}))
	require.NoError(t, store.Delete(ctx, "public/priceBook/p1"))
	require.NoError(t, store.Delete(ctx, "public/priceBook/p1"))

	_, err := store.Get(ctx, "public/priceBook/p1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSQLStore_Query(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	items := map[string]testItem{
		"a": {Name: "Gamma", Owner: "alice", Amount: 30},
		"b": {Name: "Alpha", Owner: "bob", Amount: 10},
		"c": {Name: "Beta", Owner: "alice", Amount: 20},
		"d": {Name: "Delta", Owner: "alice", Amount: 20},
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Create(ctx, "public/customers/"+id, items[id]))
	}
	require.NoError(t, store.Create(ctx, "public/opportunities/x", testItem{Name: "Other", Owner: "alice"}))

	all, err := store.Query(ctx, docstore.Query{Collection: "public/customers"})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	owned, err := store.Query(ctx, docstore.Query{Collection: "public/customers"}.Where("creatorId", "alice"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c", "d"}, ids(owned))

	byAmount, err := store.Query(ctx, docstore.Query{Collection: "public/customers"}.Where("amount", 20))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c", "d"}, ids(byAmount))

	ordered, err := store.Query(ctx, docstore.Query{Collection: "public/customers", OrderBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d", "a"}, ids(ordered))

	top, err := store.Query(ctx, docstore.Query{Collection: "public/customers", OrderBy: "amount", Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].ID)
	assert.Equal(t, 30.0, top[0].Data["amount"])

	byAmountAsc, err := store.Query(ctx, docstore.Query{Collection: "public/customers", OrderBy: "amount"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d", "a"}, ids(byAmountAsc))

	limited, err := store.Query(ctx, docstore.Query{Collection: "public/customers", Limit: 1}.Where("creatorId", "bob"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(limited))
}

func TestSQLStore_NumbersReadBackAsFloat(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "public/opportunities/o1", map[string]any{
		"value": 1250,
		"lines": []any{map[string]any{"qty": 2}},
	}))

	doc, err := store.Get(ctx, "public/opportunities/o1")
	require.NoError(t, err)
	assert.Equal(t, 1250.0, doc.Data["value"])
	lines, ok := doc.Data["lines"].([]any)
	require.True(t, ok)
	assert.Equal(t, 2.0, lines[0].(map[string]any)["qty"])
}

func TestSQLStore_TransactionRollsBack(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Create(ctx, "public/priceBook/p1", testItem{Name: "Widget"}); err != nil {
			return err
		}
		if err := tx.Create(ctx, "public/priceBookIndex/k1", map[string]any{"itemId": "p1"}); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	_, err = store.Get(ctx, "public/priceBook/p1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	_, err = store.Get(ctx, "public/priceBookIndex/k1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSQLStore_TransactionCommits(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			last := 0.0
			doc, err := tx.Get(ctx, "metadata/customerSequence")
			switch {
			case errors.Is(err, docstore.ErrNotFound):
			case err != nil:
				return err
			default:
				last, _ = doc.Data["last"].(float64)
			}
			return tx.Set(ctx, "metadata/customerSequence", map[string]any{"last": last + 1}, false)
		})
		require.NoError(t, err)
	}

	doc, err := store.Get(ctx, "metadata/customerSequence")
	require.NoError(t, err)
	assert.Equal(t, 3.0, doc.Data["last"])
}

func TestSQLStore_Subscribe(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "public/customers/a", testItem{Name: "A", Owner: "alice"}))

	sub, err := store.Subscribe(ctx, docstore.Query{Collection: "public/customers"}.Where("creatorId", "alice"))
	require.NoError(t, err)
	defer sub.Stop()

	first := receive(t, sub)
	assert.Equal(t, []string{"a"}, ids(first.Docs))

	require.NoError(t, store.Create(ctx, "public/customers/b", testItem{Name: "B", Owner: "alice"}))
	second := receive(t, sub)
	assert.ElementsMatch(t, []string{"a", "b"}, ids(second.Docs))

	sub.Stop()
	sub.Stop()
	_, open := <-sub.Snapshots()
	assert.False(t, open)
}

func TestSQLStore_SubscribeStopsWithContext(t *testing.T) {
	store := testutil.NewStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := store.Subscribe(ctx, docstore.Query{Collection: "public/customers"})
	require.NoError(t, err)
	receive(t, sub)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop after context cancellation")
	}
}

func receive(t *testing.T, sub *docstore.Subscription) docstore.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "subscription closed")
		require.NoError(t, snap.Err)
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
		return docstore.Snapshot{}
	}
}

func ids(docs []*docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
