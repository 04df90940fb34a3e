package quotations

import (
	"context"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViewStore(t *testing.T) *ViewStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewViewStore(client, time.Minute)
}

func TestViewStoreFetchJSONCaches(t *testing.T) {
	store := newTestViewStore(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return listView{Total: 3}, nil
	}

	var first listView
	require.NoError(t, store.FetchJSON(ctx, KeyListAll(), &first, loader))
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 1, loads)

	var second listView
	require.NoError(t, store.FetchJSON(ctx, KeyListAll(), &second, loader))
	assert.Equal(t, 3, second.Total)
	assert.Equal(t, 1, loads, "second fetch must come from cache")
}

func TestViewStoreInvalidateForcesRefetch(t *testing.T) {
	store := newTestViewStore(t)
	ctx := context.Background()

	total := 1
	loader := func(context.Context) (interface{}, error) {
		return listView{Total: total}, nil
	}

	var view listView
	require.NoError(t, store.FetchJSON(ctx, KeyListAll(), &view, loader))
	assert.Equal(t, 1, view.Total)

	// A write happened; the coordinator drops the view.
	total = 2
	require.NoError(t, store.Invalidate(ctx, KeyListAll()))

	require.NoError(t, store.FetchJSON(ctx, KeyListAll(), &view, loader))
	assert.Equal(t, 2, view.Total, "invalidated view must reflect the mutation")
}

func TestViewStoreNilClientPassthrough(t *testing.T) {
	store := NewViewStore(nil, 0)

	loads := 0
	var view listView
	for i := 0; i < 2; i++ {
		require.NoError(t, store.FetchJSON(context.Background(), KeyListAll(), &view, func(context.Context) (interface{}, error) {
			loads++
			return listView{Total: loads}, nil
		}))
	}
	assert.Equal(t, 2, loads)
	require.NoError(t, store.Invalidate(context.Background(), KeyListAll()))
}

// End-to-end coherence: after the coordinator settles, a read of any
// invalidated view observes the just-completed mutation.
func TestReadYourOwnWriteAfterSettlement(t *testing.T) {
	store := newTestViewStore(t)
	coordinator := NewCoordinator(store, DeferredScheduler{}, slog.Default())
	ctx := context.Background()

	state := "before"
	loader := func(context.Context) (interface{}, error) {
		return map[string]string{"state": state}, nil
	}

	var view map[string]string
	require.NoError(t, store.FetchJSON(ctx, KeyListStatus(StatusNew), &view, loader))
	require.NoError(t, store.FetchJSON(ctx, KeyItem(42), &view, loader))

	// Mutation commits, then the coordinator invalidates.
	state = "after"
	<-coordinator.AfterMutation(42)

	require.NoError(t, store.FetchJSON(ctx, KeyListStatus(StatusNew), &view, loader))
	assert.Equal(t, "after", view["state"])
	require.NoError(t, store.FetchJSON(ctx, KeyItem(42), &view, loader))
	assert.Equal(t, "after", view["state"])
}

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "quotations:list:all", KeyListAll())
	assert.Equal(t, "quotations:list:InProgress", KeyListStatus(StatusInProgress))
	assert.Equal(t, "quotations:item:42", KeyItem(42))
}
