package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tictacthree/tictacthree/internal/store"
)

type counter struct {
	Id    string `dynamodbav:"Id"`
	Value int    `dynamodbav:"Value"`
}

var key = store.Key{Collection: "counters", Id: "a"}

func decode(t *testing.T, snap store.Snapshot) counter {
	t.Helper()
	var c counter
	require.NoError(t, snap.Decode(&c))
	return c
}

func TestGetMissing(t *testing.T) {
	s := New()
	snap, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, snap.Exists())
	assert.ErrorIs(t, snap.Decode(&counter{}), store.ErrNotFound)
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, key, counter{Id: "a", Value: 1}))

	snap, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, 1, decode(t, snap).Value)

	require.NoError(t, s.Delete(ctx, key))
	snap, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestListSortedByCollection(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, store.Key{Collection: "counters", Id: "b"}, counter{Id: "b"}))
	require.NoError(t, s.Set(ctx, store.Key{Collection: "counters", Id: "a"}, counter{Id: "a"}))
	require.NoError(t, s.Set(ctx, store.Key{Collection: "other", Id: "c"}, counter{Id: "c"}))

	snaps, err := s.List(ctx, "counters")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "a", snaps[0].Key.Id)
	assert.Equal(t, "b", snaps[1].Key.Id)
}

func increment(ctx context.Context, tx store.Tx) error {
	snap, err := tx.Get(ctx, key)
	if err != nil {
		return err
	}
	c := counter{Id: key.Id}
	if snap.Exists() {
		if err := snap.Decode(&c); err != nil {
			return err
		}
	}
	c.Value++
	return tx.Set(key, c)
}

func TestTransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.RunTransaction(ctx, increment))
	require.NoError(t, s.RunTransaction(ctx, increment))

	snap, _ := s.Get(ctx, key)
	assert.Equal(t, 2, decode(t, snap).Value)
}

func TestTransactionConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, key, counter{Id: "a"}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := increment(ctx, tx); err != nil {
			return err
		}
		// A competing writer commits between our read and our commit.
		return s.Set(ctx, key, counter{Id: "a", Value: 100})
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	snap, _ := s.Get(ctx, key)
	assert.Equal(t, 100, decode(t, snap).Value)
}

func TestTransactionConflictOnRecreate(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, key, counter{Id: "a"}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := increment(ctx, tx); err != nil {
			return err
		}
		require.NoError(t, s.Delete(ctx, key))
		return s.Set(ctx, key, counter{Id: "a"})
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestTransactionAbortWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	errAbort := errors.New("abort")
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := increment(ctx, tx); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	snap, _ := s.Get(ctx, key)
	assert.False(t, snap.Exists())
}

func TestTransactionRejectsUnreadWrite(t *testing.T) {
	err := New().RunTransaction(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Set(key, counter{Id: "a"})
	})
	assert.ErrorIs(t, err, store.ErrUnreadWrite)
}

func TestConcurrentIncrementsNeverLoseUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RunTransaction(ctx, increment); err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, store.ErrConflict)
			}
		}()
	}
	wg.Wait()

	snap, _ := s.Get(ctx, key)
	assert.Equal(t, committed, decode(t, snap).Value)
}

func TestSubscribeDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()

	got := make(chan store.Snapshot, 16)
	_, err := s.Subscribe(ctx, key, func(snap store.Snapshot) { got <- snap })
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Set(ctx, key, counter{Id: "a", Value: i}))
	}
	require.NoError(t, s.Delete(ctx, key))

	want := []int64{0, 1, 2, 3, 0}
	for i, v := range want {
		select {
		case snap := <-got:
			if v == 0 {
				assert.False(t, snap.Exists(), "delivery %d", i)
			} else {
				assert.Equal(t, v, snap.Version, "delivery %d", i)
				assert.Equal(t, int(v), decode(t, snap).Value)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing delivery %d", i)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := New()
	got := make(chan store.Snapshot, 16)
	unsubscribe, err := s.Subscribe(ctx, key, func(snap store.Snapshot) { got <- snap })
	require.NoError(t, err)
	<-got

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Set(ctx, key, counter{Id: "a"}))

	select {
	case <-got:
		t.Fatal("delivered after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}
