package matchmaking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/game"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/internal/store/memory"
)

func at(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func getEntry(t *testing.T, st store.Store, id string) (entities.QueueEntry, bool) {
	t.Helper()
	snap, err := st.Get(context.Background(), store.QueueKey(id))
	require.NoError(t, err)
	if !snap.Exists() {
		return entities.QueueEntry{}, false
	}
	var e entities.QueueEntry
	require.NoError(t, snap.Decode(&e))
	return e, true
}

func listRooms(t *testing.T, st store.Store) []entities.Room {
	t.Helper()
	snaps, err := st.List(context.Background(), store.RoomsCollection)
	require.NoError(t, err)
	rooms := make([]entities.Room, 0, len(snaps))
	for _, snap := range snaps {
		var r entities.Room
		require.NoError(t, snap.Decode(&r))
		rooms = append(rooms, r)
	}
	return rooms
}

func TestTryPairPicksOldest(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{})
	ctx := context.Background()

	p.SetClock(at(100))
	require.NoError(t, p.Enqueue(ctx, "alice", "Alice"))
	p.SetClock(at(105))
	require.NoError(t, p.Enqueue(ctx, "bob", "Bob"))

	p.SetClock(at(110))
	pr, ok, err := p.TryPair(ctx, "dave", "Dave")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", pr.OpponentId)
	assert.Equal(t, "Alice", pr.OpponentName)
	assert.Equal(t, game.X, pr.Symbol)
	assert.Len(t, pr.RoomId, 6)

	rooms := listRooms(t, st)
	require.Len(t, rooms, 1)
	room := rooms[0]
	assert.Equal(t, pr.RoomId, room.Id)
	assert.Equal(t, entities.RoomPlaying, room.Status)
	assert.True(t, room.Ranked)
	assert.Equal(t, "dave", room.PlayerXId)
	assert.Equal(t, "alice", room.PlayerOId)
	assert.Equal(t, "X", room.CurrentPlayer)
	assert.Len(t, room.Board, 9)

	alice, ok := getEntry(t, st, "alice")
	require.True(t, ok)
	assert.Equal(t, entities.QueueMatched, alice.Status)
	assert.Equal(t, pr.RoomId, alice.RoomId)
	assert.Equal(t, "O", alice.Symbol)
	assert.Equal(t, "dave", alice.OpponentId)

	bob, ok := getEntry(t, st, "bob")
	require.True(t, ok)
	assert.Equal(t, entities.QueueSearching, bob.Status)
	assert.Empty(t, bob.RoomId)

	n, err := p.CountSearching(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTryPairWithoutCandidates(t *testing.T) {
	p := NewPairer(memory.New(), Config{})
	ctx := context.Background()

	require.NoError(t, p.Enqueue(ctx, "alice", "Alice"))
	_, ok, err := p.TryPair(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.TryPair(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestEnqueueKeepsPlaceAndMatch(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{})
	ctx := context.Background()

	p.SetClock(at(100))
	require.NoError(t, p.Enqueue(ctx, "alice", "Alice"))
	p.SetClock(at(200))
	require.NoError(t, p.Enqueue(ctx, "alice", "Alice"))
	alice, _ := getEntry(t, st, "alice")
	assert.Equal(t, int64(100), alice.EnqueuedAt)

	_, ok, err := p.TryPair(ctx, "bob", "Bob")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.Enqueue(ctx, "alice", "Alice"))
	alice, _ = getEntry(t, st, "alice")
	assert.Equal(t, entities.QueueMatched, alice.Status)
	assert.NotEmpty(t, alice.RoomId)

	queued, err := p.IsQueued(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, queued)
	require.NoError(t, p.Dequeue(ctx, "alice"))
	queued, err = p.IsQueued(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, queued)
}

func TestConcurrentPairingIsExclusive(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{})
	ctx := context.Background()

	const players = 12
	for i := 0; i < players; i++ {
		p.SetClock(at(int64(100 + i)))
		require.NoError(t, p.Enqueue(ctx, fmt.Sprintf("p%02d", i), "P"))
	}

	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for i := 0; i < players; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _, err := p.TryPair(ctx, id, "P")
				assert.NoError(t, err)
			}(fmt.Sprintf("p%02d", i))
		}
		wg.Wait()
	}

	seats := make(map[string]string)
	for _, room := range listRooms(t, st) {
		for _, id := range []string{room.PlayerXId, room.PlayerOId} {
			prev, taken := seats[id]
			assert.False(t, taken, "%s seated in %s and %s", id, prev, room.Id)
			seats[id] = room.Id
		}
	}
	assert.NotEmpty(t, seats)

	for id, roomId := range seats {
		e, ok := getEntry(t, st, id)
		require.True(t, ok)
		assert.Equal(t, entities.QueueMatched, e.Status)
		assert.Equal(t, roomId, e.RoomId)
	}
}

// interleavingStore runs race once inside the first transaction, after the
// transaction function has read its documents and before it commits.
type interleavingStore struct {
	store.Store
	once sync.Once
	race func()
}

func (s *interleavingStore) RunTransaction(ctx context.Context, fn store.TxFunc) error {
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		s.once.Do(s.race)
		return nil
	})
}

func TestLostPairingRaceReportsNoMatch(t *testing.T) {
	st := memory.New()
	plain := NewPairer(st, Config{})
	ctx := context.Background()
	require.NoError(t, plain.Enqueue(ctx, "alice", "Alice"))

	var rival Pairing
	racing := NewPairer(&interleavingStore{
		Store: st,
		race: func() {
			pr, ok, err := plain.TryPair(ctx, "carol", "Carol")
			require.NoError(t, err)
			require.True(t, ok)
			rival = pr
		},
	}, Config{})

	_, ok, err := racing.TryPair(ctx, "bob", "Bob")
	require.NoError(t, err)
	assert.False(t, ok)

	rooms := listRooms(t, st)
	require.Len(t, rooms, 1)
	assert.Equal(t, rival.RoomId, rooms[0].Id)
	assert.Equal(t, "carol", rooms[0].PlayerXId)

	alice, _ := getEntry(t, st, "alice")
	assert.Equal(t, rival.RoomId, alice.RoomId)
	assert.Equal(t, "carol", alice.OpponentId)
}

func TestListenForPairingFiresOnce(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Enqueue(ctx, "alice", "Alice"))
	got := make(chan Pairing, 2)
	stop, err := p.ListenForPairing(ctx, "alice", func(pr Pairing) { got <- pr })
	require.NoError(t, err)
	defer stop()

	pr, ok, err := p.TryPair(ctx, "bob", "Bob")
	require.NoError(t, err)
	require.True(t, ok)

	select {
	case mine := <-got:
		assert.Equal(t, pr.RoomId, mine.RoomId)
		assert.Equal(t, game.O, mine.Symbol)
		assert.Equal(t, "bob", mine.OpponentId)
	case <-time.After(time.Second):
		t.Fatal("pairing not delivered")
	}

	require.Eventually(t, func() bool {
		queued, err := p.IsQueued(ctx, "alice")
		return err == nil && !queued
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, got, 0)
}

func TestCleanupStaleRemovesOnlyOld(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{QueueTimeout: time.Minute})
	ctx := context.Background()

	p.SetClock(at(0))
	require.NoError(t, p.Enqueue(ctx, "old", "Old"))
	p.SetClock(at(50_000))
	require.NoError(t, p.Enqueue(ctx, "fresh", "Fresh"))

	p.SetClock(at(70_000))
	removed, err := p.CleanupStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := getEntry(t, st, "old")
	assert.False(t, ok)
	_, ok = getEntry(t, st, "fresh")
	assert.True(t, ok)
}

func TestSearchPairsTwoPlayers(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{SearchInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := make(chan Pairing, 2)
	for _, id := range []string{"alice", "bob"} {
		go func(id string) {
			pr, err := p.Search(ctx, id, id)
			assert.NoError(t, err)
			results <- pr
		}(id)
	}

	a, b := <-results, <-results
	require.NotEmpty(t, a.RoomId)
	assert.Equal(t, a.RoomId, b.RoomId)
	assert.NotEqual(t, a.Symbol, b.Symbol)

	require.Eventually(t, func() bool {
		n, err := p.CountSearching(ctx)
		qa, _ := p.IsQueued(ctx, "alice")
		qb, _ := p.IsQueued(ctx, "bob")
		return err == nil && n == 0 && !qa && !qb
	}, time.Second, 5*time.Millisecond)
}

func TestSearchCancelDequeues(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{SearchInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.Search(ctx, "alice", "Alice")
		done <- err
	}()

	require.Eventually(t, func() bool {
		queued, err := p.IsQueued(context.Background(), "alice")
		return err == nil && queued
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("search did not stop")
	}

	queued, err := p.IsQueued(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, queued)
}

func TestConnectionEntryKeepsConnectionAfterPairing(t *testing.T) {
	st := memory.New()
	p := NewPairer(st, Config{})
	ctx := context.Background()

	_, exists, err := p.Entry(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, p.EnqueueConnection(ctx, "alice", "Alice", "conn-a"))
	require.NoError(t, p.EnqueueConnection(ctx, "bob", "Bob", "conn-b"))

	pr, ok, err := p.TryPair(ctx, "bob", "Bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", pr.OpponentId)

	entry, exists, err := p.Entry(ctx, "alice")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, entities.QueueMatched, entry.Status)
	assert.Equal(t, "conn-a", entry.ConnectionId)
	assert.Equal(t, pr.RoomId, entry.RoomId)
	assert.Equal(t, string(game.O), entry.Symbol)
}
