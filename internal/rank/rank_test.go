package rank

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/internal/store/memory"
)

var october = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func newTracker(st store.Store) *Tracker {
	tr := NewTracker(st)
	tr.SetClock(func() time.Time { return october })
	return tr
}

func TestTiers(t *testing.T) {
	assert.Equal(t, Bronze, TierForScore(0))
	assert.Equal(t, Bronze, TierForScore(599))
	assert.Equal(t, Silver, TierForScore(600))
	assert.Equal(t, Gold, TierForScore(1200))
	assert.Equal(t, Platinum, TierForScore(1800))
	assert.Equal(t, Diamond, TierForScore(2400))
	assert.Equal(t, Master, TierForScore(3999))
	assert.Equal(t, Grandmaster, TierForScore(10000))

	tier, err := ParseTier("platinum")
	require.NoError(t, err)
	assert.Equal(t, Platinum, tier)
	_, err = ParseTier("Wood")
	assert.Error(t, err)

	assert.Equal(t, Bronze, SoftDrop(Bronze))
	assert.Equal(t, Master, SoftDrop(Grandmaster))
	assert.Equal(t, "2026-10", SeasonId(october))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0, Score(0, 0))
	assert.Equal(t, 600, Score(1, 0))
	assert.Equal(t, 1200, Score(8, 2))
	assert.Equal(t, 1164, Score(8, 3))
}

func TestFirstWinPromotes(t *testing.T) {
	tr := newTracker(memory.New())

	u, err := tr.RecordResult(context.Background(), "alice", Win)
	require.NoError(t, err)
	assert.Equal(t, Bronze, u.PreviousRank)
	assert.Equal(t, Silver, u.Rank)
	assert.True(t, u.Promoted)
	assert.Equal(t, 600, u.SeasonScore)

	_, err = tr.RecordResult(context.Background(), "", Win)
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestDemotionNeedsLossStreak(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, store.SeasonRankKey("alice"), entities.SeasonRank{
		UserId:      "alice",
		Rank:        Gold.String(),
		SeasonId:    "2026-10",
		Wins:        8,
		Losses:      2,
		GamesPlayed: 10,
		WinRate:     0.8,
		SeasonScore: 1200,
	}))
	tr := newTracker(st)

	u, err := tr.RecordResult(ctx, "alice", Loss)
	require.NoError(t, err)
	assert.Equal(t, 1164, u.SeasonScore)
	assert.Equal(t, Gold, u.Rank)
	assert.False(t, u.Demoted)

	u, err = tr.RecordResult(ctx, "alice", Loss)
	require.NoError(t, err)
	assert.Equal(t, Gold, u.Rank)

	u, err = tr.RecordResult(ctx, "alice", Loss)
	require.NoError(t, err)
	assert.Equal(t, 1108, u.SeasonScore)
	assert.Equal(t, Silver, u.Rank)
	assert.True(t, u.Demoted)

	rank, err := tr.EnsureSeason(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, rank.LossStreak)
	assert.Equal(t, 13, rank.GamesPlayed)
}

func TestSeasonRollover(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, store.SeasonRankKey("alice"), entities.SeasonRank{
		UserId:      "alice",
		Rank:        Gold.String(),
		SeasonId:    "2026-09",
		Wins:        8,
		Losses:      2,
		SeasonScore: 1200,
		LossStreak:  1,
	}))
	require.NoError(t, st.Set(ctx, store.SeasonRankKey("bob"), entities.SeasonRank{
		UserId:   "bob",
		Rank:     Bronze.String(),
		SeasonId: "2026-09",
	}))
	tr := newTracker(st)

	rank, err := tr.EnsureSeason(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "2026-10", rank.SeasonId)
	assert.Equal(t, "Silver", rank.Rank)
	assert.Equal(t, "Gold", rank.LastSeasonRank)
	assert.Zero(t, rank.Wins)
	assert.Zero(t, rank.SeasonScore)
	assert.Zero(t, rank.LossStreak)

	before, err := st.Get(ctx, store.SeasonRankKey("alice"))
	require.NoError(t, err)
	_, err = tr.EnsureSeason(ctx, "alice")
	require.NoError(t, err)
	after, err := st.Get(ctx, store.SeasonRankKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)

	rank, err = tr.EnsureSeason(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bronze", rank.Rank)

	rank, err = tr.EnsureSeason(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "Bronze", rank.Rank)
	assert.Empty(t, rank.LastSeasonRank)
}

func TestRecordRound(t *testing.T) {
	st := memory.New()
	tr := newTracker(st)
	ctx := context.Background()

	won, lost, err := tr.RecordRound(ctx, RoundId("ROOM", 1), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, Silver, won.Rank)
	assert.Equal(t, Bronze, lost.Rank)
	assert.Equal(t, 0, lost.SeasonScore)

	bob, err := tr.EnsureSeason(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bob.Losses)
	assert.Equal(t, []string{"ROOM#1"}, bob.RecordedRounds)

	_, _, err = tr.RecordRound(ctx, RoundId("ROOM", 2), "alice", "")
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, _, err = tr.RecordRound(ctx, RoundId("ROOM", 2), "alice", "alice")
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, _, err = tr.RecordRound(ctx, "", "alice", "bob")
	assert.ErrorIs(t, err, ErrInvalidRound)
}

func TestRecordRoundTwiceCountsOnce(t *testing.T) {
	tr := newTracker(memory.New())
	ctx := context.Background()
	roundId := RoundId("ROOM", 3)

	_, _, err := tr.RecordRound(ctx, roundId, "alice", "bob")
	require.NoError(t, err)
	won, lost, err := tr.RecordRound(ctx, roundId, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, won.Promoted)
	assert.Equal(t, Silver, won.Rank)
	assert.Equal(t, 600, won.SeasonScore)
	assert.Equal(t, Bronze, lost.Rank)

	alice, err := tr.EnsureSeason(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 600, alice.SeasonScore)
	bob, err := tr.EnsureSeason(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bob.Losses)
}

// conflictingStore fails the next conflicts transactions after running
// them, so nothing they buffered is written.
type conflictingStore struct {
	store.Store
	conflicts int
	runs      int
}

func (s *conflictingStore) RunTransaction(ctx context.Context, fn store.TxFunc) error {
	s.runs++
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.conflicts > 0 {
			s.conflicts--
			return store.ErrConflict
		}
		return nil
	})
}

func TestRecordRoundRetriedDeliveryAfterConflict(t *testing.T) {
	st := &conflictingStore{Store: memory.New(), conflicts: recordAttempts}
	tr := newTracker(st)
	ctx := context.Background()
	roundId := RoundId("ROOM", 1)

	_, _, err := tr.RecordRound(ctx, roundId, "alice", "bob")
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, recordAttempts, st.runs)

	alice, err := tr.EnsureSeason(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, alice.Wins)
	bob, err := tr.EnsureSeason(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, bob.Losses)

	for i := 0; i < 2; i++ {
		_, _, err = tr.RecordRound(ctx, roundId, "alice", "bob")
		require.NoError(t, err)
	}

	alice, err = tr.EnsureSeason(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 600, alice.SeasonScore)
	bob, err = tr.EnsureSeason(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bob.Losses)
}

func TestRecordRoundRetriesConflict(t *testing.T) {
	st := &conflictingStore{Store: memory.New(), conflicts: 1}
	tr := newTracker(st)
	ctx := context.Background()

	won, lost, err := tr.RecordRound(ctx, RoundId("ROOM", 1), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, st.runs)
	assert.True(t, won.Promoted)
	assert.Equal(t, Bronze, lost.Rank)

	bob, err := tr.EnsureSeason(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bob.Losses)
}

func TestRecordedRoundsAreCapped(t *testing.T) {
	tr := newTracker(memory.New())
	ctx := context.Background()

	for i := 1; i <= RecordedRoundsLimit+5; i++ {
		_, _, err := tr.RecordRound(ctx, RoundId("ROOM", i), "alice", "bob")
		require.NoError(t, err)
	}

	alice, err := tr.EnsureSeason(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, RecordedRoundsLimit+5, alice.Wins)
	require.Len(t, alice.RecordedRounds, RecordedRoundsLimit)
	assert.Equal(t, RoundId("ROOM", 6), alice.RecordedRounds[0])
	assert.Equal(t, RoundId("ROOM", RecordedRoundsLimit+5), alice.RecordedRounds[RecordedRoundsLimit-1])
}
