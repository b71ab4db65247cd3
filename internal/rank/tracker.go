// Package rank keeps monthly season standings for ranked play.
package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/domains/entities"
	"github.com/tictacthree/tictacthree/internal/store"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

const (
	// DemotionStreak is the loss streak at which a lower score may demote.
	DemotionStreak = 3

	// RecordedRoundsLimit is how many recorded round ids a record keeps for
	// spotting repeated deliveries.
	RecordedRoundsLimit = 20

	recordAttempts = 3
)

type Outcome int

const (
	Win Outcome = iota
	Loss
)

func (o Outcome) String() string {
	if o == Win {
		return "win"
	}
	return "loss"
}

func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "win":
		return Win, nil
	case "loss":
		return Loss, nil
	default:
		return Loss, fmt.Errorf("unknown outcome: %q", s)
	}
}

var (
	ErrInvalidUser  = errors.New("invalid user id")
	ErrInvalidRound = errors.New("invalid round id")
)

// RoundId names one round of one room.
func RoundId(roomId string, round int) string {
	return fmt.Sprintf("%s#%d", roomId, round)
}

type Update struct {
	Rank         Tier
	PreviousRank Tier
	Promoted     bool
	Demoted      bool
	SeasonScore  int
}

type Tracker struct {
	store store.Store
	now   func() time.Time
}

func NewTracker(s store.Store) *Tracker {
	return &Tracker{store: s, now: time.Now}
}

func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Score is the season score for a record.
func Score(wins, losses int) int {
	games := wins + losses
	if games == 0 {
		return 0
	}
	winRate := float64(wins) / float64(games)
	return int(math.Round(float64(wins)*100 + winRate*500))
}

// rollover resets r for season, carrying a soft-dropped tier. It reports
// whether anything changed.
func rollover(r *entities.SeasonRank, season string) bool {
	if r.SeasonId == season {
		return false
	}
	current, err := ParseTier(r.Rank)
	if err != nil {
		current = Bronze
	}
	if r.SeasonId != "" {
		r.LastSeasonRank = current.String()
		current = SoftDrop(current)
	}
	*r = entities.SeasonRank{
		UserId:         r.UserId,
		Rank:           current.String(),
		LastSeasonRank: r.LastSeasonRank,
		SeasonId:       season,
		RecordedRounds: r.RecordedRounds,
	}
	return true
}

func (t *Tracker) load(ctx context.Context, tx store.Tx, userId string) (entities.SeasonRank, bool, error) {
	snap, err := tx.Get(ctx, store.SeasonRankKey(userId))
	if err != nil {
		return entities.SeasonRank{}, false, err
	}
	rank := entities.SeasonRank{UserId: userId}
	if snap.Exists() {
		if err := snap.Decode(&rank); err != nil {
			return entities.SeasonRank{}, false, err
		}
	}
	changed := rollover(&rank, SeasonId(t.now()))
	return rank, changed || !snap.Exists(), nil
}

// EnsureSeason returns the user's standing for the current season, rolling
// over a record from an earlier one.
func (t *Tracker) EnsureSeason(ctx context.Context, userId string) (entities.SeasonRank, error) {
	if userId == "" {
		return entities.SeasonRank{}, ErrInvalidUser
	}
	var out entities.SeasonRank
	err := t.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		rank, changed, err := t.load(ctx, tx, userId)
		if err != nil {
			return err
		}
		out = rank
		if !changed {
			return nil
		}
		return tx.Set(store.SeasonRankKey(userId), rank)
	})
	if err != nil {
		return entities.SeasonRank{}, fmt.Errorf("failed to ensure season: %w", err)
	}
	return out, nil
}

// RecordResult adds one ranked result. Promotion follows the score at once;
// a lower score only demotes after DemotionStreak straight losses.
func (t *Tracker) RecordResult(ctx context.Context, userId string, outcome Outcome) (Update, error) {
	if userId == "" {
		return Update{}, ErrInvalidUser
	}
	var update Update
	err := t.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		rank, _, err := t.load(ctx, tx, userId)
		if err != nil {
			return err
		}
		update = apply(&rank, outcome)
		return tx.Set(store.SeasonRankKey(userId), rank)
	})
	if err != nil {
		return Update{}, fmt.Errorf("failed to record result: %w", err)
	}
	logUpdate(userId, outcome, update)
	return update, nil
}

// RecordRound records a ranked round for both players in one transaction.
// Draws are not recorded, so a round always has a winner and a loser.
// roundId marks the round on both records; delivering the same round again
// leaves them unchanged.
func (t *Tracker) RecordRound(ctx context.Context, roundId, winnerId, loserId string) (Update, Update, error) {
	if winnerId == "" || loserId == "" || winnerId == loserId {
		return Update{}, Update{}, ErrInvalidUser
	}
	if roundId == "" {
		return Update{}, Update{}, ErrInvalidRound
	}

	var won, lost Update
	var duplicate bool
	record := func(ctx context.Context, tx store.Tx) error {
		winner, _, err := t.load(ctx, tx, winnerId)
		if err != nil {
			return err
		}
		loser, _, err := t.load(ctx, tx, loserId)
		if err != nil {
			return err
		}
		duplicate = recorded(winner, roundId) || recorded(loser, roundId)
		if duplicate {
			won, lost = unchanged(winner), unchanged(loser)
			return nil
		}

		won = apply(&winner, Win)
		lost = apply(&loser, Loss)
		markRecorded(&winner, roundId)
		markRecorded(&loser, roundId)
		if err := tx.Set(store.SeasonRankKey(winnerId), winner); err != nil {
			return err
		}
		return tx.Set(store.SeasonRankKey(loserId), loser)
	}

	var err error
	for attempt := 0; attempt < recordAttempts; attempt++ {
		err = t.store.RunTransaction(ctx, record)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil {
		return Update{}, Update{}, fmt.Errorf("failed to record round: %w", err)
	}

	if duplicate {
		logging.Info("round already recorded", zap.String("roundId", roundId))
		return won, lost, nil
	}
	logUpdate(winnerId, Win, won)
	logUpdate(loserId, Loss, lost)
	return won, lost, nil
}

// apply adds one result to r and returns the resulting change.
func apply(r *entities.SeasonRank, outcome Outcome) Update {
	previous, err := ParseTier(r.Rank)
	if err != nil {
		previous = Bronze
	}

	if outcome == Win {
		r.Wins++
		r.LossStreak = 0
	} else {
		r.Losses++
		r.LossStreak++
	}
	r.GamesPlayed = r.Wins + r.Losses
	r.WinRate = float64(r.Wins) / float64(r.GamesPlayed)
	r.SeasonScore = Score(r.Wins, r.Losses)

	next := TierForScore(r.SeasonScore)
	if next < previous && r.LossStreak < DemotionStreak {
		next = previous
	}
	r.Rank = next.String()

	return Update{
		Rank:         next,
		PreviousRank: previous,
		Promoted:     next > previous,
		Demoted:      next < previous,
		SeasonScore:  r.SeasonScore,
	}
}

func unchanged(r entities.SeasonRank) Update {
	tier, err := ParseTier(r.Rank)
	if err != nil {
		tier = Bronze
	}
	return Update{Rank: tier, PreviousRank: tier, SeasonScore: r.SeasonScore}
}

func recorded(r entities.SeasonRank, roundId string) bool {
	for _, id := range r.RecordedRounds {
		if id == roundId {
			return true
		}
	}
	return false
}

// markRecorded keeps the newest RecordedRoundsLimit round ids.
func markRecorded(r *entities.SeasonRank, roundId string) {
	r.RecordedRounds = append(r.RecordedRounds, roundId)
	if n := len(r.RecordedRounds); n > RecordedRoundsLimit {
		r.RecordedRounds = r.RecordedRounds[n-RecordedRoundsLimit:]
	}
}

func logUpdate(userId string, outcome Outcome, update Update) {
	logging.Info("rank updated",
		zap.String("userId", userId),
		zap.String("outcome", outcome.String()),
		zap.String("rank", update.Rank.String()),
		zap.Int("seasonScore", update.SeasonScore))
}
