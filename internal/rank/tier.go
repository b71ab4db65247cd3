package rank

import (
	"fmt"
	"strings"
	"time"
)

type Tier int

const (
	Bronze Tier = iota
	Silver
	Gold
	Platinum
	Diamond
	Master
	Grandmaster
)

var tierNames = [...]string{
	"Bronze", "Silver", "Gold", "Platinum", "Diamond", "Master", "Grandmaster",
}

// Minimum season score for each tier.
var tierThresholds = [...]int{0, 600, 1200, 1800, 2400, 3200, 4000}

func (t Tier) String() string {
	if t < Bronze || t > Grandmaster {
		return "Unknown"
	}
	return tierNames[t]
}

func (t Tier) Threshold() int {
	if t < Bronze || t > Grandmaster {
		return 0
	}
	return tierThresholds[t]
}

// ParseTier accepts tier names in any case. An empty name is Bronze.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Bronze, nil
	}
	for i, name := range tierNames {
		if strings.EqualFold(name, s) {
			return Tier(i), nil
		}
	}
	return Bronze, fmt.Errorf("unknown rank tier: %q", s)
}

func TierForScore(score int) Tier {
	tier := Bronze
	for i, min := range tierThresholds {
		if score >= min {
			tier = Tier(i)
		}
	}
	return tier
}

// SoftDrop is the tier a player starts a new season with.
func SoftDrop(t Tier) Tier {
	if t <= Bronze {
		return Bronze
	}
	return t - 1
}

// SeasonId names the calendar month containing t, in UTC.
func SeasonId(t time.Time) string {
	return t.UTC().Format("2006-01")
}
