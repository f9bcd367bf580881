package ledger

import "github.com/Dan9191/loan-ledger/internal/models"

// MaxRankProgress is the size of the good-standing buffer of one tier
const MaxRankProgress = 10

// Tier is one row of the rank table
type Tier struct {
	Rank  models.Rank
	Name  string
	Limit int64
}

// tiers is ordered from lowest to highest
var tiers = []Tier{
	{Rank: models.RankStandard, Name: "Standard", Limit: 2_000_000},
	{Rank: models.RankBronze, Name: "Bronze", Limit: 3_000_000},
	{Rank: models.RankSilver, Name: "Silver", Limit: 4_000_000},
	{Rank: models.RankGold, Name: "Gold", Limit: 5_000_000},
	{Rank: models.RankDiamond, Name: "Diamond", Limit: 10_000_000},
}

// Tiers returns the rank table, lowest first
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierIndex returns the position of r in the rank table, -1 if unknown
func TierIndex(r models.Rank) int {
	for i, t := range tiers {
		if t.Rank == r {
			return i
		}
	}
	return -1
}

// TierOf looks up the table row of r
func TierOf(r models.Rank) (Tier, bool) {
	i := TierIndex(r)
	if i < 0 {
		return Tier{}, false
	}
	return tiers[i], true
}

// Limit returns the credit ceiling of r; unknown ranks get the standard limit
func Limit(r models.Rank) int64 {
	if t, ok := TierOf(r); ok {
		return t.Limit
	}
	return tiers[0].Limit
}

// Below returns the tier directly under r
func Below(r models.Rank) (models.Rank, bool) {
	i := TierIndex(r)
	if i <= 0 {
		return r, false
	}
	return tiers[i-1].Rank, true
}

// Higher reports whether a ranks strictly above b
func Higher(a, b models.Rank) bool {
	return TierIndex(a) > TierIndex(b)
}
