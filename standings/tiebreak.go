package standings

import (
	"cmp"
	"math/rand"
	"slices"
	"time"

	"github.com/Dosada05/gauntlet-system/models"
)

// History holds recorded per-match results keyed by participant ID. It is
// the data the tiebreaker chain evaluates.
type History map[int][]models.MatchResult

// BreakTies orders a group of equal-points participants by applying the rule
// chain in ascending rule order. The random rule is deterministic for a
// given seed so repeated leaderboard reads agree. Name and ID are the final
// fallback when every rule leaves participants level.
func BreakTies(tied []models.Participant, rules []models.TiebreakerRule, hist History, seed int64) []models.Participant {
	if len(tied) < 2 {
		return tied
	}

	ordered := make([]models.TiebreakerRule, len(rules))
	copy(ordered, rules)
	slices.SortFunc(ordered, func(a, b models.TiebreakerRule) int {
		return cmp.Compare(a.Order, b.Order)
	})

	// Pre-draw random values so the random rule is a stable comparator.
	rng := rand.New(rand.NewSource(seed))
	ids := make([]int, len(tied))
	for i, p := range tied {
		ids[i] = p.ID
	}
	slices.Sort(ids)
	draws := make(map[int]int64, len(ids))
	for _, id := range ids {
		draws[id] = rng.Int63()
	}

	result := make([]models.Participant, len(tied))
	copy(result, tied)
	slices.SortStableFunc(result, func(a, b models.Participant) int {
		for _, rule := range ordered {
			if c := compareByRule(rule.Type, a, b, hist, draws); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(a.RangerName, b.RangerName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// compareByRule returns negative when a ranks ahead of b under the rule.
func compareByRule(t models.TiebreakerType, a, b models.Participant, hist History, draws map[int]int64) int {
	switch t {
	case models.TiebreakHighestSingleScore:
		return cmp.Compare(highestSingleScore(hist[b.ID]), highestSingleScore(hist[a.ID]))
	case models.TiebreakLastRoundScore:
		return cmp.Compare(lastRoundScore(hist[b.ID]), lastRoundScore(hist[a.ID]))
	case models.TiebreakLowestHPLost:
		return cmp.Compare(totalHPLost(hist[a.ID]), totalHPLost(hist[b.ID]))
	case models.TiebreakStrongestOpponents:
		return cmp.Compare(averageOpponentRating(hist[b.ID]), averageOpponentRating(hist[a.ID]))
	case models.TiebreakRandom:
		return cmp.Compare(draws[a.ID], draws[b.ID])
	default:
		return 0
	}
}

func highestSingleScore(results []models.MatchResult) float64 {
	best := 0.0
	for _, r := range results {
		if r.RoundScore > best {
			best = r.RoundScore
		}
	}
	return best
}

func lastRoundScore(results []models.MatchResult) float64 {
	var latest time.Time
	score := 0.0
	for _, r := range results {
		if r.PlayedAt.After(latest) {
			latest = r.PlayedAt
			score = r.RoundScore
		}
	}
	return score
}

func totalHPLost(results []models.MatchResult) float64 {
	total := 0.0
	for _, r := range results {
		total += r.HPLost
	}
	return total
}

func averageOpponentRating(results []models.MatchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range results {
		total += r.OpponentRating
	}
	return total / float64(len(results))
}
