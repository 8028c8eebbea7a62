package standings

import (
	"testing"
	"time"

	"github.com/Dosada05/gauntlet-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tiedPair() []models.Participant {
	return []models.Participant{
		{ID: 1, RangerName: "Aria", Points: 10},
		{ID: 2, RangerName: "Borus", Points: 10},
	}
}

func resultAt(day int, score, hpLost, oppRating float64) models.MatchResult {
	return models.MatchResult{
		RoundScore:     score,
		HPLost:         hpLost,
		OpponentRating: oppRating,
		PlayedAt:       time.Date(2026, 8, day, 12, 0, 0, 0, time.UTC),
	}
}

func TestBreakTiesHighestSingleScore(t *testing.T) {
	hist := History{
		1: {resultAt(1, 40, 0, 0), resultAt(2, 55, 0, 0)},
		2: {resultAt(1, 90, 0, 0), resultAt(2, 10, 0, 0)},
	}
	rules := []models.TiebreakerRule{{Order: 1, Type: models.TiebreakHighestSingleScore}}

	ordered := BreakTies(tiedPair(), rules, hist, 1)
	assert.Equal(t, 2, ordered[0].ID, "best single round 90 beats 55")
}

func TestBreakTiesLastRoundScore(t *testing.T) {
	hist := History{
		1: {resultAt(1, 90, 0, 0), resultAt(5, 20, 0, 0)},
		2: {resultAt(1, 10, 0, 0), resultAt(5, 60, 0, 0)},
	}
	rules := []models.TiebreakerRule{{Order: 1, Type: models.TiebreakLastRoundScore}}

	ordered := BreakTies(tiedPair(), rules, hist, 1)
	assert.Equal(t, 2, ordered[0].ID, "most recent round 60 beats 20")
}

func TestBreakTiesLowestHPLost(t *testing.T) {
	hist := History{
		1: {resultAt(1, 0, 30, 0), resultAt(2, 0, 10, 0)},
		2: {resultAt(1, 0, 5, 0), resultAt(2, 0, 5, 0)},
	}
	rules := []models.TiebreakerRule{{Order: 1, Type: models.TiebreakLowestHPLost}}

	ordered := BreakTies(tiedPair(), rules, hist, 1)
	assert.Equal(t, 2, ordered[0].ID, "total 10 lost beats total 40")
}

func TestBreakTiesStrongestOpponents(t *testing.T) {
	hist := History{
		1: {resultAt(1, 0, 0, 1800), resultAt(2, 0, 0, 2000)},
		2: {resultAt(1, 0, 0, 1500)},
	}
	rules := []models.TiebreakerRule{{Order: 1, Type: models.TiebreakStrongestOpponents}}

	ordered := BreakTies(tiedPair(), rules, hist, 1)
	assert.Equal(t, 1, ordered[0].ID, "average 1900 beats 1500")
}

func TestBreakTiesChainOrder(t *testing.T) {
	// Rule 1 cannot separate the pair; rule 2 can. List the rules out of
	// order to confirm Order, not slice position, drives the chain.
	hist := History{
		1: {resultAt(1, 50, 20, 0)},
		2: {resultAt(1, 50, 5, 0)},
	}
	rules := []models.TiebreakerRule{
		{Order: 2, Type: models.TiebreakLowestHPLost},
		{Order: 1, Type: models.TiebreakHighestSingleScore},
	}

	ordered := BreakTies(tiedPair(), rules, hist, 1)
	assert.Equal(t, 2, ordered[0].ID)
}

func TestBreakTiesRandomIsDeterministicPerSeed(t *testing.T) {
	rules := []models.TiebreakerRule{{Order: 1, Type: models.TiebreakRandom}}

	first := BreakTies(tiedPair(), rules, nil, 42)
	for i := 0; i < 5; i++ {
		again := BreakTies(tiedPair(), rules, nil, 42)
		require.Equal(t, first[0].ID, again[0].ID)
		require.Equal(t, first[1].ID, again[1].ID)
	}
}

func TestBreakTiesFallbackIsNameOrder(t *testing.T) {
	// No rules and no history: name ascending settles it.
	ordered := BreakTies(tiedPair(), nil, nil, 1)
	assert.Equal(t, "Aria", ordered[0].RangerName)
	assert.Equal(t, "Borus", ordered[1].RangerName)
}

func TestBreakTiesSingleParticipantPassthrough(t *testing.T) {
	single := []models.Participant{{ID: 9, RangerName: "Solo"}}
	assert.Equal(t, single, BreakTies(single, nil, nil, 1))
}
