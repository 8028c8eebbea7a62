package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/Dosada05/gauntlet-system/models"
)

var (
	ErrNoParticipants       = errors.New("cannot generate bracket with zero participants")
	ErrMatchNotFound        = errors.New("bracket match not found")
	ErrWinnerNotInMatch     = errors.New("winner is not a player of this match")
	ErrMatchAlreadyResolved = errors.New("bracket match already has a winner")
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate builds the full single-elimination tree from the seed list.
// The seed list is padded with byes up to the next power of two; round 1
// pairs consecutive seeds (0,1), (2,3), and so on. Bye matches resolve
// immediately and their player is propagated into round 2.
func (g *SingleEliminationGenerator) Generate(_ context.Context, params GenerateParams) (*models.TournamentBracket, error) {
	n := len(params.Seeds)
	if n == 0 {
		return nil, ErrNoParticipants
	}

	bracket := &models.TournamentBracket{TournamentID: params.TournamentID}

	if n == 1 {
		// Degenerate single-entrant bracket: one bye match, already resolved.
		pid := params.Seeds[0].ID
		bracket.Rounds = []models.BracketRound{{
			RoundNumber: 1,
			Matches: []models.BracketMatch{{
				UID:          "R1M1",
				Round:        1,
				OrderInRound: 1,
				Player1ID:    &pid,
				WinnerID:     &pid,
				Status:       models.BracketMatchCompleted,
				IsBye:        true,
			}},
		}}
		return bracket, nil
	}

	size := nextPowerOfTwo(n)
	numRounds := bits.TrailingZeros(uint(size)) // log2 of a power of two

	slots := make([]*int, size)
	for i := 0; i < n; i++ {
		pid := params.Seeds[i].ID
		slots[i] = &pid
	}

	// Round 1 from padded seed slots.
	firstRound := models.BracketRound{RoundNumber: 1}
	for i := 0; i < size; i += 2 {
		firstRound.Matches = append(firstRound.Matches, models.BracketMatch{
			UID:          matchUID(1, i/2+1),
			Round:        1,
			OrderInRound: i/2 + 1,
			Player1ID:    slots[i],
			Player2ID:    slots[i+1],
			Status:       models.BracketMatchPending,
		})
	}
	bracket.Rounds = append(bracket.Rounds, firstRound)

	// Later rounds start empty; slots fill as earlier rounds resolve.
	matchCount := size / 2
	for r := 2; r <= numRounds; r++ {
		matchCount /= 2
		round := models.BracketRound{RoundNumber: r}
		for i := 1; i <= matchCount; i++ {
			round.Matches = append(round.Matches, models.BracketMatch{
				UID:          matchUID(r, i),
				Round:        r,
				OrderInRound: i,
				Status:       models.BracketMatchPending,
			})
		}
		bracket.Rounds = append(bracket.Rounds, round)
	}

	// Padding leaves some matches without a full pair. A one-player match
	// is a walkover, a zero-player match completes with no winner; walkover
	// winners cascade forward, so a player whose next opponent slot can
	// never fill keeps advancing. Rounds are processed in order, so a
	// resolved feeder is visible before its dependent match is examined.
	for ri := range bracket.Rounds {
		for mi := range bracket.Rounds[ri].Matches {
			m := &bracket.Rounds[ri].Matches[mi]
			if m.Status != models.BracketMatchPending || !feedersResolved(bracket, ri, mi) {
				continue
			}
			switch {
			case m.Player1ID == nil && m.Player2ID == nil:
				m.IsBye = true
				m.Status = models.BracketMatchCompleted
			case m.Player2ID == nil:
				m.IsBye = true
				m.WinnerID = m.Player1ID
				m.Status = models.BracketMatchCompleted
				propagate(bracket, ri, mi, *m.Player1ID)
			case m.Player1ID == nil:
				m.IsBye = true
				m.WinnerID = m.Player2ID
				m.Status = models.BracketMatchCompleted
				propagate(bracket, ri, mi, *m.Player2ID)
			}
		}
	}

	return bracket, nil
}

// feedersResolved reports whether both matches feeding round ri match mi are
// settled, so an empty slot there means a bye rather than a pending feed.
func feedersResolved(bracket *models.TournamentBracket, ri, mi int) bool {
	if ri == 0 {
		return true
	}
	prev := bracket.Rounds[ri-1].Matches
	return prev[2*mi].Status == models.BracketMatchCompleted &&
		prev[2*mi+1].Status == models.BracketMatchCompleted
}

// SetWinner resolves a match and advances the winner into the next round.
// The winner must be one of the match's players; resolving a match twice is
// rejected so a finished result cannot be silently overwritten.
func SetWinner(bracket *models.TournamentBracket, matchUID string, winnerID int) error {
	ri, mi, match := bracket.FindMatch(matchUID)
	if match == nil {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchUID)
	}
	if match.WinnerID != nil {
		return fmt.Errorf("%w: %s", ErrMatchAlreadyResolved, matchUID)
	}
	if !isPlayerOf(match, winnerID) {
		return fmt.Errorf("%w: participant %d in match %s", ErrWinnerNotInMatch, winnerID, matchUID)
	}

	match.WinnerID = &winnerID
	match.Status = models.BracketMatchCompleted
	propagate(bracket, ri, mi, winnerID)
	return nil
}

// propagate assigns the winner of match mi in round ri to the proper slot of
// match mi/2 in the next round: slot 1 for even mi, slot 2 for odd.
func propagate(bracket *models.TournamentBracket, ri, mi, winnerID int) {
	if ri+1 >= len(bracket.Rounds) {
		return
	}
	target := &bracket.Rounds[ri+1].Matches[mi/2]
	if mi%2 == 0 {
		target.Player1ID = &winnerID
	} else {
		target.Player2ID = &winnerID
	}
}

func isPlayerOf(m *models.BracketMatch, participantID int) bool {
	if m.Player1ID != nil && *m.Player1ID == participantID {
		return true
	}
	if m.Player2ID != nil && *m.Player2ID == participantID {
		return true
	}
	return false
}

func matchUID(round, order int) string {
	return fmt.Sprintf("R%dM%d", round, order)
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
