package models

import "time"

type BracketMatchStatus string

const (
	BracketMatchPending   BracketMatchStatus = "pending"
	BracketMatchLive      BracketMatchStatus = "live"
	BracketMatchCompleted BracketMatchStatus = "completed"
)

// BracketMatch is one pairing in a single-elimination tree. Nil player slots
// mean "TBD" (the feeding match has not resolved yet). A bye match has
// exactly one player and resolves immediately.
type BracketMatch struct {
	UID                  string             `json:"uid" db:"uid"`
	Round                int                `json:"round" db:"round"`
	OrderInRound         int                `json:"order_in_round" db:"order_in_round"`
	Player1ID            *int               `json:"player1_id,omitempty" db:"p1_participant_id"`
	Player2ID            *int               `json:"player2_id,omitempty" db:"p2_participant_id"`
	WinnerID             *int               `json:"winner_id,omitempty" db:"winner_participant_id"`
	Status               BracketMatchStatus `json:"status" db:"status"`
	IsBye                bool               `json:"is_bye,omitempty" db:"is_bye"`
	StartTime            *time.Time         `json:"start_time,omitempty" db:"start_time"`
	MatchCode            *string            `json:"match_code,omitempty" db:"match_code"`
}

// BracketRound groups the matches of one elimination round.
type BracketRound struct {
	RoundNumber int            `json:"round_number"`
	Matches     []BracketMatch `json:"matches"`
}

// TournamentBracket is the full single-elimination tree, round 1 first.
// Round r+1 always has half the matches of round r.
type TournamentBracket struct {
	TournamentID int            `json:"tournament_id"`
	Rounds       []BracketRound `json:"rounds"`
}

// FindMatch returns the round index, match index, and match for a UID.
func (b *TournamentBracket) FindMatch(uid string) (int, int, *BracketMatch) {
	for ri := range b.Rounds {
		for mi := range b.Rounds[ri].Matches {
			if b.Rounds[ri].Matches[mi].UID == uid {
				return ri, mi, &b.Rounds[ri].Matches[mi]
			}
		}
	}
	return -1, -1, nil
}
