package models

import "time"

// MatchResult is one participant's outcome in one played match. This is the
// per-match history that the tiebreaker chain evaluates: single-game scores,
// HP lost, and the strength of opponents faced.
type MatchResult struct {
	ID             int       `json:"id" db:"id"`
	TournamentID   int       `json:"tournament_id" db:"tournament_id"`
	ParticipantID  int       `json:"participant_id" db:"participant_id"`
	PhaseID        *int      `json:"phase_id,omitempty" db:"phase_id"`
	Placement      int       `json:"placement" db:"placement"`
	Points         float64   `json:"points" db:"points"`
	RoundScore     float64   `json:"round_score" db:"round_score"`
	HPLost         float64   `json:"hp_lost" db:"hp_lost"`
	OpponentRating float64   `json:"opponent_rating" db:"opponent_rating"`
	PlayedAt       time.Time `json:"played_at" db:"played_at"`
}
