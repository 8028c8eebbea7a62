package models

import "time"

type ParticipantStatus string

const (
	ParticipantPending    ParticipantStatus = "pending"
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantCheckedIn  ParticipantStatus = "checked_in"
	ParticipantEliminated ParticipantStatus = "eliminated"
	ParticipantAdvanced   ParticipantStatus = "advanced"
	ParticipantRejected   ParticipantStatus = "rejected"
)

// Participant is a player registered in a tournament. PlayerID is the
// external game identity and is unique within a tournament.
type Participant struct {
	ID               int               `json:"id" db:"id"`
	TournamentID     int               `json:"tournament_id" db:"tournament_id"`
	RangerName       string            `json:"ranger_name" db:"ranger_name"`
	PlayerID         string            `json:"player_id" db:"player_id"`
	RegistrationTime time.Time         `json:"registration_time" db:"registration_time"`
	Status           ParticipantStatus `json:"status" db:"status"`
	DivisionID       *int              `json:"division_id,omitempty" db:"division_id"`
	Points           float64           `json:"points" db:"points"`
	MatchesPlayed    int               `json:"matches_played" db:"matches_played"`
}

// IsTerminal reports whether no further lifecycle transitions apply.
func (s ParticipantStatus) IsTerminal() bool {
	return s == ParticipantEliminated || s == ParticipantRejected
}
