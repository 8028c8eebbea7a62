package models

import "time"

type PhaseType string

const (
	PhaseQualification PhaseType = "qualification"
	PhaseSitNGo        PhaseType = "sit_n_go"
	PhaseKnockout      PhaseType = "knockout"
	PhaseFinals        PhaseType = "finals"
)

type PhaseFormat string

const (
	PhaseFormatGauntlet PhaseFormat = "gauntlet"
	PhaseFormatBracket  PhaseFormat = "bracket"
	PhaseFormatSwiss    PhaseFormat = "swiss"
)

type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseLive      PhaseStatus = "live"
	PhaseCompleted PhaseStatus = "completed"
)

// Phase is one sequential stage of a multi-stage tournament.
// Phases form a total order by Position within their tournament.
type Phase struct {
	ID               int         `json:"id" db:"id"`
	TournamentID     int         `json:"tournament_id" db:"tournament_id"`
	Position         int         `json:"position" db:"position"`
	Name             string      `json:"name" db:"name"`
	Type             PhaseType   `json:"type" db:"type"`
	Format           PhaseFormat `json:"format" db:"format"`
	StartTime        *time.Time  `json:"start_time,omitempty" db:"start_time"`
	EndTime          *time.Time  `json:"end_time,omitempty" db:"end_time"`
	Status           PhaseStatus `json:"status" db:"status"`
	AdvancingPlayers *int        `json:"advancing_players,omitempty" db:"advancing_players"`
}
