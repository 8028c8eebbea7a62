package models

import "time"

// TournamentStatus represents tournament lifecycle statuses, matching the ENUM in the DB.
type TournamentStatus string

const (
	StatusUpcoming     TournamentStatus = "upcoming"
	StatusRegistration TournamentStatus = "registration"
	StatusLive         TournamentStatus = "live"
	StatusCompleted    TournamentStatus = "completed"
)

type TournamentType string

const (
	TypeStandard TournamentType = "standard"
	TypeCustom   TournamentType = "custom"
	TypePractice TournamentType = "practice"
	TypeGauntlet TournamentType = "gauntlet"
)

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatSwiss             TournamentFormat = "swiss"
	FormatRoundRobin        TournamentFormat = "round_robin"
)

// Tournament is the aggregate root and the unit of persistence.
type Tournament struct {
	ID                  int              `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Description         *string          `json:"description,omitempty" db:"description"`
	OrganizerID         int              `json:"organizer_id" db:"organizer_id"`
	Status              TournamentStatus `json:"status" db:"status"`
	Type                TournamentType   `json:"type" db:"type"`
	Format              TournamentFormat `json:"format" db:"format"`
	MaxParticipants     int              `json:"max_participants" db:"max_participants"`
	CurrentParticipants int              `json:"current_participants" db:"current_participants"`
	PrizePool           *string          `json:"prize_pool,omitempty" db:"prize_pool"`
	RegistrationStart   *time.Time       `json:"registration_start,omitempty" db:"registration_start"`
	RegistrationEnd     *time.Time       `json:"registration_end,omitempty" db:"registration_end"`
	StartTime           *time.Time       `json:"start_time,omitempty" db:"start_time"`
	EndTime             *time.Time       `json:"end_time,omitempty" db:"end_time"`
	HostPlatform        *string          `json:"host_platform,omitempty" db:"host_platform"`
	Rules               *string          `json:"rules,omitempty" db:"rules"`
	CheckInRequired     bool             `json:"check_in_required" db:"check_in_required"`
	LogoKey             *string          `json:"-" db:"logo_key"`
	LogoURL             *string          `json:"logo_url,omitempty" db:"-"`

	// Version guards concurrent read-modify-write cycles on the aggregate.
	// Every mutating write bumps it; a stale version fails the write.
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Owned sub-entities, loaded by the service layer (not mapped directly).
	Organizer     *User              `json:"organizer,omitempty" db:"-"`
	Divisions     []Division         `json:"divisions,omitempty" db:"-"`
	Phases        []Phase            `json:"phases,omitempty" db:"-"`
	Participants  []Participant      `json:"participants,omitempty" db:"-"`
	ScoringSystem *ScoringSystem     `json:"scoring_system,omitempty" db:"-"`
	Tiebreakers   []TiebreakerRule   `json:"tiebreakers,omitempty" db:"-"`
	Bracket       *TournamentBracket `json:"bracket,omitempty" db:"-"`
}
