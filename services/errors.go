package services

import "errors"

// Shared sentinel errors, mapped to HTTP statuses in the handlers package.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed                  = errors.New("validation failed")
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidRegWindow        = errors.New("registration end must not precede registration start")
	ErrTournamentInvalidSchedule         = errors.New("registration window must close before the start time")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrRegistrationNotOpen               = errors.New("tournament registration is not open")
	ErrTournamentFull                    = errors.New("tournament registration is full")
	ErrDivisionInvalidEloRange           = errors.New("division elo range minimum exceeds maximum")
	ErrPhaseNotAdvanceable               = errors.New("phase is already completed")
	ErrParticipantInvalidTransition      = errors.New("participant status transition not allowed")
	ErrCheckInNotRequired                = errors.New("tournament does not require check-in")
	ErrWinnerNotInMatch                  = errors.New("winner is not a player of the match")
	ErrBracketNotGenerated               = errors.New("tournament bracket has not been generated")
	ErrNoEligibleSeeds                   = errors.New("no eligible participants to seed a bracket")

	// Conflicts
	ErrDuplicateRegistration  = errors.New("player is already registered for this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists for this organizer")
	ErrConcurrencyConflict    = errors.New("resource was modified concurrently, retry with fresh data")
	ErrUserEmailConflict      = errors.New("email address is already in use")

	// Authentication and authorization
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrMasterRoleRequired   = errors.New("only a master admin can perform this action")

	// Entity-specific not-found (more context than the generic ErrNotFound)
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrPhaseNotFound       = errors.New("phase not found")
	ErrDivisionNotFound    = errors.New("division not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMatchNotFound       = errors.New("bracket match not found")
	ErrUserNotFound        = errors.New("user not found")

	// Upstream API. Zero results is not an error; only failed or
	// unparseable fetches surface this.
	ErrUpstreamFetch = errors.New("upstream match data fetch failed")
)
