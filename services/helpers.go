package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/gauntlet-system/models"
)

// validateTournamentSchedule enforces registrationStart <= registrationEnd
// <= startTime across whichever timestamps are present.
func validateTournamentSchedule(regStart, regEnd, start *time.Time) error {
	if regStart != nil && regEnd != nil && regEnd.Before(*regStart) {
		return fmt.Errorf("%w: %s before %s", ErrTournamentInvalidRegWindow,
			regEnd.Format(time.RFC3339), regStart.Format(time.RFC3339))
	}
	if regEnd != nil && start != nil && start.Before(*regEnd) {
		return fmt.Errorf("%w: start %s before registration end %s", ErrTournamentInvalidSchedule,
			start.Format(time.RFC3339), regEnd.Format(time.RFC3339))
	}
	return nil
}

func isValidTournamentStatus(s models.TournamentStatus) bool {
	switch s {
	case models.StatusUpcoming, models.StatusRegistration, models.StatusLive, models.StatusCompleted:
		return true
	}
	return false
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusUpcoming:     {models.StatusRegistration, models.StatusLive},
		models.StatusRegistration: {models.StatusLive, models.StatusCompleted},
		models.StatusLive:         {models.StatusCompleted},
		models.StatusCompleted:    {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// participantTransitions is the lifecycle table: pending resolves to
// registered or rejected; registered may check in or fall out; elimination
// is reachable from any non-terminal state.
var participantTransitions = map[models.ParticipantStatus][]models.ParticipantStatus{
	models.ParticipantPending:    {models.ParticipantRegistered, models.ParticipantRejected, models.ParticipantEliminated},
	models.ParticipantRegistered: {models.ParticipantCheckedIn, models.ParticipantEliminated, models.ParticipantAdvanced},
	models.ParticipantCheckedIn:  {models.ParticipantEliminated, models.ParticipantAdvanced},
	models.ParticipantAdvanced:   {models.ParticipantEliminated},
	models.ParticipantEliminated: {},
	models.ParticipantRejected:   {},
}

func isValidParticipantTransition(current, next models.ParticipantStatus) bool {
	for _, allowed := range participantTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// runInTx wraps fn in a transaction, rolling back on error or panic.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func roomForTournament(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}
