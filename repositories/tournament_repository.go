package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/gauntlet-system/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentFull         = errors.New("tournament has no open slots")
	ErrVersionConflict        = errors.New("tournament was modified concurrently")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
)

type ListTournamentsFilter struct {
	OrganizerID *int
	Status      *models.TournamentStatus
	Type        *models.TournamentType
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// Update writes the aggregate's scalar fields guarded by the version it
	// was read at; a stale version fails with ErrVersionConflict.
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	// BumpVersion advances the version guarded by the one the caller read,
	// serializing writes to sub-entities the aggregate owns.
	BumpVersion(ctx context.Context, exec SQLExecutor, id, version int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateScoring(ctx context.Context, exec SQLExecutor, id int, scoringJSON, tiebreakersJSON *string) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	// IncrementParticipants claims one registration slot atomically; it
	// fails with ErrTournamentFull when the tournament is at capacity.
	IncrementParticipants(ctx context.Context, exec SQLExecutor, id int) error
	DecrementParticipants(ctx context.Context, exec SQLExecutor, id int, count int) error
	Delete(ctx context.Context, id int) error
	GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, organizer_id, status, type, format,
	max_participants, current_participants, prize_pool,
	registration_start, registration_end, start_time, end_time,
	host_platform, rules, check_in_required, scoring_json, tiebreakers_json,
	logo_key, version, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	var scoringJSON, tiebreakersJSON *string
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.Status, &t.Type, &t.Format,
		&t.MaxParticipants, &t.CurrentParticipants, &t.PrizePool,
		&t.RegistrationStart, &t.RegistrationEnd, &t.StartTime, &t.EndTime,
		&t.HostPlatform, &t.Rules, &t.CheckInRequired, &scoringJSON, &tiebreakersJSON,
		&t.LogoKey, &t.Version, &t.CreatedAt,
	)
	if err != nil {
		return err
	}
	if t.ScoringSystem, err = models.DecodeScoring(scoringJSON); err != nil {
		return fmt.Errorf("decoding scoring_json for tournament %d: %w", t.ID, err)
	}
	if t.Tiebreakers, err = models.DecodeTiebreakers(tiebreakersJSON); err != nil {
		return fmt.Errorf("decoding tiebreakers_json for tournament %d: %w", t.ID, err)
	}
	return nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	executor := r.getExecutor(nil)

	scoringJSON, err := models.EncodeScoring(t.ScoringSystem)
	if err != nil {
		return fmt.Errorf("encoding scoring system: %w", err)
	}
	tiebreakersJSON, err := models.EncodeTiebreakers(t.Tiebreakers)
	if err != nil {
		return fmt.Errorf("encoding tiebreakers: %w", err)
	}

	query := `
		INSERT INTO tournaments (
			name, description, organizer_id, status, type, format,
			max_participants, prize_pool, registration_start, registration_end,
			start_time, end_time, host_platform, rules, check_in_required,
			scoring_json, tiebreakers_json, logo_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, current_participants, version, created_at`

	err = executor.QueryRowContext(ctx, query,
		t.Name, t.Description, t.OrganizerID, t.Status, t.Type, t.Format,
		t.MaxParticipants, t.PrizePool, t.RegistrationStart, t.RegistrationEnd,
		t.StartTime, t.EndTime, t.HostPlatform, t.Rules, t.CheckInRequired,
		scoringJSON, tiebreakersJSON, t.LogoKey,
	).Scan(&t.ID, &t.CurrentParticipants, &t.Version, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := scanTournament(executor.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argID)
		args = append(args, *filter.Type)
		argID++
	}

	query += " ORDER BY start_time DESC NULLS LAST, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			name = $1, description = $2, status = $3, type = $4, format = $5,
			max_participants = $6, prize_pool = $7,
			registration_start = $8, registration_end = $9,
			start_time = $10, end_time = $11,
			host_platform = $12, rules = $13, check_in_required = $14,
			version = version + 1
		WHERE id = $15 AND version = $16`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.Description, t.Status, t.Type, t.Format,
		t.MaxParticipants, t.PrizePool,
		t.RegistrationStart, t.RegistrationEnd,
		t.StartTime, t.EndTime,
		t.HostPlatform, t.Rules, t.CheckInRequired,
		t.ID, t.Version,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	if err := checkAffectedRows(result, ErrVersionConflict); err != nil {
		// Distinguish a vanished row from a stale version.
		if _, getErr := r.GetByID(ctx, exec, t.ID); errors.Is(getErr, ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	t.Version++
	return nil
}

func (r *postgresTournamentRepository) BumpVersion(ctx context.Context, exec SQLExecutor, id, version int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET version = version + 1 WHERE id = $1 AND version = $2`
	result, err := executor.ExecContext(ctx, query, id, version)
	if err != nil {
		return r.handleTournamentError(err)
	}
	if err := checkAffectedRows(result, ErrVersionConflict); err != nil {
		if _, getErr := r.GetByID(ctx, exec, id); errors.Is(getErr, ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, version = version + 1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateScoring(ctx context.Context, exec SQLExecutor, id int, scoringJSON, tiebreakersJSON *string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET scoring_json = $1, tiebreakers_json = $2, version = version + 1 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, scoringJSON, tiebreakersJSON, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	executor := r.getExecutor(nil)
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) IncrementParticipants(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	// The capacity check and the increment are a single statement, so two
	// racing registrations cannot both claim the last slot.
	query := `
		UPDATE tournaments
		SET current_participants = current_participants + 1, version = version + 1
		WHERE id = $1 AND current_participants < max_participants`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	if err := checkAffectedRows(result, ErrTournamentFull); err != nil {
		if _, getErr := r.GetByID(ctx, exec, id); errors.Is(getErr, ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) DecrementParticipants(ctx context.Context, exec SQLExecutor, id int, count int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET current_participants = GREATEST(current_participants - $1, 0), version = version + 1
		WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, count, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	executor := r.getExecutor(nil)
	// participants, phases, divisions, bracket matches, and audit entries
	// cascade via foreign keys.
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status != $1
		AND (
			(status = $2 AND registration_start IS NOT NULL AND registration_start <= $5) OR
			(status = $3 AND start_time IS NOT NULL AND start_time <= $5) OR
			(status = $4 AND end_time IS NOT NULL AND end_time <= $5)
		)`
	args := []interface{}{
		models.StatusCompleted,
		models.StatusUpcoming,
		models.StatusRegistration,
		models.StatusLive,
		currentTime,
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament for auto status update: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrTournamentNameConflict
		case "23503":
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
		}
	}
	return err
}
