package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/gauntlet-system/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrDuplicateParticipant = errors.New("player is already registered for this tournament")
	ErrParticipantInvalidFK = errors.New("invalid tournament or division reference")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	FindByPlayerID(ctx context.Context, exec SQLExecutor, tournamentID int, playerID string) (*models.Participant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Participant, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	// AddResult folds a recorded match into the participant's rollups.
	AddResult(ctx context.Context, exec SQLExecutor, id int, points float64) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `
	id, tournament_id, ranger_name, player_id, registration_time,
	status, division_id, points, matches_played`

func scanParticipant(row interface{ Scan(...interface{}) error }, p *models.Participant) error {
	return row.Scan(
		&p.ID, &p.TournamentID, &p.RangerName, &p.PlayerID, &p.RegistrationTime,
		&p.Status, &p.DivisionID, &p.Points, &p.MatchesPlayed,
	)
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO participants (
			tournament_id, ranger_name, player_id, status, division_id, points, matches_played
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, registration_time`

	err := executor.QueryRowContext(ctx, query,
		p.TournamentID, p.RangerName, p.PlayerID, p.Status, p.DivisionID, p.Points, p.MatchesPlayed,
	).Scan(&p.ID, &p.RegistrationTime)

	return handleParticipantError(err)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`

	p := &models.Participant{}
	if err := scanParticipant(executor.QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindByPlayerID(ctx context.Context, exec SQLExecutor, tournamentID int, playerID string) (*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1 AND player_id = $2`

	p := &models.Participant{}
	if err := scanParticipant(executor.QueryRowContext(ctx, query, tournamentID, playerID), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1 ORDER BY points DESC, registration_time ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := scanParticipant(rows, &p); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) AddResult(ctx context.Context, exec SQLExecutor, id int, points float64) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET points = points + $1, matches_played = matches_played + 1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, points, id)
	if err != nil {
		return handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM participants WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrDuplicateParticipant
		case "23503":
			return ErrParticipantInvalidFK
		}
	}
	return err
}
