package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/gauntlet-system/models"
)

var ErrPhaseNotFound = errors.New("phase not found")

type PhaseRepository interface {
	Create(ctx context.Context, exec SQLExecutor, phase *models.Phase) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Phase, error)
	// ListByTournament returns phases in their total order (by position).
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Phase, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.PhaseStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresPhaseRepository struct {
	db *sql.DB
}

func NewPostgresPhaseRepository(db *sql.DB) PhaseRepository {
	return &postgresPhaseRepository{db: db}
}

func (r *postgresPhaseRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const phaseColumns = `
	id, tournament_id, position, name, type, format,
	start_time, end_time, status, advancing_players`

func scanPhase(row interface{ Scan(...interface{}) error }, p *models.Phase) error {
	return row.Scan(
		&p.ID, &p.TournamentID, &p.Position, &p.Name, &p.Type, &p.Format,
		&p.StartTime, &p.EndTime, &p.Status, &p.AdvancingPlayers,
	)
}

func (r *postgresPhaseRepository) Create(ctx context.Context, exec SQLExecutor, phase *models.Phase) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO phases (
			tournament_id, position, name, type, format, start_time, end_time, status, advancing_players
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		phase.TournamentID, phase.Position, phase.Name, phase.Type, phase.Format,
		phase.StartTime, phase.EndTime, phase.Status, phase.AdvancingPlayers,
	).Scan(&phase.ID)
}

func (r *postgresPhaseRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Phase, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE id = $1`

	p := &models.Phase{}
	if err := scanPhase(executor.QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPhaseNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPhaseRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Phase, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE tournament_id = $1 ORDER BY position ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phases := make([]models.Phase, 0)
	for rows.Next() {
		var p models.Phase
		if scanErr := scanPhase(rows, &p); scanErr != nil {
			return nil, scanErr
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

func (r *postgresPhaseRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.PhaseStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE phases SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPhaseNotFound)
}

func (r *postgresPhaseRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM phases WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPhaseNotFound)
}
