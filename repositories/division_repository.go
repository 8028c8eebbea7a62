package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/gauntlet-system/models"
)

var ErrDivisionNotFound = errors.New("division not found")

type DivisionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, division *models.Division) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Division, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Division, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresDivisionRepository struct {
	db *sql.DB
}

func NewPostgresDivisionRepository(db *sql.DB) DivisionRepository {
	return &postgresDivisionRepository{db: db}
}

func (r *postgresDivisionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const divisionColumns = `
	id, tournament_id, name, elo_min, elo_max, expected_population, prize_pool, rewards_json`

func scanDivision(row interface{ Scan(...interface{}) error }, d *models.Division) error {
	if err := row.Scan(
		&d.ID, &d.TournamentID, &d.Name, &d.EloMin, &d.EloMax,
		&d.ExpectedPopulation, &d.PrizePool, &d.RewardsJSON,
	); err != nil {
		return err
	}
	if err := d.DecodeRewards(); err != nil {
		return fmt.Errorf("decoding rewards_json for division %d: %w", d.ID, err)
	}
	return nil
}

func (r *postgresDivisionRepository) Create(ctx context.Context, exec SQLExecutor, d *models.Division) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO divisions (
			tournament_id, name, elo_min, elo_max, expected_population, prize_pool, rewards_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		d.TournamentID, d.Name, d.EloMin, d.EloMax, d.ExpectedPopulation, d.PrizePool, d.RewardsJSON,
	).Scan(&d.ID)
}

func (r *postgresDivisionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Division, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + divisionColumns + ` FROM divisions WHERE id = $1`

	d := &models.Division{}
	if err := scanDivision(executor.QueryRowContext(ctx, query, id), d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDivisionNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *postgresDivisionRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Division, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + divisionColumns + ` FROM divisions WHERE tournament_id = $1 ORDER BY elo_min ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	divisions := make([]models.Division, 0)
	for rows.Next() {
		var d models.Division
		if scanErr := scanDivision(rows, &d); scanErr != nil {
			return nil, scanErr
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}

func (r *postgresDivisionRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM divisions WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDivisionNotFound)
}
