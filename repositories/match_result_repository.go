package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/gauntlet-system/models"
)

type MatchResultRepository interface {
	Create(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.MatchResult, error)
	ListByParticipant(ctx context.Context, exec SQLExecutor, participantID int) ([]models.MatchResult, error)
}

type postgresMatchResultRepository struct {
	db *sql.DB
}

func NewPostgresMatchResultRepository(db *sql.DB) MatchResultRepository {
	return &postgresMatchResultRepository{db: db}
}

func (r *postgresMatchResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchResultColumns = `
	id, tournament_id, participant_id, phase_id, placement, points,
	round_score, hp_lost, opponent_rating, played_at`

func (r *postgresMatchResultRepository) Create(ctx context.Context, exec SQLExecutor, m *models.MatchResult) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_results (
			tournament_id, participant_id, phase_id, placement, points,
			round_score, hp_lost, opponent_rating, played_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	return executor.QueryRowContext(ctx, query,
		m.TournamentID, m.ParticipantID, m.PhaseID, m.Placement, m.Points,
		m.RoundScore, m.HPLost, m.OpponentRating, m.PlayedAt,
	).Scan(&m.ID)
}

func (r *postgresMatchResultRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.MatchResult, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchResultColumns + ` FROM match_results WHERE tournament_id = $1 ORDER BY played_at ASC`
	return r.list(ctx, executor, query, tournamentID)
}

func (r *postgresMatchResultRepository) ListByParticipant(ctx context.Context, exec SQLExecutor, participantID int) ([]models.MatchResult, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchResultColumns + ` FROM match_results WHERE participant_id = $1 ORDER BY played_at ASC`
	return r.list(ctx, executor, query, participantID)
}

func (r *postgresMatchResultRepository) list(ctx context.Context, executor SQLExecutor, query string, arg interface{}) ([]models.MatchResult, error) {
	rows, err := executor.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.MatchResult, 0)
	for rows.Next() {
		var m models.MatchResult
		if scanErr := rows.Scan(
			&m.ID, &m.TournamentID, &m.ParticipantID, &m.PhaseID, &m.Placement, &m.Points,
			&m.RoundScore, &m.HPLost, &m.OpponentRating, &m.PlayedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
