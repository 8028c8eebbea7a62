package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/gauntlet-system/models"
)

var ErrBracketNotFound = errors.New("tournament has no generated bracket")

type BracketRepository interface {
	// Replace atomically swaps the stored bracket for a tournament. The
	// caller supplies the transaction; generation and winner updates both
	// rewrite the whole tree so readers never see a half-written bracket.
	Replace(ctx context.Context, exec SQLExecutor, bracket *models.TournamentBracket) error
	GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentBracket, error)
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketRepository) Replace(ctx context.Context, exec SQLExecutor, bracket *models.TournamentBracket) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx,
		`DELETE FROM bracket_matches WHERE tournament_id = $1`, bracket.TournamentID); err != nil {
		return err
	}

	query := `
		INSERT INTO bracket_matches (
			tournament_id, uid, round, order_in_round,
			p1_participant_id, p2_participant_id, winner_participant_id,
			status, is_bye, start_time, match_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, round := range bracket.Rounds {
		for _, m := range round.Matches {
			if _, err := executor.ExecContext(ctx, query,
				bracket.TournamentID, m.UID, m.Round, m.OrderInRound,
				m.Player1ID, m.Player2ID, m.WinnerID,
				m.Status, m.IsBye, m.StartTime, m.MatchCode,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *postgresBracketRepository) GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentBracket, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT uid, round, order_in_round,
			p1_participant_id, p2_participant_id, winner_participant_id,
			status, is_bye, start_time, match_code
		FROM bracket_matches
		WHERE tournament_id = $1
		ORDER BY round ASC, order_in_round ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bracket := &models.TournamentBracket{TournamentID: tournamentID}
	for rows.Next() {
		var m models.BracketMatch
		if scanErr := rows.Scan(
			&m.UID, &m.Round, &m.OrderInRound,
			&m.Player1ID, &m.Player2ID, &m.WinnerID,
			&m.Status, &m.IsBye, &m.StartTime, &m.MatchCode,
		); scanErr != nil {
			return nil, scanErr
		}
		for len(bracket.Rounds) < m.Round {
			bracket.Rounds = append(bracket.Rounds, models.BracketRound{RoundNumber: len(bracket.Rounds) + 1})
		}
		bracket.Rounds[m.Round-1].Matches = append(bracket.Rounds[m.Round-1].Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bracket.Rounds) == 0 {
		return nil, ErrBracketNotFound
	}
	return bracket, nil
}
