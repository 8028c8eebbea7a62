package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/gauntlet-system/models"
)

// AuditLogRepository is append-only: entries are never mutated or removed
// through normal operation.
type AuditLogRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.AuditLogEntry) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, limit int) ([]models.AuditLogEntry, error)
}

type postgresAuditLogRepository struct {
	db *sql.DB
}

func NewPostgresAuditLogRepository(db *sql.DB) AuditLogRepository {
	return &postgresAuditLogRepository{db: db}
}

func (r *postgresAuditLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAuditLogRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.AuditLogEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO audit_log (tournament_id, action, actor)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return executor.QueryRowContext(ctx, query,
		entry.TournamentID, entry.Action, entry.Actor,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresAuditLogRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, limit int) ([]models.AuditLogEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, action, actor, created_at
		FROM audit_log
		WHERE tournament_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{tournamentID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.AuditLogEntry, 0)
	for rows.Next() {
		var e models.AuditLogEntry
		if scanErr := rows.Scan(&e.ID, &e.TournamentID, &e.Action, &e.Actor, &e.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
