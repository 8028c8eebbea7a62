package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (TournamentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresTournamentRepository(db), mock
}

func tournamentRow(id, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "organizer_id", "status", "type", "format",
		"max_participants", "current_participants", "prize_pool",
		"registration_start", "registration_end", "start_time", "end_time",
		"host_platform", "rules", "check_in_required", "scoring_json", "tiebreakers_json",
		"logo_key", "version", "created_at",
	}).AddRow(
		id, "Weekly Gauntlet", nil, 1, "registration", "standard", "single_elimination",
		8, 8, nil,
		nil, nil, nil, nil,
		nil, nil, false, nil, nil,
		nil, version, time.Now(),
	)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM tournaments WHERE id").
		WithArgs(42).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), nil, 42)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestUpdateStaleVersion(t *testing.T) {
	repo, mock := newMockRepo(t)
	// The guarded update misses because the stored version moved on, then the
	// existence probe finds the row, so the failure is a version conflict.
	mock.ExpectExec("UPDATE tournaments SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM tournaments WHERE id").
		WithArgs(1).
		WillReturnRows(tournamentRow(1, 3))

	err := repo.Update(context.Background(), nil, &models.Tournament{ID: 1, Name: "Weekly Gauntlet", Version: 2})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateVanishedRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE tournaments SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM tournaments WHERE id").
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), nil, &models.Tournament{ID: 1, Name: "Weekly Gauntlet", Version: 2})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestUpdateBumpsVersionOnSuccess(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE tournaments SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tournament := &models.Tournament{ID: 1, Name: "Weekly Gauntlet", Version: 2}
	require.NoError(t, repo.Update(context.Background(), nil, tournament))
	assert.Equal(t, 3, tournament.Version)
}

func TestBumpVersionGuardsStaleReaders(t *testing.T) {
	repo, mock := newMockRepo(t)
	// Another writer already advanced the version; the guarded bump misses
	// and the existence probe finds the row.
	mock.ExpectExec("UPDATE tournaments SET version").
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM tournaments WHERE id").
		WithArgs(1).
		WillReturnRows(tournamentRow(1, 3))

	err := repo.BumpVersion(context.Background(), nil, 1, 2)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBumpVersionAdvancesCurrentHolder(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE tournaments SET version").
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.BumpVersion(context.Background(), nil, 1, 2))
}

func TestIncrementParticipantsAtCapacity(t *testing.T) {
	repo, mock := newMockRepo(t)
	// No row matches current_participants < max_participants, but the
	// tournament exists: the tournament is full.
	mock.ExpectExec("UPDATE tournaments").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM tournaments WHERE id").
		WithArgs(1).
		WillReturnRows(tournamentRow(1, 5))

	err := repo.IncrementParticipants(context.Background(), nil, 1)
	assert.ErrorIs(t, err, ErrTournamentFull)
}

func TestIncrementParticipantsUnknownTournament(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE tournaments").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM tournaments WHERE id").
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	err := repo.IncrementParticipants(context.Background(), nil, 99)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestIncrementParticipantsClaimsSlot(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE tournaments").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.IncrementParticipants(context.Background(), nil, 1))
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO tournaments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Tournament{Name: "Weekly Gauntlet", OrganizerID: 1, MaxParticipants: 8})
	assert.ErrorIs(t, err, ErrTournamentNameConflict)
}

func TestCreateMapsOrganizerFK(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO tournaments").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "tournaments_organizer_id_fkey"})

	err := repo.Create(context.Background(), &models.Tournament{Name: "Weekly Gauntlet", OrganizerID: 404, MaxParticipants: 8})
	assert.ErrorIs(t, err, ErrTournamentInvalidOrg)
}
