package services

import (
	"context"
	"testing"

	"github.com/Dosada05/gauntlet-system/brackets"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/Dosada05/gauntlet-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bracketFixture struct {
	svc             BracketService
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	bracketRepo     *fakeBracketRepo
	auditRepo       *fakeAuditRepo
}

func newBracketFixture(t *testing.T) *bracketFixture {
	t.Helper()
	f := &bracketFixture{
		tournamentRepo:  newFakeTournamentRepo(),
		participantRepo: newFakeParticipantRepo(),
		bracketRepo:     newFakeBracketRepo(),
		auditRepo:       &fakeAuditRepo{},
	}
	f.svc = NewBracketService(
		newTxDB(t), f.tournamentRepo, f.participantRepo, f.bracketRepo,
		f.auditRepo, brackets.NewSingleEliminationGenerator(), brackets.NewHub(), testLogger(),
	)
	return f
}

func (f *bracketFixture) seed(tournamentID int, name string, status models.ParticipantStatus) *models.Participant {
	return f.participantRepo.add(models.Participant{
		TournamentID: tournamentID,
		RangerName:   name,
		PlayerID:     "pid-" + name,
		Status:       status,
	})
}

func TestGenerateBracketFiltersSeeds(t *testing.T) {
	f := newBracketFixture(t)
	tour := f.tournamentRepo.add(models.Tournament{
		Name: "Cup", Status: models.StatusLive, MaxParticipants: 8,
	})

	f.seed(tour.ID, "Aria", models.ParticipantRegistered)
	f.seed(tour.ID, "Borus", models.ParticipantCheckedIn)
	f.seed(tour.ID, "Cyra", models.ParticipantPending)
	f.seed(tour.ID, "Dax", models.ParticipantEliminated)

	bracket, err := f.svc.GenerateBracket(context.Background(), tour.ID, testActor())
	require.NoError(t, err)
	require.NotEmpty(t, bracket.Rounds)

	// Two eligible seeds pair up in a single final match.
	require.Len(t, bracket.Rounds, 1)
	require.Len(t, bracket.Rounds[0].Matches, 1)
	match := bracket.Rounds[0].Matches[0]
	require.NotNil(t, match.Player1ID)
	require.NotNil(t, match.Player2ID)
	require.NotNil(t, match.MatchCode)
	assert.Len(t, *match.MatchCode, 8)

	stored, err := f.bracketRepo.GetByTournament(context.Background(), nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, tour.ID, stored.TournamentID)
}

func TestGenerateBracketCheckInGatesRegistered(t *testing.T) {
	f := newBracketFixture(t)
	tour := f.tournamentRepo.add(models.Tournament{
		Name: "Strict", Status: models.StatusLive, MaxParticipants: 8, CheckInRequired: true,
	})

	f.seed(tour.ID, "Aria", models.ParticipantRegistered)

	_, err := f.svc.GenerateBracket(context.Background(), tour.ID, testActor())
	assert.ErrorIs(t, err, ErrNoEligibleSeeds, "registered but not checked in must not seed")

	f.seed(tour.ID, "Borus", models.ParticipantCheckedIn)
	bracket, err := f.svc.GenerateBracket(context.Background(), tour.ID, testActor())
	require.NoError(t, err)
	require.Len(t, bracket.Rounds, 1)
	match := bracket.Rounds[0].Matches[0]
	assert.True(t, match.IsBye)
	assert.Equal(t, models.BracketMatchCompleted, match.Status)
}

func TestGenerateBracketNoSeeds(t *testing.T) {
	f := newBracketFixture(t)
	tour := f.tournamentRepo.add(models.Tournament{
		Name: "Empty", Status: models.StatusLive, MaxParticipants: 8,
	})

	_, err := f.svc.GenerateBracket(context.Background(), tour.ID, testActor())
	assert.ErrorIs(t, err, ErrNoEligibleSeeds)
}

func TestGetBracketNotGenerated(t *testing.T) {
	f := newBracketFixture(t)
	_, err := f.svc.GetBracket(context.Background(), 1)
	assert.ErrorIs(t, err, ErrBracketNotGenerated)
}

func TestReportWinnerAdvancesAndPersists(t *testing.T) {
	f := newBracketFixture(t)
	tour := f.tournamentRepo.add(models.Tournament{
		Name: "Cup", Status: models.StatusLive, MaxParticipants: 8,
	})
	for _, name := range []string{"Aria", "Borus", "Cyra", "Dax"} {
		f.seed(tour.ID, name, models.ParticipantRegistered)
	}

	bracket, err := f.svc.GenerateBracket(context.Background(), tour.ID, testActor())
	require.NoError(t, err)
	require.Len(t, bracket.Rounds, 2)

	first := bracket.Rounds[0].Matches[0]
	winner := *first.Player1ID

	updated, err := f.svc.ReportWinner(context.Background(), tour.ID, first.UID, winner, testActor())
	require.NoError(t, err)

	_, _, resolved := updated.FindMatch(first.UID)
	require.NotNil(t, resolved)
	require.NotNil(t, resolved.WinnerID)
	assert.Equal(t, winner, *resolved.WinnerID)

	final := updated.Rounds[1].Matches[0]
	require.NotNil(t, final.Player1ID)
	assert.Equal(t, winner, *final.Player1ID)

	stored, err := f.bracketRepo.GetByTournament(context.Background(), nil, tour.ID)
	require.NoError(t, err)
	_, _, storedMatch := stored.FindMatch(first.UID)
	require.NotNil(t, storedMatch)
	assert.Equal(t, winner, *storedMatch.WinnerID)
}

func TestReportWinnerErrors(t *testing.T) {
	f := newBracketFixture(t)
	tour := f.tournamentRepo.add(models.Tournament{
		Name: "Cup", Status: models.StatusLive, MaxParticipants: 8,
	})
	for _, name := range []string{"Aria", "Borus"} {
		f.seed(tour.ID, name, models.ParticipantRegistered)
	}

	bracket, err := f.svc.GenerateBracket(context.Background(), tour.ID, testActor())
	require.NoError(t, err)
	match := bracket.Rounds[0].Matches[0]

	_, err = f.svc.ReportWinner(context.Background(), tour.ID, "R9M9", *match.Player1ID, testActor())
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = f.svc.ReportWinner(context.Background(), tour.ID, match.UID, 9999, testActor())
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)

	_, err = f.svc.ReportWinner(context.Background(), tour.ID, match.UID, *match.Player1ID, testActor())
	require.NoError(t, err)

	// A second report of the same match is a concurrency conflict.
	_, err = f.svc.ReportWinner(context.Background(), tour.ID, match.UID, *match.Player2ID, testActor())
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}

// staleReadTournamentRepo hands back reads one version behind the store,
// standing in for an admin whose write lands after someone else's commit.
type staleReadTournamentRepo struct {
	*fakeTournamentRepo
}

func (r *staleReadTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, err := r.fakeTournamentRepo.GetByID(ctx, exec, id)
	if err != nil {
		return nil, err
	}
	t.Version--
	return t, nil
}

func TestReportWinnerStaleReadIsRejected(t *testing.T) {
	f := newBracketFixture(t)
	tour := f.tournamentRepo.add(models.Tournament{
		Name: "Cup", Status: models.StatusLive, MaxParticipants: 8, Version: 1,
	})
	for _, name := range []string{"Aria", "Borus", "Cyra", "Dax"} {
		f.seed(tour.ID, name, models.ParticipantRegistered)
	}

	bracket, err := f.svc.GenerateBracket(context.Background(), tour.ID, testActor())
	require.NoError(t, err)
	first := bracket.Rounds[0].Matches[0]

	stale := NewBracketService(
		newTxDB(t), &staleReadTournamentRepo{f.tournamentRepo}, f.participantRepo,
		f.bracketRepo, f.auditRepo, brackets.NewSingleEliminationGenerator(),
		brackets.NewHub(), testLogger(),
	)

	_, err = stale.ReportWinner(context.Background(), tour.ID, first.UID, *first.Player1ID, testActor())
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	// The store keeps its state; the whole-tree rewrite never ran.
	stored, err := f.bracketRepo.GetByTournament(context.Background(), nil, tour.ID)
	require.NoError(t, err)
	_, _, m := stored.FindMatch(first.UID)
	require.NotNil(t, m)
	assert.Nil(t, m.WinnerID)
}
