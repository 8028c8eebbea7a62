package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Dosada05/gauntlet-system/brackets"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testActor() *models.User {
	return &models.User{ID: 1, Nickname: "ops", Role: models.RoleAdmin}
}

func newPhaseFixture(t *testing.T) (PhaseService, *fakePhaseRepo, *fakeAuditRepo) {
	t.Helper()
	phaseRepo := newFakePhaseRepo()
	auditRepo := &fakeAuditRepo{}
	svc := NewPhaseService(newTxDB(t), phaseRepo, auditRepo, brackets.NewHub(), testLogger())
	return svc, phaseRepo, auditRepo
}

func TestStartPhase(t *testing.T) {
	svc, phaseRepo, auditRepo := newPhaseFixture(t)
	p1 := phaseRepo.add(models.Phase{TournamentID: 1, Position: 1, Name: "Qualifiers", Status: models.PhasePending})

	started, err := svc.StartPhase(context.Background(), p1.ID, testActor())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseLive, started.Status)

	stored, _ := phaseRepo.GetByID(context.Background(), nil, p1.ID)
	assert.Equal(t, models.PhaseLive, stored.Status)
	require.Len(t, auditRepo.entries, 1)
	assert.Contains(t, auditRepo.entries[0].Action, "Qualifiers")
}

func TestStartPhaseBlockedByLiveSibling(t *testing.T) {
	svc, phaseRepo, _ := newPhaseFixture(t)
	phaseRepo.add(models.Phase{TournamentID: 1, Position: 1, Name: "Qualifiers", Status: models.PhaseLive})
	p2 := phaseRepo.add(models.Phase{TournamentID: 1, Position: 2, Name: "Finals", Status: models.PhasePending})

	_, err := svc.StartPhase(context.Background(), p2.ID, testActor())
	assert.ErrorIs(t, err, ErrPhaseNotAdvanceable)
}

func TestStartPhaseRequiresPending(t *testing.T) {
	svc, phaseRepo, _ := newPhaseFixture(t)
	done := phaseRepo.add(models.Phase{TournamentID: 1, Position: 1, Name: "Qualifiers", Status: models.PhaseCompleted})

	_, err := svc.StartPhase(context.Background(), done.ID, testActor())
	assert.ErrorIs(t, err, ErrPhaseNotAdvanceable)
}

func TestAdvancePhaseMovesToNextByPosition(t *testing.T) {
	svc, phaseRepo, auditRepo := newPhaseFixture(t)
	p1 := phaseRepo.add(models.Phase{TournamentID: 1, Position: 1, Name: "Qualifiers", Status: models.PhaseLive})
	p2 := phaseRepo.add(models.Phase{TournamentID: 1, Position: 2, Name: "Sit-n-Go", Status: models.PhasePending})
	p3 := phaseRepo.add(models.Phase{TournamentID: 1, Position: 3, Name: "Finals", Status: models.PhasePending})

	next, err := svc.AdvancePhase(context.Background(), p1.ID, testActor())
	require.NoError(t, err)
	assert.Equal(t, p2.ID, next.ID)
	assert.Equal(t, models.PhaseLive, next.Status)

	completed, _ := phaseRepo.GetByID(context.Background(), nil, p1.ID)
	assert.Equal(t, models.PhaseCompleted, completed.Status)
	untouched, _ := phaseRepo.GetByID(context.Background(), nil, p3.ID)
	assert.Equal(t, models.PhasePending, untouched.Status)

	require.Len(t, auditRepo.entries, 1)
	assert.Contains(t, auditRepo.entries[0].Action, "Qualifiers")
	assert.Contains(t, auditRepo.entries[0].Action, "Sit-n-Go")
}

func TestAdvanceFinalPhaseCompletesTournamentRun(t *testing.T) {
	svc, phaseRepo, _ := newPhaseFixture(t)
	phaseRepo.add(models.Phase{TournamentID: 1, Position: 1, Name: "Qualifiers", Status: models.PhaseCompleted})
	final := phaseRepo.add(models.Phase{TournamentID: 1, Position: 2, Name: "Finals", Status: models.PhaseLive})

	got, err := svc.AdvancePhase(context.Background(), final.ID, testActor())
	require.NoError(t, err)
	assert.Equal(t, final.ID, got.ID)
	assert.Equal(t, models.PhaseCompleted, got.Status)
}

func TestAdvanceCompletedPhaseFails(t *testing.T) {
	svc, phaseRepo, _ := newPhaseFixture(t)
	done := phaseRepo.add(models.Phase{TournamentID: 1, Position: 1, Name: "Qualifiers", Status: models.PhaseCompleted})

	_, err := svc.AdvancePhase(context.Background(), done.ID, testActor())
	assert.ErrorIs(t, err, ErrPhaseNotAdvanceable)
}

func TestAdvancePhaseNotFound(t *testing.T) {
	svc, _, _ := newPhaseFixture(t)
	_, err := svc.AdvancePhase(context.Background(), 404, testActor())
	assert.ErrorIs(t, err, ErrPhaseNotFound)
}
