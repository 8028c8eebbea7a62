package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/gauntlet-system/brackets"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/Dosada05/gauntlet-system/repositories"
)

type PhaseService interface {
	GetByID(ctx context.Context, id int) (*models.Phase, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Phase, error)
	StartPhase(ctx context.Context, phaseID int, actor *models.User) (*models.Phase, error)
	// AdvancePhase completes the given phase and moves the next one in
	// positional order to live, atomically.
	AdvancePhase(ctx context.Context, phaseID int, actor *models.User) (*models.Phase, error)
}

type phaseService struct {
	db        *sql.DB
	phaseRepo repositories.PhaseRepository
	auditRepo repositories.AuditLogRepository
	hub       *brackets.Hub
	logger    *slog.Logger
}

func NewPhaseService(
	db *sql.DB,
	phaseRepo repositories.PhaseRepository,
	auditRepo repositories.AuditLogRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) PhaseService {
	return &phaseService{
		db:        db,
		phaseRepo: phaseRepo,
		auditRepo: auditRepo,
		hub:       hub,
		logger:    logger,
	}
}

func (s *phaseService) GetByID(ctx context.Context, id int) (*models.Phase, error) {
	phase, err := s.phaseRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapPhaseRepoError(err)
	}
	return phase, nil
}

func (s *phaseService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Phase, error) {
	return s.phaseRepo.ListByTournament(ctx, nil, tournamentID)
}

// StartPhase moves a pending phase to live. At most one phase of a
// tournament may be live, so a currently live sibling blocks the start.
func (s *phaseService) StartPhase(ctx context.Context, phaseID int, actor *models.User) (*models.Phase, error) {
	phase, err := s.phaseRepo.GetByID(ctx, nil, phaseID)
	if err != nil {
		return nil, mapPhaseRepoError(err)
	}
	if phase.Status != models.PhasePending {
		return nil, fmt.Errorf("%w: phase %q is %s", ErrPhaseNotAdvanceable, phase.Name, phase.Status)
	}

	siblings, err := s.phaseRepo.ListByTournament(ctx, nil, phase.TournamentID)
	if err != nil {
		return nil, err
	}
	for _, sibling := range siblings {
		if sibling.Status == models.PhaseLive {
			return nil, fmt.Errorf("%w: phase %q is still live", ErrPhaseNotAdvanceable, sibling.Name)
		}
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.phaseRepo.UpdateStatus(ctx, tx, phaseID, models.PhaseLive); err != nil {
			return mapPhaseRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: phase.TournamentID,
			Action:       fmt.Sprintf("started phase %q", phase.Name),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	phase.Status = models.PhaseLive
	s.broadcastPhaseAdvanced(phase.TournamentID, phase, nil)
	return phase, nil
}

func (s *phaseService) AdvancePhase(ctx context.Context, phaseID int, actor *models.User) (*models.Phase, error) {
	phase, err := s.phaseRepo.GetByID(ctx, nil, phaseID)
	if err != nil {
		return nil, mapPhaseRepoError(err)
	}
	if phase.Status == models.PhaseCompleted {
		return nil, fmt.Errorf("%w: phase %q", ErrPhaseNotAdvanceable, phase.Name)
	}

	siblings, err := s.phaseRepo.ListByTournament(ctx, nil, phase.TournamentID)
	if err != nil {
		return nil, err
	}

	// siblings come back ordered by position, so the successor is the first
	// phase after this one.
	var next *models.Phase
	for i := range siblings {
		if siblings[i].Position > phase.Position {
			next = &siblings[i]
			break
		}
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.phaseRepo.UpdateStatus(ctx, tx, phase.ID, models.PhaseCompleted); err != nil {
			return mapPhaseRepoError(err)
		}
		action := fmt.Sprintf("completed phase %q", phase.Name)
		if next != nil {
			if err := s.phaseRepo.UpdateStatus(ctx, tx, next.ID, models.PhaseLive); err != nil {
				return mapPhaseRepoError(err)
			}
			action = fmt.Sprintf("advanced phase %q to %q", phase.Name, next.Name)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: phase.TournamentID,
			Action:       action,
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	phase.Status = models.PhaseCompleted
	if next != nil {
		next.Status = models.PhaseLive
		s.broadcastPhaseAdvanced(phase.TournamentID, next, phase)
		return next, nil
	}

	s.logger.Info("final phase completed",
		slog.Int("tournament_id", phase.TournamentID),
		slog.String("phase", phase.Name))
	s.broadcastPhaseAdvanced(phase.TournamentID, nil, phase)
	return phase, nil
}

func (s *phaseService) broadcastPhaseAdvanced(tournamentID int, live, completed *models.Phase) {
	payload := map[string]interface{}{"tournament_id": tournamentID}
	if live != nil {
		payload["live_phase"] = live
	}
	if completed != nil {
		payload["completed_phase"] = completed
	}
	s.hub.BroadcastToRoom(roomForTournament(tournamentID), brackets.Message{
		Type:    brackets.EventPhaseAdvanced,
		Payload: payload,
	})
}

func mapPhaseRepoError(err error) error {
	if errors.Is(err, repositories.ErrPhaseNotFound) {
		return ErrPhaseNotFound
	}
	return err
}
