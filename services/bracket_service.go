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
	"github.com/google/uuid"
)

type BracketService interface {
	// GenerateBracket seeds a fresh single-elimination tree from the
	// tournament's eligible participants, replacing any previous bracket.
	GenerateBracket(ctx context.Context, tournamentID int, actor *models.User) (*models.TournamentBracket, error)
	GetBracket(ctx context.Context, tournamentID int) (*models.TournamentBracket, error)
	// ReportWinner resolves a match and advances the winner one round.
	ReportWinner(ctx context.Context, tournamentID int, matchUID string, winnerID int, actor *models.User) (*models.TournamentBracket, error)
}

type bracketService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	auditRepo       repositories.AuditLogRepository
	generator       brackets.Generator
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	auditRepo repositories.AuditLogRepository,
	generator brackets.Generator,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		auditRepo:       auditRepo,
		generator:       generator,
		hub:             hub,
		logger:          logger,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int, actor *models.User) (*models.TournamentBracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	// Seed order is the participant list order: points descending, earliest
	// registration first among equals. Terminal and still-pending entrants
	// are not seeded; check-in filters further when the tournament uses it.
	seeds := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Status.IsTerminal() || p.Status == models.ParticipantPending {
			continue
		}
		if tournament.CheckInRequired && p.Status == models.ParticipantRegistered {
			continue
		}
		seeds = append(seeds, p)
	}
	if len(seeds) == 0 {
		return nil, ErrNoEligibleSeeds
	}

	bracket, err := s.generator.Generate(ctx, brackets.GenerateParams{
		TournamentID: tournamentID,
		Seeds:        seeds,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrNoParticipants) {
			return nil, ErrNoEligibleSeeds
		}
		return nil, err
	}

	// Short shareable codes for lobby coordination.
	for ri := range bracket.Rounds {
		for mi := range bracket.Rounds[ri].Matches {
			code := uuid.NewString()[:8]
			bracket.Rounds[ri].Matches[mi].MatchCode = &code
		}
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.BumpVersion(ctx, tx, tournamentID, tournament.Version); err != nil {
			return mapTournamentRepoError(err)
		}
		if err := s.bracketRepo.Replace(ctx, tx, bracket); err != nil {
			return err
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: tournamentID,
			Action:       fmt.Sprintf("generated %s bracket with %d seeds", s.generator.Name(), len(seeds)),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("seeds", len(seeds)),
		slog.Int("rounds", len(bracket.Rounds)))
	s.broadcastBracket(tournamentID, bracket)
	return bracket, nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*models.TournamentBracket, error) {
	bracket, err := s.bracketRepo.GetByTournament(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotGenerated
		}
		return nil, err
	}
	return bracket, nil
}

func (s *bracketService) ReportWinner(ctx context.Context, tournamentID int, matchUID string, winnerID int, actor *models.User) (*models.TournamentBracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	bracket, err := s.GetBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	if err := brackets.SetWinner(bracket, matchUID, winnerID); err != nil {
		switch {
		case errors.Is(err, brackets.ErrMatchNotFound):
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchUID)
		case errors.Is(err, brackets.ErrWinnerNotInMatch):
			return nil, ErrWinnerNotInMatch
		case errors.Is(err, brackets.ErrMatchAlreadyResolved):
			return nil, fmt.Errorf("%w: %s already resolved", ErrConcurrencyConflict, matchUID)
		default:
			return nil, err
		}
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		// Replace rewrites the whole tree, so the version guard keeps a
		// stale read from erasing a winner committed in between.
		if err := s.tournamentRepo.BumpVersion(ctx, tx, tournamentID, tournament.Version); err != nil {
			return mapTournamentRepoError(err)
		}
		if err := s.bracketRepo.Replace(ctx, tx, bracket); err != nil {
			return err
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: tournamentID,
			Action:       fmt.Sprintf("recorded winner %d for match %s", winnerID, matchUID),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcastBracket(tournamentID, bracket)
	return bracket, nil
}

func (s *bracketService) broadcastBracket(tournamentID int, bracket *models.TournamentBracket) {
	s.hub.BroadcastToRoom(roomForTournament(tournamentID), brackets.Message{
		Type: brackets.EventBracketUpdated,
		Payload: map[string]interface{}{
			"tournament_id": tournamentID,
			"bracket":       bracket,
		},
	})
}
