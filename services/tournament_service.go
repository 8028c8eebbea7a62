package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Dosada05/gauntlet-system/brackets"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/Dosada05/gauntlet-system/repositories"
	"github.com/Dosada05/gauntlet-system/standings"
	"github.com/Dosada05/gauntlet-system/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type DivisionInput struct {
	Name               string                    `json:"name"`
	EloMin             int                       `json:"elo_min"`
	EloMax             int                       `json:"elo_max"`
	ExpectedPopulation models.ExpectedPopulation `json:"expected_population"`
	PrizePool          float64                   `json:"prize_pool"`
	Rewards            []models.DivisionReward   `json:"rewards"`
}

type PhaseInput struct {
	Name             string             `json:"name"`
	Type             models.PhaseType   `json:"type"`
	Format           models.PhaseFormat `json:"format"`
	StartTime        *time.Time         `json:"start_time"`
	EndTime          *time.Time         `json:"end_time"`
	AdvancingPlayers *int               `json:"advancing_players"`
}

type CreateTournamentInput struct {
	Name              string                  `json:"name"`
	Description       *string                 `json:"description"`
	Type              models.TournamentType   `json:"type"`
	Format            models.TournamentFormat `json:"format"`
	MaxParticipants   int                     `json:"max_participants"`
	PrizePool         *string                 `json:"prize_pool"`
	RegistrationStart *time.Time              `json:"registration_start"`
	RegistrationEnd   *time.Time              `json:"registration_end"`
	StartTime         *time.Time              `json:"start_time"`
	EndTime           *time.Time              `json:"end_time"`
	HostPlatform      *string                 `json:"host_platform"`
	Rules             *string                 `json:"rules"`
	CheckInRequired   bool                    `json:"check_in_required"`
	Divisions         []DivisionInput         `json:"divisions"`
	Phases            []PhaseInput            `json:"phases"`
	ScoringSystem     *models.ScoringSystem   `json:"scoring_system"`
	Tiebreakers       []models.TiebreakerRule `json:"tiebreakers"`
}

type UpdateTournamentDetailsInput struct {
	Name              *string                  `json:"name"`
	Description       *string                  `json:"description"`
	Type              *models.TournamentType   `json:"type"`
	Format            *models.TournamentFormat `json:"format"`
	MaxParticipants   *int                     `json:"max_participants"`
	PrizePool         *string                  `json:"prize_pool"`
	RegistrationStart *time.Time               `json:"registration_start"`
	RegistrationEnd   *time.Time               `json:"registration_end"`
	StartTime         *time.Time               `json:"start_time"`
	EndTime           *time.Time               `json:"end_time"`
	HostPlatform      *string                  `json:"host_platform"`
	Rules             *string                  `json:"rules"`
	CheckInRequired   *bool                    `json:"check_in_required"`
	// Version must match the version the client read; a mismatch means
	// another admin got there first.
	Version int `json:"version"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, actor *models.User, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateTournamentDetails(ctx context.Context, id int, actor *models.User, input UpdateTournamentDetailsInput) (*models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, id int, actor *models.User, status models.TournamentStatus) (*models.Tournament, error)
	UpdateScoring(ctx context.Context, id int, actor *models.User, scoring *models.ScoringSystem, tiebreakers []models.TiebreakerRule) error
	DeleteTournament(ctx context.Context, id int, actor *models.User) error
	UploadLogo(ctx context.Context, id int, contentType string, body io.Reader) (*models.Tournament, error)
	GetAuditLog(ctx context.Context, tournamentID int, limit int) ([]models.AuditLogEntry, error)
	AutoUpdateTournamentStatusesByDates(ctx context.Context) error
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	divisionRepo    repositories.DivisionRepository
	phaseRepo       repositories.PhaseRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	auditRepo       repositories.AuditLogRepository
	uploader        storage.FileUploader
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	divisionRepo repositories.DivisionRepository,
	phaseRepo repositories.PhaseRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	auditRepo repositories.AuditLogRepository,
	uploader storage.FileUploader,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		divisionRepo:    divisionRepo,
		phaseRepo:       phaseRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		auditRepo:       auditRepo,
		uploader:        uploader,
		hub:             hub,
		logger:          logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, actor *models.User, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.MaxParticipants <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if err := validateTournamentSchedule(input.RegistrationStart, input.RegistrationEnd, input.StartTime); err != nil {
		return nil, err
	}
	for _, d := range input.Divisions {
		if d.EloMin > d.EloMax {
			return nil, fmt.Errorf("%w: division %q", ErrDivisionInvalidEloRange, d.Name)
		}
	}
	if err := standings.ValidateTiebreakers(input.Tiebreakers); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	tournamentType := input.Type
	if tournamentType == "" {
		tournamentType = models.TypeStandard
	}
	format := input.Format
	if format == "" {
		format = models.FormatSingleElimination
	}

	tournament := &models.Tournament{
		Name:              input.Name,
		Description:       input.Description,
		OrganizerID:       actor.ID,
		Status:            models.StatusUpcoming,
		Type:              tournamentType,
		Format:            format,
		MaxParticipants:   input.MaxParticipants,
		PrizePool:         input.PrizePool,
		RegistrationStart: input.RegistrationStart,
		RegistrationEnd:   input.RegistrationEnd,
		StartTime:         input.StartTime,
		EndTime:           input.EndTime,
		HostPlatform:      input.HostPlatform,
		Rules:             input.Rules,
		CheckInRequired:   input.CheckInRequired,
		ScoringSystem:     input.ScoringSystem,
		Tiebreakers:       input.Tiebreakers,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, mapTournamentRepoError(err)
	}

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, d := range input.Divisions {
			rewardsJSON, encErr := models.EncodeRewards(d.Rewards)
			if encErr != nil {
				return encErr
			}
			division := &models.Division{
				TournamentID:       tournament.ID,
				Name:               d.Name,
				EloMin:             d.EloMin,
				EloMax:             d.EloMax,
				ExpectedPopulation: d.ExpectedPopulation,
				PrizePool:          d.PrizePool,
				RewardsJSON:        rewardsJSON,
			}
			if err := s.divisionRepo.Create(ctx, tx, division); err != nil {
				return err
			}
			division.Rewards = d.Rewards
			tournament.Divisions = append(tournament.Divisions, *division)
		}
		for i, p := range input.Phases {
			phase := &models.Phase{
				TournamentID:     tournament.ID,
				Position:         i + 1,
				Name:             p.Name,
				Type:             p.Type,
				Format:           p.Format,
				StartTime:        p.StartTime,
				EndTime:          p.EndTime,
				Status:           models.PhasePending,
				AdvancingPlayers: p.AdvancingPlayers,
			}
			if err := s.phaseRepo.Create(ctx, tx, phase); err != nil {
				return err
			}
			tournament.Phases = append(tournament.Phases, *phase)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: tournament.ID,
			Action:       fmt.Sprintf("created tournament %q", tournament.Name),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name),
		slog.String("actor", actor.Nickname))
	return tournament, nil
}

// GetTournamentByID loads the full aggregate. Sub-entity loads are
// independent reads, so they run in parallel.
func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	s.populateLogoURL(tournament)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		divisions, err := s.divisionRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("loading divisions: %w", err)
		}
		tournament.Divisions = divisions
		return nil
	})
	g.Go(func() error {
		phases, err := s.phaseRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("loading phases: %w", err)
		}
		tournament.Phases = phases
		return nil
	})
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("loading participants: %w", err)
		}
		tournament.Participants = participants
		return nil
	})
	g.Go(func() error {
		bracket, err := s.bracketRepo.GetByTournament(gCtx, nil, id)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketNotFound) {
				return nil
			}
			return fmt.Errorf("loading bracket: %w", err)
		}
		tournament.Bracket = bracket
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateTournamentDetails(ctx context.Context, id int, actor *models.User, input UpdateTournamentDetailsInput) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if input.Version != tournament.Version {
		return nil, ErrConcurrencyConflict
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.Type != nil {
		tournament.Type = *input.Type
	}
	if input.Format != nil {
		tournament.Format = *input.Format
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants <= 0 {
			return nil, ErrTournamentInvalidCapacity
		}
		if *input.MaxParticipants < tournament.CurrentParticipants {
			return nil, fmt.Errorf("%w: %d participants already registered", ErrTournamentInvalidCapacity, tournament.CurrentParticipants)
		}
		tournament.MaxParticipants = *input.MaxParticipants
	}
	if input.PrizePool != nil {
		tournament.PrizePool = input.PrizePool
	}
	if input.RegistrationStart != nil {
		tournament.RegistrationStart = input.RegistrationStart
	}
	if input.RegistrationEnd != nil {
		tournament.RegistrationEnd = input.RegistrationEnd
	}
	if input.StartTime != nil {
		tournament.StartTime = input.StartTime
	}
	if input.EndTime != nil {
		tournament.EndTime = input.EndTime
	}
	if input.HostPlatform != nil {
		tournament.HostPlatform = input.HostPlatform
	}
	if input.Rules != nil {
		tournament.Rules = input.Rules
	}
	if input.CheckInRequired != nil {
		tournament.CheckInRequired = *input.CheckInRequired
	}
	if err := validateTournamentSchedule(tournament.RegistrationStart, tournament.RegistrationEnd, tournament.StartTime); err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.Update(ctx, tx, tournament); err != nil {
			return mapTournamentRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: tournament.ID,
			Action:       "updated tournament details",
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) UpdateTournamentStatus(ctx context.Context, id int, actor *models.User, status models.TournamentStatus) (*models.Tournament, error) {
	if !isValidTournamentStatus(status) {
		return nil, ErrTournamentInvalidStatus
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if !isValidStatusTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}

	previous := tournament.Status
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, id, status); err != nil {
			return mapTournamentRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: id,
			Action:       fmt.Sprintf("changed status from %s to %s", previous, status),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}
	tournament.Status = status
	tournament.Version++
	return tournament, nil
}

func (s *tournamentService) UpdateScoring(ctx context.Context, id int, actor *models.User, scoring *models.ScoringSystem, tiebreakers []models.TiebreakerRule) error {
	if err := standings.ValidateTiebreakers(tiebreakers); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if scoring != nil && scoring.MinMatchesRequired < 0 {
		return fmt.Errorf("%w: min matches required must not be negative", ErrValidationFailed)
	}

	scoringJSON, err := models.EncodeScoring(scoring)
	if err != nil {
		return fmt.Errorf("encoding scoring system: %w", err)
	}
	tiebreakersJSON, err := models.EncodeTiebreakers(tiebreakers)
	if err != nil {
		return fmt.Errorf("encoding tiebreakers: %w", err)
	}

	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.UpdateScoring(ctx, tx, id, scoringJSON, tiebreakersJSON); err != nil {
			return mapTournamentRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: id,
			Action:       "updated scoring system and tiebreakers",
			Actor:        actor.Nickname,
		})
	})
}

// DeleteTournament hard-deletes the aggregate and everything owned by it.
// Reserved for master admins; the cascade takes participants and the audit
// trail with it.
func (s *tournamentService) DeleteTournament(ctx context.Context, id int, actor *models.User) error {
	if actor.Role != models.RoleMaster {
		return ErrMasterRoleRequired
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return mapTournamentRepoError(err)
	}
	s.logger.Info("tournament deleted",
		slog.Int("tournament_id", id),
		slog.String("actor", actor.Nickname))
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, contentType string, body io.Reader) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}

	ext, err := storage.ExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("tournaments/%d/logo_%s%s", id, uuid.NewString()[:8], ext)

	oldKey := tournament.LogoKey
	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("uploading tournament logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if oldKey != nil && *oldKey != "" {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous logo",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	tournament.LogoKey = &result.Key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) GetAuditLog(ctx context.Context, tournamentID int, limit int) ([]models.AuditLogEntry, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return s.auditRepo.ListByTournament(ctx, nil, tournamentID, limit)
}

// AutoUpdateTournamentStatusesByDates advances statuses whose scheduled
// boundary has passed. Runs from the scheduler goroutine in main.
func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) error {
	now := time.Now().UTC()
	due, err := s.tournamentRepo.GetTournamentsForAutoStatusUpdate(ctx, nil, now)
	if err != nil {
		return err
	}

	for _, t := range due {
		var next models.TournamentStatus
		switch t.Status {
		case models.StatusUpcoming:
			next = models.StatusRegistration
		case models.StatusRegistration:
			next = models.StatusLive
		case models.StatusLive:
			next = models.StatusCompleted
		default:
			continue
		}

		err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
			if err := s.tournamentRepo.UpdateStatus(ctx, tx, t.ID, next); err != nil {
				return err
			}
			return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
				TournamentID: t.ID,
				Action:       fmt.Sprintf("auto-advanced status from %s to %s", t.Status, next),
				Actor:        "scheduler",
			})
		})
		if err != nil {
			s.logger.Error("scheduler failed to advance tournament status",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		s.logger.Info("scheduler advanced tournament status",
			slog.Int("tournament_id", t.ID),
			slog.String("from", string(t.Status)),
			slog.String("to", string(next)))
	}
	return nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if t != nil && t.LogoKey != nil && *t.LogoKey != "" && s.uploader != nil {
		if url := s.uploader.GetPublicURL(*t.LogoKey); url != "" {
			t.LogoURL = &url
		}
	}
}

func mapTournamentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	case errors.Is(err, repositories.ErrVersionConflict):
		return ErrConcurrencyConflict
	case errors.Is(err, repositories.ErrTournamentFull):
		return ErrTournamentFull
	default:
		return err
	}
}
