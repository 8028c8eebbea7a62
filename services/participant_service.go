package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/gauntlet-system/brackets"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/Dosada05/gauntlet-system/repositories"
	"github.com/Dosada05/gauntlet-system/standings"
)

type RegisterParticipantInput struct {
	RangerName string `json:"ranger_name"`
	PlayerID   string `json:"player_id"`
	DivisionID *int   `json:"division_id"`
}

type RecordMatchResultInput struct {
	PhaseID        *int       `json:"phase_id"`
	Placement      int        `json:"placement"`
	RoundScore     float64    `json:"round_score"`
	HPLost         float64    `json:"hp_lost"`
	OpponentRating float64    `json:"opponent_rating"`
	PlayedAt       *time.Time `json:"played_at"`
}

// BulkImportRowError describes one rejected CSV row; accepted rows are
// unaffected by rejected ones.
type BulkImportRowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type BulkImportResult struct {
	Imported int                  `json:"imported"`
	Errors   []BulkImportRowError `json:"errors,omitempty"`
}

type ParticipantService interface {
	Register(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*models.Participant, error)
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error)
	Approve(ctx context.Context, id int, actor *models.User) (*models.Participant, error)
	Reject(ctx context.Context, id int, actor *models.User) (*models.Participant, error)
	CheckIn(ctx context.Context, id int) (*models.Participant, error)
	Eliminate(ctx context.Context, id int, actor *models.User) (*models.Participant, error)
	Remove(ctx context.Context, id int, actor *models.User) error
	BulkImport(ctx context.Context, tournamentID int, actor *models.User, csvData io.Reader) (*BulkImportResult, error)
	BulkRemove(ctx context.Context, tournamentID int, actor *models.User, participantIDs []int) error
	RecordMatchResult(ctx context.Context, participantID int, actor *models.User, input RecordMatchResultInput) (*models.MatchResult, error)
}

type participantService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchResultRepo repositories.MatchResultRepository
	auditRepo       repositories.AuditLogRepository
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewParticipantService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchResultRepo repositories.MatchResultRepository,
	auditRepo repositories.AuditLogRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchResultRepo: matchResultRepo,
		auditRepo:       auditRepo,
		hub:             hub,
		logger:          logger,
	}
}

// Register claims a slot and creates the participant in one transaction.
// The slot claim is a conditional update, so two racing registrations for
// the last slot cannot both succeed.
func (s *participantService) Register(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*models.Participant, error) {
	input.RangerName = strings.TrimSpace(input.RangerName)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if input.RangerName == "" || input.PlayerID == "" {
		return nil, fmt.Errorf("%w: ranger name and player id are required", ErrValidationFailed)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	// Duplicate check up front. The unique index still backs this inside
	// the transaction; failing here skips the slot claim entirely.
	if _, err := s.participantRepo.FindByPlayerID(ctx, nil, tournamentID, input.PlayerID); err == nil {
		return nil, ErrDuplicateRegistration
	} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
		return nil, err
	}

	participant := &models.Participant{
		TournamentID: tournamentID,
		RangerName:   input.RangerName,
		PlayerID:     input.PlayerID,
		Status:       models.ParticipantPending,
		DivisionID:   input.DivisionID,
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.IncrementParticipants(ctx, tx, tournamentID); err != nil {
			return mapTournamentRepoError(err)
		}
		if err := s.participantRepo.Create(ctx, tx, participant); err != nil {
			return mapParticipantRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: tournamentID,
			Action:       fmt.Sprintf("registered participant %s (%s)", participant.RangerName, participant.PlayerID),
			Actor:        participant.RangerName,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcastParticipantUpdate(tournamentID, participant)
	return participant, nil
}

func (s *participantService) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	p, err := s.participantRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	return p, nil
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return s.participantRepo.ListByTournament(ctx, nil, tournamentID)
}

func (s *participantService) Approve(ctx context.Context, id int, actor *models.User) (*models.Participant, error) {
	return s.transition(ctx, id, actor, models.ParticipantRegistered, "approved participant %s")
}

// Reject releases the slot the pending registration claimed.
func (s *participantService) Reject(ctx context.Context, id int, actor *models.User) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	if !isValidParticipantTransition(participant.Status, models.ParticipantRejected) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrParticipantInvalidTransition, participant.Status, models.ParticipantRejected)
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.participantRepo.UpdateStatus(ctx, tx, id, models.ParticipantRejected); err != nil {
			return mapParticipantRepoError(err)
		}
		if err := s.tournamentRepo.DecrementParticipants(ctx, tx, participant.TournamentID, 1); err != nil {
			return mapTournamentRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: participant.TournamentID,
			Action:       fmt.Sprintf("rejected participant %s", participant.RangerName),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	participant.Status = models.ParticipantRejected
	s.broadcastParticipantUpdate(participant.TournamentID, participant)
	return participant, nil
}

func (s *participantService) CheckIn(ctx context.Context, id int) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, participant.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if !tournament.CheckInRequired {
		return nil, ErrCheckInNotRequired
	}
	if !isValidParticipantTransition(participant.Status, models.ParticipantCheckedIn) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrParticipantInvalidTransition, participant.Status, models.ParticipantCheckedIn)
	}

	if err := s.participantRepo.UpdateStatus(ctx, nil, id, models.ParticipantCheckedIn); err != nil {
		return nil, mapParticipantRepoError(err)
	}
	participant.Status = models.ParticipantCheckedIn
	s.broadcastParticipantUpdate(participant.TournamentID, participant)
	return participant, nil
}

func (s *participantService) Eliminate(ctx context.Context, id int, actor *models.User) (*models.Participant, error) {
	return s.transition(ctx, id, actor, models.ParticipantEliminated, "eliminated participant %s")
}

func (s *participantService) transition(ctx context.Context, id int, actor *models.User, next models.ParticipantStatus, actionFormat string) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	if !isValidParticipantTransition(participant.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrParticipantInvalidTransition, participant.Status, next)
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.participantRepo.UpdateStatus(ctx, tx, id, next); err != nil {
			return mapParticipantRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: participant.TournamentID,
			Action:       fmt.Sprintf(actionFormat, participant.RangerName),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	participant.Status = next
	s.broadcastParticipantUpdate(participant.TournamentID, participant)
	return participant, nil
}

func (s *participantService) Remove(ctx context.Context, id int, actor *models.User) error {
	participant, err := s.participantRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapParticipantRepoError(err)
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.participantRepo.Delete(ctx, tx, id); err != nil {
			return mapParticipantRepoError(err)
		}
		if err := s.tournamentRepo.DecrementParticipants(ctx, tx, participant.TournamentID, 1); err != nil {
			return mapTournamentRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: participant.TournamentID,
			Action:       fmt.Sprintf("removed participant %s", participant.RangerName),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return err
	}

	s.broadcastParticipantUpdate(participant.TournamentID, nil)
	return nil
}

// BulkImport ingests a CSV of ranger_name,player_id[,division_id] rows.
// Each row commits independently: bad rows are reported back with their
// line number and the rest import anyway.
func (s *participantService) BulkImport(ctx context.Context, tournamentID int, actor *models.User, csvData io.Reader) (*BulkImportResult, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	reader := csv.NewReader(csvData)
	reader.FieldsPerRecord = -1
	result := &BulkImportResult{}

	line := 0
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			result.Errors = append(result.Errors, BulkImportRowError{Line: line, Reason: readErr.Error()})
			continue
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "ranger_name") {
			continue
		}
		if len(record) < 2 {
			result.Errors = append(result.Errors, BulkImportRowError{Line: line, Reason: "expected at least ranger_name and player_id"})
			continue
		}

		input := RegisterParticipantInput{
			RangerName: strings.TrimSpace(record[0]),
			PlayerID:   strings.TrimSpace(record[1]),
		}
		if _, regErr := s.Register(ctx, tournamentID, input); regErr != nil {
			result.Errors = append(result.Errors, BulkImportRowError{Line: line, Reason: regErr.Error()})
			continue
		}
		result.Imported++
	}

	if result.Imported > 0 {
		if auditErr := s.auditRepo.Append(ctx, nil, &models.AuditLogEntry{
			TournamentID: tournamentID,
			Action:       fmt.Sprintf("bulk imported %d participants (%d rows rejected)", result.Imported, len(result.Errors)),
			Actor:        actor.Nickname,
		}); auditErr != nil {
			s.logger.Warn("failed to record bulk import audit entry", slog.Any("error", auditErr))
		}
	}
	return result, nil
}

func (s *participantService) BulkRemove(ctx context.Context, tournamentID int, actor *models.User, participantIDs []int) error {
	if len(participantIDs) == 0 {
		return nil
	}
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return mapTournamentRepoError(err)
	}

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		removed := 0
		for _, id := range participantIDs {
			p, getErr := s.participantRepo.GetByID(ctx, tx, id)
			if getErr != nil {
				if errors.Is(getErr, repositories.ErrParticipantNotFound) {
					continue
				}
				return getErr
			}
			if p.TournamentID != tournamentID {
				continue
			}
			if delErr := s.participantRepo.Delete(ctx, tx, id); delErr != nil {
				return mapParticipantRepoError(delErr)
			}
			removed++
		}
		if removed == 0 {
			return nil
		}
		if err := s.tournamentRepo.DecrementParticipants(ctx, tx, tournamentID, removed); err != nil {
			return mapTournamentRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: tournamentID,
			Action:       fmt.Sprintf("bulk removed %d participants", removed),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return err
	}

	s.broadcastParticipantUpdate(tournamentID, nil)
	return nil
}

// RecordMatchResult stores the per-match detail row and folds the awarded
// points into the participant's rollups in one transaction. The detail rows
// feed the tiebreaker chain later.
func (s *participantService) RecordMatchResult(ctx context.Context, participantID int, actor *models.User, input RecordMatchResultInput) (*models.MatchResult, error) {
	if input.Placement <= 0 {
		return nil, fmt.Errorf("%w: placement must be positive", ErrValidationFailed)
	}

	participant, err := s.participantRepo.GetByID(ctx, nil, participantID)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	if participant.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: participant is %s", ErrParticipantInvalidTransition, participant.Status)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, participant.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	points := standings.PointsForPlacement(tournament.ScoringSystem, input.Placement)
	playedAt := time.Now().UTC()
	if input.PlayedAt != nil {
		playedAt = *input.PlayedAt
	}

	result := &models.MatchResult{
		TournamentID:   participant.TournamentID,
		ParticipantID:  participantID,
		PhaseID:        input.PhaseID,
		Placement:      input.Placement,
		Points:         points,
		RoundScore:     input.RoundScore,
		HPLost:         input.HPLost,
		OpponentRating: input.OpponentRating,
		PlayedAt:       playedAt,
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.matchResultRepo.Create(ctx, tx, result); err != nil {
			return err
		}
		if err := s.participantRepo.AddResult(ctx, tx, participantID, points); err != nil {
			return mapParticipantRepoError(err)
		}
		return s.auditRepo.Append(ctx, tx, &models.AuditLogEntry{
			TournamentID: participant.TournamentID,
			Action:       fmt.Sprintf("recorded placement %d for %s (%.1f pts)", input.Placement, participant.RangerName, points),
			Actor:        actor.Nickname,
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(roomForTournament(participant.TournamentID), brackets.Message{
		Type: brackets.EventLeaderboardUpdated,
		Payload: map[string]interface{}{
			"tournament_id":  participant.TournamentID,
			"participant_id": participantID,
		},
	})
	return result, nil
}

func (s *participantService) broadcastParticipantUpdate(tournamentID int, participant *models.Participant) {
	payload := map[string]interface{}{"tournament_id": tournamentID}
	if participant != nil {
		payload["participant"] = participant
	}
	s.hub.BroadcastToRoom(roomForTournament(tournamentID), brackets.Message{
		Type:    brackets.EventParticipantUpdated,
		Payload: payload,
	})
}

func mapParticipantRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrDuplicateParticipant):
		return ErrDuplicateRegistration
	case errors.Is(err, repositories.ErrParticipantInvalidFK):
		return fmt.Errorf("%w: unknown tournament or division", ErrValidationFailed)
	default:
		return err
	}
}
