package services

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/Dosada05/gauntlet-system/models"
	"github.com/Dosada05/gauntlet-system/repositories"
	"github.com/Dosada05/gauntlet-system/standings"
	"golang.org/x/sync/errgroup"
)

type LeaderboardQuery struct {
	DivisionID *int
	SearchTerm string
	SortBy     standings.SortKey
	Ascending  bool
	// ApplyTiebreakers resolves tie groups with the tournament's rule chain
	// instead of leaving them in natural order.
	ApplyTiebreakers bool
}

type Leaderboard struct {
	TournamentID int               `json:"tournament_id"`
	Entries      []standings.Entry `json:"entries"`
	TieGroups    map[float64][]int `json:"tie_groups,omitempty"`
}

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, tournamentID int, query LeaderboardQuery) (*Leaderboard, error)
}

type leaderboardService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchResultRepo repositories.MatchResultRepository
	logger          *slog.Logger
}

func NewLeaderboardService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchResultRepo repositories.MatchResultRepository,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchResultRepo: matchResultRepo,
		logger:          logger,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, tournamentID int, query LeaderboardQuery) (*Leaderboard, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	var (
		participants []models.Participant
		results      []models.MatchResult
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gCtx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		if !query.ApplyTiebreakers {
			return nil
		}
		var err error
		results, err = s.matchResultRepo.ListByTournament(gCtx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	minMatches := 0
	if tournament.ScoringSystem != nil {
		minMatches = tournament.ScoringSystem.MinMatchesRequired
	}

	entries, ties := standings.ComputeLeaderboard(participants, standings.Options{
		DivisionID: query.DivisionID,
		SearchTerm: query.SearchTerm,
		SortBy:     query.SortBy,
		Ascending:  query.Ascending,
		MinMatches: minMatches,
	})

	// Tie resolution reorders within equal-points blocks, which only makes
	// sense when the board is ordered by points.
	pointsOrdered := query.SortBy == "" || query.SortBy == standings.SortByPoints
	if query.ApplyTiebreakers && pointsOrdered && len(ties) > 0 && len(tournament.Tiebreakers) > 0 {
		entries = s.resolveTies(tournament, entries, ties, results)
	}

	return &Leaderboard{
		TournamentID: tournamentID,
		Entries:      entries,
		TieGroups:    ties,
	}, nil
}

// resolveTies reorders each tied block in place using the tournament's rule
// chain. Ranks stay positional; only the order within a block changes.
func (s *leaderboardService) resolveTies(tournament *models.Tournament, entries []standings.Entry, ties map[float64][]int, results []models.MatchResult) []standings.Entry {
	hist := make(standings.History)
	for _, r := range results {
		hist[r.ParticipantID] = append(hist[r.ParticipantID], r)
	}

	// The tournament ID seeds the random rule, so a given tournament always
	// draws the same order.
	seed := int64(tournament.ID)

	resolved := make([]standings.Entry, 0, len(entries))
	for i := 0; i < len(entries); {
		points := entries[i].Participant.Points
		j := i
		for j < len(entries) && entries[j].Participant.Points == points {
			j++
		}
		if j-i > 1 {
			block := make([]models.Participant, 0, j-i)
			for _, e := range entries[i:j] {
				block = append(block, e.Participant)
			}
			for k, p := range standings.BreakTies(block, tournament.Tiebreakers, hist, seed) {
				resolved = append(resolved, standings.Entry{
					Participant: p,
					Rank:        i + k + 1,
					Tied:        true,
				})
			}
		} else {
			resolved = append(resolved, entries[i])
		}
		i = j
	}
	return resolved
}
