package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/gauntlet-system/gauntlet"
	"golang.org/x/sync/errgroup"
)

type PlayerMover struct {
	Player string  `json:"player"`
	Change float64 `json:"change"`
}

type GameHighlight struct {
	StartTime time.Time `json:"start_time"`
	Duration  string    `json:"duration"`
	Players   []string  `json:"players"`
}

type DroneHealthExtreme struct {
	Player string  `json:"player"`
	Health float64 `json:"health"`
}

// AnalyticsSummary is the fun-facts rollup over a window of gauntlet games.
type AnalyticsSummary struct {
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	TotalGames    int       `json:"total_games"`
	UniquePlayers int       `json:"unique_players"`
	TotalRounds   int       `json:"total_rounds"`

	TopRatingGainers  []PlayerMover       `json:"top_rating_gainers"`
	TopRatingLosers   []PlayerMover       `json:"top_rating_losers"`
	LongestGame       *GameHighlight      `json:"longest_game,omitempty"`
	HighestDroneHP    *DroneHealthExtreme `json:"highest_drone_health,omitempty"`
	LowestDroneHP     *DroneHealthExtreme `json:"lowest_drone_health,omitempty"`
	MostActivePlayer  *PlayerMover        `json:"most_active_player,omitempty"`
	AverageGameLength string              `json:"average_game_length"`
}

// PlayerStats is the per-player view over the same window.
type PlayerStats struct {
	Player        string    `json:"player"`
	GamesPlayed   int       `json:"games_played"`
	BestRank      int       `json:"best_rank"`
	AverageRank   float64   `json:"average_rank"`
	CurrentRating float64   `json:"current_rating"`
	RatingChange  float64   `json:"rating_change"`
	LastPlayed    time.Time `json:"last_played"`
}

type AnalyticsService interface {
	Summary(ctx context.Context, start, end time.Time) (*AnalyticsSummary, error)
	PlayerStats(ctx context.Context, playerID string, start, end time.Time) (*PlayerStats, error)
}

type analyticsService struct {
	client *gauntlet.Client
	logger *slog.Logger

	// One summary window is fetched at a time; the cache keeps repeat reads
	// of the same window from hammering the upstream API.
	mu       sync.Mutex
	cacheKey string
	cached   []gauntlet.GameRecord
	cachedAt time.Time
	cacheTTL time.Duration
}

func NewAnalyticsService(client *gauntlet.Client, logger *slog.Logger) AnalyticsService {
	return &analyticsService{
		client:   client,
		logger:   logger,
		cacheTTL: 5 * time.Minute,
	}
}

func (s *analyticsService) Summary(ctx context.Context, start, end time.Time) (*AnalyticsSummary, error) {
	records, err := s.fetchWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &AnalyticsSummary{
		WindowStart: start,
		WindowEnd:   end,
		TotalGames:  len(records),
	}
	if len(records) == 0 {
		return summary, nil
	}

	// The aggregation passes are independent scans over the same slice.
	var (
		movers   map[string]float64
		activity map[string]int
		players  map[string]struct{}
		highHP   *DroneHealthExtreme
		lowHP    *DroneHealthExtreme
		longest  *GameHighlight
		totalDur time.Duration
		durCount int
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		movers = make(map[string]float64)
		activity = make(map[string]int)
		players = make(map[string]struct{})
		for _, rec := range records {
			summary.TotalRounds += rec.Rounds
			for _, p := range rec.Players {
				players[p] = struct{}{}
				activity[p]++
			}
			for _, res := range rec.Results {
				movers[res.Player] += res.RatingChange
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := range records {
			rec := &records[i]
			for _, res := range rec.Results {
				if res.DroneHealth <= 0 {
					continue
				}
				if highHP == nil || res.DroneHealth > highHP.Health {
					highHP = &DroneHealthExtreme{Player: res.Player, Health: res.DroneHealth}
				}
				if lowHP == nil || res.DroneHealth < lowHP.Health {
					lowHP = &DroneHealthExtreme{Player: res.Player, Health: res.DroneHealth}
				}
			}
		}
		return nil
	})
	g.Go(func() error {
		var longestDur time.Duration
		for i := range records {
			d := records[i].Duration()
			if d <= 0 {
				continue
			}
			totalDur += d
			durCount++
			if d > longestDur {
				longestDur = d
				longest = &GameHighlight{
					StartTime: records[i].StartTime,
					Duration:  d.Round(time.Second).String(),
					Players:   records[i].Players,
				}
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.UniquePlayers = len(players)
	summary.HighestDroneHP = highHP
	summary.LowestDroneHP = lowHP
	summary.LongestGame = longest
	if durCount > 0 {
		summary.AverageGameLength = (totalDur / time.Duration(durCount)).Round(time.Second).String()
	}

	gainers, losers := rankMovers(movers, 5)
	summary.TopRatingGainers = gainers
	summary.TopRatingLosers = losers

	if mostActive := topActivity(activity); mostActive != nil {
		summary.MostActivePlayer = mostActive
	}
	return summary, nil
}

func (s *analyticsService) PlayerStats(ctx context.Context, playerID string, start, end time.Time) (*PlayerStats, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrValidationFailed)
	}

	records, err := s.fetchWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := &PlayerStats{Player: playerID}
	rankSum := 0
	for _, rec := range records {
		for _, res := range rec.Results {
			if !strings.EqualFold(res.Player, playerID) {
				continue
			}
			stats.GamesPlayed++
			stats.RatingChange += res.RatingChange
			rankSum += res.Rank
			if stats.BestRank == 0 || res.Rank < stats.BestRank {
				stats.BestRank = res.Rank
			}
			if rec.StartTime.After(stats.LastPlayed) {
				stats.LastPlayed = rec.StartTime
				stats.CurrentRating = res.Rating
			}
		}
	}
	if stats.GamesPlayed == 0 {
		return nil, fmt.Errorf("%w: no games for player %s in window", ErrNotFound, playerID)
	}
	stats.AverageRank = float64(rankSum) / float64(stats.GamesPlayed)
	return stats, nil
}

func (s *analyticsService) fetchWindow(ctx context.Context, start, end time.Time) ([]gauntlet.GameRecord, error) {
	key := start.UTC().Format(time.RFC3339) + "/" + end.UTC().Format(time.RFC3339)

	s.mu.Lock()
	if s.cacheKey == key && time.Since(s.cachedAt) < s.cacheTTL {
		records := s.cached
		s.mu.Unlock()
		return records, nil
	}
	s.mu.Unlock()

	records, err := s.client.FetchAllMatches(ctx, start, end)
	if err != nil {
		if errors.Is(err, gauntlet.ErrUpstreamFetch) {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
		}
		return nil, err
	}
	s.logger.Info("fetched gauntlet window",
		slog.Time("start", start), slog.Time("end", end),
		slog.Int("games", len(records)))

	s.mu.Lock()
	s.cacheKey = key
	s.cached = records
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return records, nil
}

func rankMovers(movers map[string]float64, limit int) (gainers, losers []PlayerMover) {
	all := make([]PlayerMover, 0, len(movers))
	for player, change := range movers {
		all = append(all, PlayerMover{Player: player, Change: change})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Change != all[j].Change {
			return all[i].Change > all[j].Change
		}
		return all[i].Player < all[j].Player
	})

	for i := 0; i < len(all) && i < limit; i++ {
		if all[i].Change > 0 {
			gainers = append(gainers, all[i])
		}
	}
	for i := len(all) - 1; i >= 0 && len(losers) < limit; i-- {
		if all[i].Change < 0 {
			losers = append(losers, all[i])
		}
	}
	return gainers, losers
}

func topActivity(activity map[string]int) *PlayerMover {
	var best *PlayerMover
	for player, games := range activity {
		if best == nil || games > int(best.Change) || (games == int(best.Change) && player < best.Player) {
			best = &PlayerMover{Player: player, Change: float64(games)}
		}
	}
	return best
}
