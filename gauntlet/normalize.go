package gauntlet

import (
	"encoding/json"
	"fmt"
	"time"
)

// GameRecord is the canonical shape every upstream game is normalized into
// at the ingestion boundary. Downstream code never sees the raw field-name
// variants the API has shipped over time.
type GameRecord struct {
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Players   []string     `json:"players"`
	Results   []GameResult `json:"results"`
	Rounds    int          `json:"rounds"`
}

// GameResult is one player's outcome within a game.
type GameResult struct {
	Player       string  `json:"player"`
	Rank         int     `json:"rank"`
	Rating       float64 `json:"rating"`
	RatingChange float64 `json:"rating_change"`
	Level        int     `json:"level"`
	DroneHealth  float64 `json:"drone_health"`
}

// Duration is the played length of the game, zero when either end is missing.
func (g GameRecord) Duration() time.Duration {
	if g.StartTime.IsZero() || g.EndTime.IsZero() {
		return 0
	}
	return g.EndTime.Sub(g.StartTime)
}

// rawGame carries every field-name variant the API has been observed to use.
type rawGame struct {
	StartTime      json.RawMessage   `json:"startTime"`
	StartTimeSnake json.RawMessage   `json:"start_time"`
	CreatedAt      json.RawMessage   `json:"createdAt"`
	EndTime        json.RawMessage   `json:"endTime"`
	EndTimeSnake   json.RawMessage   `json:"end_time"`
	FinishedAt     json.RawMessage   `json:"finishedAt"`
	Players        []string          `json:"players"`
	Results        []rawResult       `json:"results"`
	Rounds         []json.RawMessage `json:"rounds"`
}

type rawResult struct {
	Player       string   `json:"player"`
	Rank         int      `json:"rank"`
	Rating       float64  `json:"rating"`
	RatingChange *float64 `json:"ratingChange"`
	RatingDelta  *float64 `json:"rating_change"`
	Level        int      `json:"level"`
	DroneHealth  *float64 `json:"droneHealth"`
	DroneHP      *float64 `json:"drone_health"`
}

// Normalize maps one raw upstream game into the canonical GameRecord,
// resolving field-name variants and both timestamp encodings (RFC 3339
// strings and unix-millisecond numbers).
func Normalize(raw json.RawMessage) (GameRecord, error) {
	var g rawGame
	if err := json.Unmarshal(raw, &g); err != nil {
		return GameRecord{}, fmt.Errorf("decoding game record: %w", err)
	}

	start, err := parseTimestamp(firstPresent(g.StartTime, g.StartTimeSnake, g.CreatedAt))
	if err != nil {
		return GameRecord{}, fmt.Errorf("start time: %w", err)
	}
	end, err := parseTimestamp(firstPresent(g.EndTime, g.EndTimeSnake, g.FinishedAt))
	if err != nil {
		return GameRecord{}, fmt.Errorf("end time: %w", err)
	}

	rec := GameRecord{
		StartTime: start,
		EndTime:   end,
		Players:   g.Players,
		Rounds:    len(g.Rounds),
	}
	for _, r := range g.Results {
		rec.Results = append(rec.Results, GameResult{
			Player:       r.Player,
			Rank:         r.Rank,
			Rating:       r.Rating,
			RatingChange: coalesceFloat(r.RatingChange, r.RatingDelta),
			Level:        r.Level,
			DroneHealth:  coalesceFloat(r.DroneHealth, r.DroneHP),
		})
	}
	return rec, nil
}

func firstPresent(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 && string(c) != "null" {
			return c
		}
	}
	return nil
}

func coalesceFloat(candidates ...*float64) float64 {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if raw == nil {
		return time.Time{}, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		ts, err := time.Parse(time.RFC3339, asString)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized timestamp %q", asString)
		}
		return ts, nil
	}
	var asMillis int64
	if err := json.Unmarshal(raw, &asMillis); err == nil {
		return time.UnixMilli(asMillis).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp encoding: %s", string(raw))
}
