package models

import "encoding/json"

type ScoringType string

const (
	ScoringPlacement ScoringType = "placement"
	ScoringCustom    ScoringType = "custom"
)

// PlacementPoints maps a final placement to awarded points. Placement values
// need not be contiguous but conventionally run 1..N.
type PlacementPoints struct {
	Placement int     `json:"placement"`
	Points    float64 `json:"points"`
}

// ScoringSystem describes how match placements convert into leaderboard points.
// Participants below MinMatchesRequired are excluded from ranking-dependent views.
type ScoringSystem struct {
	Type               ScoringType       `json:"type"`
	Points             []PlacementPoints `json:"points"`
	MinMatchesRequired int               `json:"min_matches_required"`
	NegativePoints     bool              `json:"negative_points"`
}

type TiebreakerType string

const (
	TiebreakHighestSingleScore TiebreakerType = "highest_single_score"
	TiebreakLastRoundScore     TiebreakerType = "last_round_score"
	TiebreakLowestHPLost       TiebreakerType = "lowest_hp_lost"
	TiebreakStrongestOpponents TiebreakerType = "strongest_opponents"
	TiebreakRandom             TiebreakerType = "random"
)

// TiebreakerRule is applied in ascending Order when two participants share
// identical points. Order is 1-based and unique within the list.
type TiebreakerRule struct {
	Order       int            `json:"order"`
	Type        TiebreakerType `json:"type"`
	Description string         `json:"description,omitempty"`
}

// EncodeScoring serializes a scoring system for the tournaments.scoring_json column.
func EncodeScoring(s *ScoringSystem) (*string, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	str := string(raw)
	return &str, nil
}

// DecodeScoring parses the tournaments.scoring_json column. Empty means none.
func DecodeScoring(raw *string) (*ScoringSystem, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var s ScoringSystem
	if err := json.Unmarshal([]byte(*raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeTiebreakers serializes the ordered rule list for the tiebreakers_json column.
func EncodeTiebreakers(rules []TiebreakerRule) (*string, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	str := string(raw)
	return &str, nil
}

// DecodeTiebreakers parses the tiebreakers_json column.
func DecodeTiebreakers(raw *string) ([]TiebreakerRule, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var rules []TiebreakerRule
	if err := json.Unmarshal([]byte(*raw), &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
