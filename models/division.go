package models

import "encoding/json"

// ExpectedPopulation is a rough sizing hint used when planning division prize pools.
type ExpectedPopulation string

const (
	PopulationHigh    ExpectedPopulation = "high"
	PopulationMedium  ExpectedPopulation = "medium"
	PopulationLow     ExpectedPopulation = "low"
	PopulationVeryLow ExpectedPopulation = "very_low"
)

// DivisionReward is one placement payout inside a division.
type DivisionReward struct {
	Placement int    `json:"placement"`
	Reward    string `json:"reward"`
}

// Division partitions the participant pool into an ELO band with its own prize pool.
// Owned exclusively by its tournament; participants hold a weak divisionId reference.
type Division struct {
	ID                 int                `json:"id" db:"id"`
	TournamentID       int                `json:"tournament_id" db:"tournament_id"`
	Name               string             `json:"name" db:"name"`
	EloMin             int                `json:"elo_min" db:"elo_min"`
	EloMax             int                `json:"elo_max" db:"elo_max"`
	ExpectedPopulation ExpectedPopulation `json:"expected_population" db:"expected_population"`
	PrizePool          float64            `json:"prize_pool" db:"prize_pool"`
	RewardsJSON        *string            `json:"-" db:"rewards_json"`

	Rewards []DivisionReward `json:"rewards,omitempty" db:"-"`
}

// EncodeRewards serializes a reward list for the divisions.rewards_json column.
func EncodeRewards(rewards []DivisionReward) (*string, error) {
	if len(rewards) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(rewards)
	if err != nil {
		return nil, err
	}
	str := string(raw)
	return &str, nil
}

// DecodeRewards unmarshals the raw rewards column into the Rewards slice.
func (d *Division) DecodeRewards() error {
	if d.RewardsJSON == nil || *d.RewardsJSON == "" {
		d.Rewards = nil
		return nil
	}
	return json.Unmarshal([]byte(*d.RewardsJSON), &d.Rewards)
}
