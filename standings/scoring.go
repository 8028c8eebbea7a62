package standings

import (
	"errors"
	"fmt"

	"github.com/Dosada05/gauntlet-system/models"
)

var (
	ErrDuplicateTiebreakerOrder = errors.New("tiebreaker orders must be unique")
	ErrUnknownTiebreakerType    = errors.New("unknown tiebreaker type")
)

// PointsForPlacement looks up the points awarded for a final placement.
// Placements missing from the table award zero; negative awards are clamped
// to zero unless the system allows them.
func PointsForPlacement(sys *models.ScoringSystem, placement int) float64 {
	if sys == nil {
		return 0
	}
	for _, pp := range sys.Points {
		if pp.Placement == placement {
			if pp.Points < 0 && !sys.NegativePoints {
				return 0
			}
			return pp.Points
		}
	}
	return 0
}

// ValidateTiebreakers checks that the rule chain has unique 1-based orders
// and only known rule types.
func ValidateTiebreakers(rules []models.TiebreakerRule) error {
	seen := make(map[int]bool, len(rules))
	for _, r := range rules {
		if r.Order < 1 {
			return fmt.Errorf("tiebreaker order must be positive, got %d", r.Order)
		}
		if seen[r.Order] {
			return fmt.Errorf("%w: order %d", ErrDuplicateTiebreakerOrder, r.Order)
		}
		seen[r.Order] = true
		switch r.Type {
		case models.TiebreakHighestSingleScore,
			models.TiebreakLastRoundScore,
			models.TiebreakLowestHPLost,
			models.TiebreakStrongestOpponents,
			models.TiebreakRandom:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownTiebreakerType, r.Type)
		}
	}
	return nil
}
