package brackets

import (
	"context"

	"github.com/Dosada05/gauntlet-system/models"
)

type GenerateParams struct {
	TournamentID int
	// Seeds in rank order: index 0 is the top seed.
	Seeds []models.Participant
}

type Generator interface {
	Generate(ctx context.Context, params GenerateParams) (*models.TournamentBracket, error)

	Name() string
}
