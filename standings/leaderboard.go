package standings

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Dosada05/gauntlet-system/models"
)

type SortKey string

const (
	SortByPoints  SortKey = "points"
	SortByMatches SortKey = "matches_played"
	SortByName    SortKey = "ranger_name"
)

// Options controls leaderboard filtering and ordering. The natural order is
// points and matches descending, name ascending; Ascending flips the whole
// order uniformly.
type Options struct {
	DivisionID *int
	SearchTerm string
	SortBy     SortKey
	Ascending  bool
	// MinMatches excludes participants below the scoring system's
	// minimum-match threshold. Zero disables the cut.
	MinMatches int
}

// Entry is one leaderboard row. Rank is positional (1-based after sort),
// not a stored attribute.
type Entry struct {
	Participant models.Participant `json:"participant"`
	Rank        int                `json:"rank"`
	Tied        bool               `json:"tied"`
}

// ComputeLeaderboard filters, sorts, and ranks participants, and reports tie
// groups keyed by points value. Any group of size > 1 is a tie.
func ComputeLeaderboard(participants []models.Participant, opts Options) ([]Entry, map[float64][]int) {
	filtered := make([]models.Participant, 0, len(participants))
	needle := strings.ToLower(opts.SearchTerm)
	for _, p := range participants {
		if opts.DivisionID != nil {
			if p.DivisionID == nil || *p.DivisionID != *opts.DivisionID {
				continue
			}
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.RangerName), needle) {
			continue
		}
		if opts.MinMatches > 0 && p.MatchesPlayed < opts.MinMatches {
			continue
		}
		filtered = append(filtered, p)
	}

	key := opts.SortBy
	if key == "" {
		key = SortByPoints
	}

	slices.SortStableFunc(filtered, func(a, b models.Participant) int {
		c := compareByKey(a, b, key)
		if opts.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		// Deterministic order inside equal keys.
		if c := cmp.Compare(a.RangerName, b.RangerName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	ties := make(map[float64][]int)
	byPoints := make(map[float64][]int)
	for _, p := range filtered {
		byPoints[p.Points] = append(byPoints[p.Points], p.ID)
	}
	for points, ids := range byPoints {
		if len(ids) > 1 {
			ties[points] = ids
		}
	}

	entries := make([]Entry, len(filtered))
	for i, p := range filtered {
		entries[i] = Entry{
			Participant: p,
			Rank:        i + 1,
			Tied:        len(byPoints[p.Points]) > 1,
		}
	}
	return entries, ties
}

// compareByKey orders by the natural direction of the key: points and
// matches high-to-low, names A-to-Z.
func compareByKey(a, b models.Participant, key SortKey) int {
	switch key {
	case SortByMatches:
		return cmp.Compare(b.MatchesPlayed, a.MatchesPlayed)
	case SortByName:
		return cmp.Compare(a.RangerName, b.RangerName)
	default:
		return cmp.Compare(b.Points, a.Points)
	}
}
