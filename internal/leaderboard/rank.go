package leaderboard

import (
	"cmp"
	"slices"

	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
)

// ParseSortKey maps an empty key to the overall score.
func ParseSortKey(s string) (domain.SortKey, error) {
	if s == "" {
		return domain.SortOverall, nil
	}

	k := domain.SortKey(s)
	if _, err := scoreOf(k); err != nil {
		return "", err
	}
	return k, nil
}

func scoreOf(key domain.SortKey) (func(domain.LeaderboardEntry) float64, error) {
	switch key {
	case domain.SortOverall:
		return func(e domain.LeaderboardEntry) float64 { return e.TotalScore }, nil
	case domain.SortTransformation:
		return func(e domain.LeaderboardEntry) float64 { return e.TransformationScore }, nil
	case domain.SortAdherence:
		return func(e domain.LeaderboardEntry) float64 { return e.AdherenceScore }, nil
	case domain.SortEngagement:
		return func(e domain.LeaderboardEntry) float64 { return e.EngagementScore }, nil
	}

	return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown sort key: %q", key))
}

// Rank returns a copy of entries sorted by key in descending order with 1-based ranks assigned.
// Equal scores are ordered by ascending user ID, so the same entries always get the same ranks.
func Rank(entries []domain.LeaderboardEntry, key domain.SortKey) ([]domain.LeaderboardEntry, error) {
	score, err := scoreOf(key)
	if err != nil {
		return nil, err
	}

	ranked := slices.Clone(entries)
	slices.SortFunc(ranked, func(a, b domain.LeaderboardEntry) int {
		if c := cmp.Compare(score(b), score(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked, nil
}
