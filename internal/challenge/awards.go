package challenge

import (
	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/leaderboard"
)

const podiumSize = 3

// selectAwards assigns the prize categories to participants. standings must be ranked by overall score.
//
// The podium takes grand, second and third prize. Most improved goes to the best transformation
// score outside the podium, best consistency to the best adherence score among the remaining
// participants. Categories without an eligible participant stay unassigned.
func selectAwards(standings []domain.LeaderboardEntry, d domain.PrizeDistribution) ([]domain.Award, error) {
	awarded := make(map[string]bool, podiumSize+2)

	awards := []domain.Award{
		{Category: domain.PrizeGrand, Amount: d.Grand},
		{Category: domain.PrizeSecond, Amount: d.Second},
		{Category: domain.PrizeThird, Amount: d.Third},
		{Category: domain.PrizeMostImproved, Amount: d.MostImproved},
		{Category: domain.PrizeBestConsistency, Amount: d.BestConsistency},
	}

	for i := 0; i < podiumSize && i < len(standings); i++ {
		awards[i].UserID = standings[i].UserID
		awarded[standings[i].UserID] = true
	}

	categories := []struct {
		award int
		key   domain.SortKey
	}{
		{award: 3, key: domain.SortTransformation},
		{award: 4, key: domain.SortAdherence},
	}
	for _, c := range categories {
		ranked, err := leaderboard.Rank(standings, c.key)
		if err != nil {
			return nil, err
		}

		for _, e := range ranked {
			if awarded[e.UserID] {
				continue
			}
			awards[c.award].UserID = e.UserID
			awarded[e.UserID] = true
			break
		}
	}

	return awards, nil
}
