package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/fitscore/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Leaderboard struct {
		ChallengeID string             `json:"challenge_id"`
		Sort        string             `json:"sort"`
		Entries     []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Rank                int     `json:"rank"`
		UserID              string  `json:"user_id"`
		TotalScore          float64 `json:"total_score"`
		TransformationScore float64 `json:"transformation_score"`
		AdherenceScore      float64 `json:"adherence_score"`
		EngagementScore     float64 `json:"engagement_score"`
		WeightChangePercent float64 `json:"weight_change_percent"`
	}
)

// PublishLeaderboardUpdated pushes the new leaderboard to every participant on it.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := toLeaderboard(e.Leaderboard)
	return a.fanOut(ctx, e.Name(), data.Entries, data)
}

// PublishChallengeEnded pushes the settlement to every participant of the challenge.
func (a *API) PublishChallengeEnded(ctx context.Context, e domain.EventChallengeEnded) error {
	data := toSettlement(e.Settlement)
	return a.fanOut(ctx, e.Name(), data.Standings, data)
}

func (a *API) fanOut(ctx context.Context, event string, to []LeaderboardEntry, data any) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range to {
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.UserID, event, data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}

func toLeaderboard(l domain.Leaderboard) Leaderboard {
	return Leaderboard{
		ChallengeID: l.ChallengeID,
		Sort:        string(l.SortKey),
		Entries:     toLeaderboardEntries(l.Entries),
	}
}

func toLeaderboardEntries(entries []domain.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntry(e))
	}
	return out
}
