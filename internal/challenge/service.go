package challenge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
	"github.com/victornm/fitscore/internal/event"
	"github.com/victornm/fitscore/internal/leaderboard"
	"github.com/victornm/fitscore/internal/score"
	"github.com/victornm/fitscore/internal/scoring"
	"github.com/victornm/fitscore/internal/telemetry"
)

type Scores interface {
	RefreshChallenge(ctx context.Context, req score.RefreshChallengeRequest) ([]domain.Score, error)
}

type Store interface {
	GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error)
	SaveStandings(ctx context.Context, challengeID string, standings []domain.LeaderboardEntry) error
}

type Config struct {
	EventBus *event.Bus
	Engine   *scoring.Engine
	Scores   Scores
	Store    Store
	Metrics  *telemetry.Metrics
}

type Service struct {
	eb      *event.Bus
	engine  *scoring.Engine
	scores  Scores
	store   Store
	metrics *telemetry.Metrics
}

func NewService(c Config) *Service {
	return &Service{
		eb:      c.EventBus,
		engine:  c.Engine,
		scores:  c.Scores,
		store:   c.Store,
		metrics: c.Metrics,
	}
}

type EndChallengeRequest struct {
	ChallengeID string
}

// EndChallenge computes the final standings, splits the prize pool and completes the challenge.
func (s *Service) EndChallenge(ctx context.Context, req EndChallengeRequest) (*domain.Settlement, error) {
	st, err := s.endChallenge(ctx, req)
	s.metrics.ObserveSettlement(err)
	return st, err
}

func (s *Service) endChallenge(ctx context.Context, req EndChallengeRequest) (*domain.Settlement, error) {
	c, err := s.store.GetChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	if c.Status == domain.ChallengeCompleted {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("challenge already completed: challenge=%s", req.ChallengeID))
	}

	scores, err := s.scores.RefreshChallenge(ctx, score.RefreshChallengeRequest{ChallengeID: req.ChallengeID})
	if err != nil {
		return nil, fmt.Errorf("final scores: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for _, sc := range scores {
		entries = append(entries, sc.LeaderboardEntry())
	}

	standings, err := leaderboard.Rank(entries, domain.SortOverall)
	if err != nil {
		return nil, err
	}

	dist, err := s.engine.Distribute(c.PrizePool)
	if err != nil {
		return nil, fmt.Errorf("distribute prize pool: %w", err)
	}

	awards, err := selectAwards(standings, dist)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveStandings(ctx, req.ChallengeID, standings); err != nil {
		return nil, fmt.Errorf("save standings: %w", err)
	}

	st := domain.Settlement{
		ChallengeID:  req.ChallengeID,
		PrizePool:    c.PrizePool,
		Distribution: dist,
		Standings:    standings,
		Awards:       awards,
	}

	slog.InfoContext(ctx, "challenge: settled",
		"challenge", req.ChallengeID,
		"participants", len(standings),
		"prize_pool", c.PrizePool.String(),
	)

	s.eb.Publish(ctx, domain.EventChallengeEnded{
		Settlement: st,
	})

	return &st, nil
}
