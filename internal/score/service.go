package score

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
	"github.com/victornm/fitscore/internal/event"
	"github.com/victornm/fitscore/internal/scoring"
	"github.com/victornm/fitscore/internal/telemetry"
)

const (
	defaultMaxConcurrent = 16
	week                 = 7 * 24 * time.Hour
)

// Activity is the store the raw participant records are read from.
type Activity interface {
	GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error)
	GetParticipant(ctx context.Context, challengeID, userID string) (*domain.Participant, error)
	ListParticipants(ctx context.Context, challengeID string) ([]domain.Participant, error)
	ListCheckIns(ctx context.Context, challengeID, userID string) ([]domain.DailyCheckIn, error)
	ListWorkoutLogs(ctx context.Context, challengeID, userID string) ([]domain.WorkoutLog, error)
	CountCommunityPosts(ctx context.Context, challengeID, userID string) (int, error)
}

type Config struct {
	EventBus *event.Bus
	Engine   *scoring.Engine
	Activity Activity
	Metrics  *telemetry.Metrics
	// MaxConcurrent bounds how many participants are scored at once by RefreshChallenge.
	MaxConcurrent int
	Now           func() time.Time
}

type Service struct {
	eb            *event.Bus
	engine        *scoring.Engine
	activity      Activity
	metrics       *telemetry.Metrics
	maxConcurrent int
	now           func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		eb:            c.EventBus,
		engine:        c.Engine,
		activity:      c.Activity,
		metrics:       c.Metrics,
		maxConcurrent: c.MaxConcurrent,
		now:           c.Now,
	}

	if s.maxConcurrent <= 0 {
		s.maxConcurrent = defaultMaxConcurrent
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Calculate scores the given inputs without touching any store.
func (s *Service) Calculate(_ context.Context, req domain.ScoreRequest) (*domain.ScoreSummary, error) {
	start := time.Now()

	sum, err := s.engine.Summary(req)
	s.metrics.ObserveScore("calculate", start, err)

	return sum, err
}

type RefreshScoreRequest struct {
	ChallengeID string
	UserID      string
}

// RefreshScore recomputes the score of a participant from their recorded activity and publishes it.
func (s *Service) RefreshScore(ctx context.Context, req RefreshScoreRequest) (*domain.Score, error) {
	start := time.Now()

	sc, err := s.refreshScore(ctx, req)
	s.metrics.ObserveScore("refresh", start, err)

	return sc, err
}

func (s *Service) refreshScore(ctx context.Context, req RefreshScoreRequest) (*domain.Score, error) {
	c, err := s.activity.GetChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	p, err := s.activity.GetParticipant(ctx, req.ChallengeID, req.UserID)
	if err != nil {
		return nil, err
	}

	return s.score(ctx, c, *p)
}

type RefreshChallengeRequest struct {
	ChallengeID string
}

// RefreshChallenge recomputes the score of every participant. It fails if any participant fails.
func (s *Service) RefreshChallenge(ctx context.Context, req RefreshChallengeRequest) ([]domain.Score, error) {
	c, err := s.activity.GetChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	ps, err := s.activity.ListParticipants(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	scores := make([]domain.Score, len(ps))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxConcurrent)

	for i, p := range ps {
		eg.Go(func() error {
			start := time.Now()

			sc, err := s.score(ctx, c, p)
			s.metrics.ObserveScore("refresh", start, err)
			if err != nil {
				return fmt.Errorf("score participant: user=%s: %w", p.UserID, err)
			}

			scores[i] = *sc
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return scores, nil
}

func (s *Service) score(ctx context.Context, c *domain.Challenge, p domain.Participant) (*domain.Score, error) {
	now := s.now()

	weeks, err := weeksElapsed(c, now, s.engine.Config().Engagement.ChallengeWeeks)
	if err != nil {
		return nil, err
	}

	var (
		checkIns []domain.DailyCheckIn
		workouts []domain.WorkoutLog
		posts    int
	)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		checkIns, err = s.activity.ListCheckIns(gctx, c.ChallengeID, p.UserID)
		return err
	})
	eg.Go(func() (err error) {
		workouts, err = s.activity.ListWorkoutLogs(gctx, c.ChallengeID, p.UserID)
		return err
	})
	eg.Go(func() (err error) {
		posts, err = s.activity.CountCommunityPosts(gctx, c.ChallengeID, p.UserID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}

	startWeight, currentWeight, err := weights(p, checkIns)
	if err != nil {
		return nil, err
	}

	sum, err := s.engine.Summary(domain.ScoreRequest{
		StartWeight:    startWeight,
		CurrentWeight:  currentWeight,
		Goal:           p.Goal,
		WeeksElapsed:   weeks,
		WorkoutLogs:    workouts,
		CheckIns:       checkIns,
		PhotosUploaded: countPhotos(checkIns),
		CommunityPosts: posts,
	})
	if err != nil {
		return nil, err
	}

	change, err := s.engine.WeightChangePercent(startWeight, currentWeight)
	if err != nil {
		return nil, err
	}

	sc := &domain.Score{
		ChallengeID:         c.ChallengeID,
		UserID:              p.UserID,
		Summary:             *sum,
		WeightChangePercent: change,
		UpdateTime:          now,
	}

	s.eb.Publish(ctx, domain.EventScoreUpdated{
		Score: *sc,
	})

	return sc, nil
}

// weeksElapsed returns the current challenge week, 1 during the first seven days, capped at the challenge length.
func weeksElapsed(c *domain.Challenge, now time.Time, defaultWeeks int) (int, error) {
	if now.Before(c.StartDate) {
		return 0, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("challenge has not started: challenge=%s start=%s", c.ChallengeID, c.StartDate.Format(time.DateOnly)))
	}

	total := defaultWeeks
	if c.EndDate.After(c.StartDate) {
		total = int((c.EndDate.Sub(c.StartDate) + week - 1) / week)
	}

	return min(int(now.Sub(c.StartDate)/week)+1, total), nil
}

// weights derives the start and current weight. The start weight recorded at enrollment wins over
// the first weighed check-in; without any weighed check-in the weight is considered unchanged.
func weights(p domain.Participant, checkIns []domain.DailyCheckIn) (start, current float64, err error) {
	var first, last *float64
	for _, c := range checkIns {
		if c.Weight == nil || *c.Weight <= 0 {
			continue
		}
		if first == nil {
			first = c.Weight
		}
		last = c.Weight
	}

	switch {
	case p.StartingWeight > 0:
		start = p.StartingWeight
	case first != nil:
		start = *first
	default:
		return 0, 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("no weight recorded: challenge=%s user=%s", p.ChallengeID, p.UserID),
			errors.WithCause(scoring.ErrInvalidInput),
		)
	}

	current = start
	if last != nil {
		current = *last
	}

	return start, current, nil
}

func countPhotos(checkIns []domain.DailyCheckIn) int {
	n := 0
	for _, c := range checkIns {
		if c.PhotoURL != "" {
			n++
		}
	}
	return n
}
