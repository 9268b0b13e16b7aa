package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
	"github.com/victornm/fitscore/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
	// publishLockTTL frees the lock of an instance that died while holding it.
	publishLockTTL = 25 * publishInterval
)

// releasePublishLock consumes the pending mark when there is one, otherwise it releases the lock.
// Both happen atomically, so an update either sees the lock and leaves a mark or takes the lock itself.
var releasePublishLock = redis.NewScript(`
if redis.call("DEL", KEYS[2]) == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	return 1
end
redis.call("DEL", KEYS[1])
return 0
`)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	done    chan struct{}
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
		done:   make(chan struct{}),
	}

	s.eb.Subscribe(domain.EventNameScoreUpdated, func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventScoreUpdated))
	})

	return s
}

// snapshot is the stored form of a participant's latest score.
type snapshot struct {
	TotalScore          float64   `json:"total_score"`
	TransformationScore float64   `json:"transformation_score"`
	AdherenceScore      float64   `json:"adherence_score"`
	EngagementScore     float64   `json:"engagement_score"`
	WeightChangePercent float64   `json:"weight_change_percent"`
	UpdateTime          time.Time `json:"update_time"`
}

type GetLeaderboardRequest struct {
	ChallengeID string
	SortKey     domain.SortKey
	// Limit caps the number of entries returned, 0 returns all.
	Limit int
}

// GetLeaderboard returns the ranked participants of a challenge.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	key := req.SortKey
	if key == "" {
		key = domain.SortOverall
	}

	res, err := s.redis.HGetAll(ctx, s.getLeaderboardKey(req.ChallengeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("leaderboard not found: challenge=%s", req.ChallengeID))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for user, v := range res {
		var snap snapshot
		if err := json.Unmarshal([]byte(v), &snap); err != nil {
			return nil, fmt.Errorf("decode leaderboard entry: challenge=%s user=%s: %w", req.ChallengeID, user, err)
		}

		entries = append(entries, domain.LeaderboardEntry{
			UserID:              user,
			TotalScore:          snap.TotalScore,
			TransformationScore: snap.TransformationScore,
			AdherenceScore:      snap.AdherenceScore,
			EngagementScore:     snap.EngagementScore,
			WeightChangePercent: snap.WeightChangePercent,
		})
	}

	ranked, err := Rank(entries, key)
	if err != nil {
		return nil, err
	}

	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}

	return &domain.Leaderboard{
		ChallengeID: req.ChallengeID,
		SortKey:     key,
		Entries:     ranked,
	}, nil
}

// UpdateLeaderboard overwrites the user's score in the leaderboard.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventScoreUpdated) error {
	sc := e.Score

	b, err := json.Marshal(snapshot{
		TotalScore:          sc.Summary.Total,
		TransformationScore: sc.Summary.Transformation,
		AdherenceScore:      sc.Summary.Adherence,
		EngagementScore:     sc.Summary.Engagement,
		WeightChangePercent: sc.WeightChangePercent,
		UpdateTime:          sc.UpdateTime,
	})
	if err != nil {
		return fmt.Errorf("encode leaderboard entry: %w", err)
	}

	if err := s.redis.HSet(ctx, s.getLeaderboardKey(sc.ChallengeID), sc.UserID, b).Err(); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	return s.schedulePublishLeaderboard(ctx, sc)
}

// RemoveParticipant drops a user from the challenge leaderboard.
func (s *Service) RemoveParticipant(ctx context.Context, challengeID, userID string) error {
	if err := s.redis.HDel(ctx, s.getLeaderboardKey(challengeID), userID).Err(); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

// schedulePublishLeaderboard publishes the leaderboard changes at most once per interval.
// Many scores of a challenge are refreshed in a short time. The first update publishes right away and
// takes the lock, later updates within the interval only leave a pending mark, which the lock holder
// turns into one more publication at the end of the interval.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, sc domain.Score) error {
	if s.isStopped() {
		return s.publishLeaderboard(ctx, sc.ChallengeID)
	}

	// Also keeps several instances of the service from publishing the same change.
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(sc.ChallengeID), sc.UpdateTime.UnixMilli(), publishLockTTL).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		if err := s.redis.Set(ctx, s.getLeaderboardPendingKey(sc.ChallengeID), sc.UpdateTime.UnixMilli(), publishLockTTL).Err(); err != nil {
			return fmt.Errorf("mark pending: %w", err)
		}
		return nil
	}

	if !s.track() {
		defer s.redis.Del(ctx, s.getLeaderboardTimeKey(sc.ChallengeID))
		return s.publishLeaderboard(ctx, sc.ChallengeID)
	}
	go s.publishTrailing(context.WithoutCancel(ctx), sc.ChallengeID)

	return s.publishLeaderboard(ctx, sc.ChallengeID)
}

// publishTrailing holds the publish lock of a challenge and publishes once more per interval while
// updates keep arriving. Stop flushes the pending update right away.
func (s *Service) publishTrailing(ctx context.Context, challenge string) {
	defer s.wg.Done()

	t := time.NewTicker(publishInterval)
	defer t.Stop()

	for {
		stopping := false
		select {
		case <-t.C:
		case <-s.done:
			stopping = true
		}

		pending, err := releasePublishLock.Run(ctx, s.redis,
			[]string{s.getLeaderboardTimeKey(challenge), s.getLeaderboardPendingKey(challenge)},
			publishLockTTL.Milliseconds(),
		).Int()
		if err != nil {
			slog.ErrorContext(ctx, "leaderboard: release publish lock failed", "challenge", challenge, "error", err)
			return
		}

		if pending == 1 {
			if err := s.publishLeaderboard(ctx, challenge); err != nil {
				slog.ErrorContext(ctx, "leaderboard: trailing publish failed", "challenge", challenge, "error", err)
			}
		}

		if stopping {
			s.redis.Del(ctx, s.getLeaderboardTimeKey(challenge))
			return
		}
		if pending == 0 {
			return
		}
	}
}

// Stop publishes the pending leaderboard changes and waits for the publications to finish.
// Call it before stopping the event bus.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// track registers a trailing publisher unless the service is stopping.
func (s *Service) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Service) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Service) publishLeaderboard(ctx context.Context, challenge string) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{
		ChallengeID: challenge,
	})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: challenge=%s: %w", challenge, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) getLeaderboardKey(challenge string) string {
	return fmt.Sprintf("%s:%s:entries", s.prefix, challenge)
}

// The lock and the pending mark share a hash tag so the release script runs on a single cluster slot.
func (s *Service) getLeaderboardTimeKey(challenge string) string {
	return fmt.Sprintf("%s:{%s}:time", s.prefix, challenge)
}

func (s *Service) getLeaderboardPendingKey(challenge string) string {
	return fmt.Sprintf("%s:{%s}:pending", s.prefix, challenge)
}
