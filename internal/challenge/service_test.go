package challenge_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/fitscore/internal/challenge"
	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
	"github.com/victornm/fitscore/internal/event"
	"github.com/victornm/fitscore/internal/score"
	"github.com/victornm/fitscore/internal/scoring"
)

func TestService_EndChallenge(t *testing.T) {
	type (
		inputs struct {
			status  domain.ChallengeStatus
			scores  []domain.Score
			refresh error
		}

		outputs struct {
			settlement *domain.Settlement
			err        error
			saved      []domain.LeaderboardEntry
			published  []domain.EventChallengeEnded
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should rank participants, split the pool and assign every award": {
			arrange: func() inputs {
				return inputs{
					status: domain.ChallengeActive,
					scores: []domain.Score{
						finalScore("f", 60, 98, 50),
						finalScore("a", 90, 95, 80),
						finalScore("c", 80, 60, 85),
						finalScore("e", 60, 50, 95),
						finalScore("b", 85, 70, 90),
						finalScore("d", 70, 99, 60),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)

				st := out.settlement
				assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, userIDs(st.Standings))
				assert.Equal(t, st.Standings, out.saved)

				want := map[domain.PrizeCategory]struct {
					user   string
					amount string
				}{
					domain.PrizeGrand:           {user: "a", amount: "400"},
					domain.PrizeSecond:          {user: "b", amount: "200"},
					domain.PrizeThird:           {user: "c", amount: "100"},
					domain.PrizeMostImproved:    {user: "d", amount: "150"},
					domain.PrizeBestConsistency: {user: "e", amount: "150"},
				}
				require.Len(t, st.Awards, len(want))
				for _, a := range st.Awards {
					w := want[a.Category]
					assert.Equal(t, w.user, a.UserID, "winner of %s", a.Category)
					assert.True(t, decimal.RequireFromString(w.amount).Equal(a.Amount), "amount of %s: %s", a.Category, a.Amount)
				}

				require.Len(t, out.published, 1)
				assert.Equal(t, *st, out.published[0].Settlement)
			},
		},

		"should leave awards unassigned when there are not enough participants": {
			arrange: func() inputs {
				return inputs{
					status: domain.ChallengeActive,
					scores: []domain.Score{
						finalScore("solo", 70, 80, 60),
						finalScore("duo", 75, 50, 90),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)

				winners := map[domain.PrizeCategory]string{}
				for _, a := range out.settlement.Awards {
					winners[a.Category] = a.UserID
				}
				assert.Equal(t, map[domain.PrizeCategory]string{
					domain.PrizeGrand:           "duo",
					domain.PrizeSecond:          "solo",
					domain.PrizeThird:           "",
					domain.PrizeMostImproved:    "",
					domain.PrizeBestConsistency: "",
				}, winners)
			},
		},

		"should refuse to settle a completed challenge": {
			arrange: func() inputs {
				return inputs{status: domain.ChallengeCompleted}
			},

			assert: func(t *testing.T, out outputs) {
				assert.True(t, errors.IsCode(out.err, errors.CodeFailedPrecondition))
				assert.Nil(t, out.saved)
				assert.Empty(t, out.published)
			},
		},

		"should not save anything when a final score fails": {
			arrange: func() inputs {
				return inputs{
					status:  domain.ChallengeActive,
					refresh: stderrors.New("score participant: user=ghost: no weight recorded"),
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ErrorContains(t, out.err, "user=ghost")
				assert.Nil(t, out.saved)
				assert.Empty(t, out.published)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in, out := tt.arrange(), outputs{}

			eb := event.NewBus()
			var mu sync.Mutex
			eb.Subscribe(domain.EventNameChallengeEnded, func(ctx context.Context, e event.Event) error {
				mu.Lock()
				out.published = append(out.published, e.(domain.EventChallengeEnded))
				mu.Unlock()
				return nil
			})

			engine, err := scoring.NewEngine(scoring.DefaultConfig())
			require.NoError(t, err)

			store := &fakeStore{
				challenge: domain.Challenge{
					ChallengeID: "c1",
					PrizePool:   decimal.NewFromInt(1000),
					Status:      in.status,
				},
			}

			s := challenge.NewService(challenge.Config{
				EventBus: eb,
				Engine:   engine,
				Scores:   fakeScores{scores: in.scores, err: in.refresh},
				Store:    store,
			})

			out.settlement, out.err = s.EndChallenge(context.Background(), challenge.EndChallengeRequest{ChallengeID: "c1"})
			eb.Stop()
			out.saved = store.saved

			tt.assert(t, out)
		})
	}
}

func finalScore(user string, total, transformation, adherence float64) domain.Score {
	return domain.Score{
		ChallengeID: "c1",
		UserID:      user,
		Summary: domain.ScoreSummary{
			Total:          total,
			Transformation: transformation,
			Adherence:      adherence,
		},
	}
}

func userIDs(entries []domain.LeaderboardEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	return ids
}

type fakeScores struct {
	scores []domain.Score
	err    error
}

func (f fakeScores) RefreshChallenge(context.Context, score.RefreshChallengeRequest) ([]domain.Score, error) {
	return f.scores, f.err
}

type fakeStore struct {
	challenge domain.Challenge
	saved     []domain.LeaderboardEntry
}

func (f *fakeStore) GetChallenge(context.Context, string) (*domain.Challenge, error) {
	c := f.challenge
	return &c, nil
}

func (f *fakeStore) SaveStandings(_ context.Context, _ string, standings []domain.LeaderboardEntry) error {
	f.saved = standings
	return nil
}
