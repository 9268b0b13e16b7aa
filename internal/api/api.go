package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/victornm/fitscore/internal/challenge"
	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
	"github.com/victornm/fitscore/internal/event"
	"github.com/victornm/fitscore/internal/leaderboard"
	"github.com/victornm/fitscore/internal/score"
	"github.com/victornm/fitscore/internal/scoring"
)

const defaultLeaderboardLimit = 50

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Engine       *scoring.Engine
	Score        *score.Service
	Leaderboard  *leaderboard.Service
	Challenge    *challenge.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	engine *scoring.Engine
	ss     *score.Service
	ls     *leaderboard.Service
	cs     *challenge.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		engine: c.Engine,
		ss:     c.Score,
		ls:     c.Leaderboard,
		cs:     c.Challenge,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	v1 := c.Router.Group("/v1")
	v1.POST("/scores/calculate", a.CalculateScore)
	v1.POST("/prizes/distribute", a.DistributePrizes)

	ch := v1.Group("/challenges/:challenge_id")
	ch.POST("/participants/:user_id/score", a.RefreshScore)
	ch.POST("/scores", a.RefreshChallenge)
	ch.GET("/leaderboard", a.GetLeaderboard)
	ch.DELETE("/leaderboard/:user_id", a.RemoveFromLeaderboard)
	ch.POST("/end", a.EndChallenge)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})
	c.EventBus.Subscribe(domain.EventNameChallengeEnded, func(ctx context.Context, e event.Event) error {
		return a.PublishChallengeEnded(ctx, e.(domain.EventChallengeEnded))
	})

	return a
}

type (
	ScoreRequest struct {
		StartWeight    float64      `json:"start_weight"`
		CurrentWeight  float64      `json:"current_weight"`
		Goal           string       `json:"goal"`
		WeeksElapsed   int          `json:"weeks_elapsed"`
		WorkoutLogs    []WorkoutLog `json:"workout_logs" binding:"dive"`
		CheckIns       []CheckIn    `json:"check_ins" binding:"dive"`
		PhotosUploaded int          `json:"photos_uploaded"`
		CommunityPosts int          `json:"community_posts"`
	}

	CheckIn struct {
		Date             string   `json:"date" binding:"omitempty,datetime=2006-01-02"`
		Weight           *float64 `json:"weight" binding:"omitempty,gt=0"`
		WorkoutCompleted bool     `json:"workout_completed"`
		MealsLogged      bool     `json:"meals_logged"`
		Mood             int      `json:"mood" binding:"omitempty,min=1,max=5"`
		PhotoURL         string   `json:"photo_url" binding:"omitempty,url"`
		Notes            string   `json:"notes"`
	}

	WorkoutLog struct {
		Week               int           `json:"week" binding:"omitempty,min=1"`
		Day                int           `json:"day" binding:"omitempty,min=1,max=5"`
		ExercisesCompleted []ExerciseLog `json:"exercises_completed"`
		DurationMinutes    int           `json:"duration_minutes" binding:"gte=0"`
		PerceivedEffort    int           `json:"perceived_effort" binding:"omitempty,min=1,max=5"`
	}

	ExerciseLog struct {
		Name          string   `json:"name"`
		SetsCompleted int      `json:"sets_completed"`
		Reps          []int    `json:"reps"`
		Weight        *float64 `json:"weight,omitempty"`
	}

	ScoreSummary struct {
		Total             float64 `json:"total"`
		Transformation    float64 `json:"transformation"`
		Adherence         float64 `json:"adherence"`
		Engagement        float64 `json:"engagement"`
		WorkoutsCompleted int     `json:"workouts_completed"`
		WorkoutsTotal     int     `json:"workouts_total"`
		MealsLogged       int     `json:"meals_logged"`
		CheckIns          int     `json:"check_ins"`
		PhotosUploaded    int     `json:"photos_uploaded"`
	}

	Score struct {
		ChallengeID         string       `json:"challenge_id"`
		UserID              string       `json:"user_id"`
		Summary             ScoreSummary `json:"summary"`
		WeightChangePercent float64      `json:"weight_change_percent"`
		UpdateTime          time.Time    `json:"update_time"`
	}

	PrizeRequest struct {
		PrizePool *float64 `json:"prize_pool" binding:"required"`
	}

	PrizeResponse struct {
		Grand           float64 `json:"grand"`
		Second          float64 `json:"second"`
		Third           float64 `json:"third"`
		MostImproved    float64 `json:"most_improved"`
		BestConsistency float64 `json:"best_consistency"`
		Margin          float64 `json:"margin"`
	}

	LeaderboardQuery struct {
		Sort  string `form:"sort"`
		Limit *int   `form:"limit" binding:"omitempty,gte=0,lte=1000"`
	}

	Award struct {
		Category string  `json:"category"`
		UserID   string  `json:"user_id,omitempty"`
		Amount   float64 `json:"amount"`
	}

	Settlement struct {
		ChallengeID  string             `json:"challenge_id"`
		PrizePool    float64            `json:"prize_pool"`
		Distribution PrizeResponse      `json:"distribution"`
		Standings    []LeaderboardEntry `json:"standings"`
		Awards       []Award            `json:"awards"`
	}
)

func (a *API) CalculateScore(c *gin.Context) {
	var req ScoreRequest
	if !bind(c, c.ShouldBindJSON(&req)) {
		return
	}

	in, err := req.toDomain()
	if err != nil {
		writeError(c, err)
		return
	}

	sum, err := a.ss.Calculate(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toScoreSummary(*sum))
}

func (a *API) RefreshScore(c *gin.Context) {
	sc, err := a.ss.RefreshScore(c.Request.Context(), score.RefreshScoreRequest{
		ChallengeID: c.Param("challenge_id"),
		UserID:      c.Param("user_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toScore(*sc))
}

func (a *API) RefreshChallenge(c *gin.Context) {
	scores, err := a.ss.RefreshChallenge(c.Request.Context(), score.RefreshChallengeRequest{
		ChallengeID: c.Param("challenge_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]Score, 0, len(scores))
	for _, sc := range scores {
		resp = append(resp, toScore(sc))
	}

	c.JSON(http.StatusOK, gin.H{"scores": resp})
}

func (a *API) GetLeaderboard(c *gin.Context) {
	var q LeaderboardQuery
	if !bind(c, c.ShouldBindQuery(&q)) {
		return
	}

	key, err := leaderboard.ParseSortKey(q.Sort)
	if err != nil {
		writeError(c, err)
		return
	}

	limit := defaultLeaderboardLimit
	if q.Limit != nil {
		limit = *q.Limit
	}

	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		ChallengeID: c.Param("challenge_id"),
		SortKey:     key,
		Limit:       limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLeaderboard(*l))
}

// RemoveFromLeaderboard drops a withdrawn participant from the live leaderboard.
func (a *API) RemoveFromLeaderboard(c *gin.Context) {
	if err := a.ls.RemoveParticipant(c.Request.Context(), c.Param("challenge_id"), c.Param("user_id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) DistributePrizes(c *gin.Context) {
	var req PrizeRequest
	if !bind(c, c.ShouldBindJSON(&req)) {
		return
	}

	d, err := a.engine.Distribute(decimal.NewFromFloat(*req.PrizePool))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPrizeResponse(d))
}

func (a *API) EndChallenge(c *gin.Context) {
	st, err := a.cs.EndChallenge(c.Request.Context(), challenge.EndChallengeRequest{
		ChallengeID: c.Param("challenge_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSettlement(*st))
}

func bind(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}

	writeError(c, errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid request: %v", err),
		errors.WithCause(err),
	))
	return false
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func (r ScoreRequest) toDomain() (domain.ScoreRequest, error) {
	in := domain.ScoreRequest{
		StartWeight:    r.StartWeight,
		CurrentWeight:  r.CurrentWeight,
		Goal:           domain.Goal(r.Goal),
		WeeksElapsed:   r.WeeksElapsed,
		WorkoutLogs:    make([]domain.WorkoutLog, 0, len(r.WorkoutLogs)),
		CheckIns:       make([]domain.DailyCheckIn, 0, len(r.CheckIns)),
		PhotosUploaded: r.PhotosUploaded,
		CommunityPosts: r.CommunityPosts,
	}

	for _, l := range r.WorkoutLogs {
		wl := domain.WorkoutLog{
			Week:            l.Week,
			Day:             l.Day,
			DurationMinutes: l.DurationMinutes,
			PerceivedEffort: l.PerceivedEffort,
		}
		for _, e := range l.ExercisesCompleted {
			wl.ExercisesCompleted = append(wl.ExercisesCompleted, domain.ExerciseLog(e))
		}
		in.WorkoutLogs = append(in.WorkoutLogs, wl)
	}

	for _, ci := range r.CheckIns {
		d := domain.DailyCheckIn{
			Weight:           ci.Weight,
			WorkoutCompleted: ci.WorkoutCompleted,
			MealsLogged:      ci.MealsLogged,
			Mood:             ci.Mood,
			PhotoURL:         ci.PhotoURL,
			Notes:            ci.Notes,
		}
		if ci.Date != "" {
			t, err := time.Parse(time.DateOnly, ci.Date)
			if err != nil {
				return domain.ScoreRequest{}, errors.New(errors.CodeInvalidArgument,
					errors.WithMessagef("invalid check-in date: %q", ci.Date))
			}
			d.Date = t
		}
		in.CheckIns = append(in.CheckIns, d)
	}

	return in, nil
}

func toScoreSummary(s domain.ScoreSummary) ScoreSummary {
	return ScoreSummary(s)
}

func toScore(s domain.Score) Score {
	return Score{
		ChallengeID:         s.ChallengeID,
		UserID:              s.UserID,
		Summary:             toScoreSummary(s.Summary),
		WeightChangePercent: s.WeightChangePercent,
		UpdateTime:          s.UpdateTime,
	}
}

func toPrizeResponse(d domain.PrizeDistribution) PrizeResponse {
	return PrizeResponse{
		Grand:           d.Grand.InexactFloat64(),
		Second:          d.Second.InexactFloat64(),
		Third:           d.Third.InexactFloat64(),
		MostImproved:    d.MostImproved.InexactFloat64(),
		BestConsistency: d.BestConsistency.InexactFloat64(),
		Margin:          d.Margin.InexactFloat64(),
	}
}

func toSettlement(s domain.Settlement) Settlement {
	resp := Settlement{
		ChallengeID:  s.ChallengeID,
		PrizePool:    s.PrizePool.InexactFloat64(),
		Distribution: toPrizeResponse(s.Distribution),
		Standings:    toLeaderboardEntries(s.Standings),
		Awards:       make([]Award, 0, len(s.Awards)),
	}

	for _, a := range s.Awards {
		resp.Awards = append(resp.Awards, Award{
			Category: string(a.Category),
			UserID:   a.UserID,
			Amount:   a.Amount.InexactFloat64(),
		})
	}

	return resp
}
