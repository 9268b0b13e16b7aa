package scoring_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
	"github.com/victornm/fitscore/internal/scoring"
)

func TestEngine_Transformation(t *testing.T) {
	tests := map[string]struct {
		start, current float64
		goal           domain.Goal
		weeks          int
		want           float64
	}{
		"cut exactly on the ideal curve scores 100": {
			start: 100, current: 98.5, goal: domain.GoalCut, weeks: 1, want: 100,
		},
		"cut half a percent behind the curve": {
			start: 100, current: 99, goal: domain.GoalCut, weeks: 1, want: 95,
		},
		"cut far off the curve is floored at 0": {
			start: 100, current: 110, goal: domain.GoalCut, weeks: 2, want: 0,
		},
		"cut with no weeks elapsed penalizes any change": {
			start: 100, current: 99, goal: domain.GoalCut, weeks: 0, want: 90,
		},
		"bulk exactly on the ideal curve scores 100": {
			start: 80, current: 81.2, goal: domain.GoalBulk, weeks: 2, want: 100,
		},
		"bulk losing weight is penalized": {
			start: 100, current: 99, goal: domain.GoalBulk, weeks: 1, want: 82.5,
		},
		"maintain without change scores 100": {
			start: 72.4, current: 72.4, goal: domain.GoalMaintain, weeks: 4, want: 100,
		},
		"maintain within tolerance scores 100": {
			start: 100, current: 98, goal: domain.GoalMaintain, weeks: 3, want: 100,
		},
		"maintain beyond tolerance is penalized": {
			start: 100, current: 97, goal: domain.GoalMaintain, weeks: 3, want: 80,
		},
		"maintain far beyond tolerance is floored at 0": {
			start: 100, current: 80, goal: domain.GoalMaintain, weeks: 3, want: 0,
		},
		"maintain gaining weight is not penalized": {
			start: 100, current: 110, goal: domain.GoalMaintain, weeks: 3, want: 100,
		},
	}

	e := makeEngine(t)
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := e.Transformation(tt.start, tt.current, tt.goal, tt.weeks)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.Signbit(got), "score must not be negative zero")
		})
	}
}

func TestEngine_Transformation_InvalidInput(t *testing.T) {
	tests := map[string]struct {
		start, current float64
		goal           domain.Goal
		weeks          int
	}{
		"zero start weight":     {start: 0, current: 80, goal: domain.GoalCut, weeks: 1},
		"negative start weight": {start: -80, current: 80, goal: domain.GoalCut, weeks: 1},
		"zero current weight":   {start: 80, current: 0, goal: domain.GoalCut, weeks: 1},
		"NaN start weight":      {start: math.NaN(), current: 80, goal: domain.GoalCut, weeks: 1},
		"infinite weight":       {start: 80, current: math.Inf(1), goal: domain.GoalBulk, weeks: 1},
		"negative weeks":        {start: 80, current: 80, goal: domain.GoalCut, weeks: -1},
		"unknown goal":          {start: 80, current: 80, goal: "shred", weeks: 1},
	}

	e := makeEngine(t)
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := e.Transformation(tt.start, tt.current, tt.goal, tt.weeks)
			require.ErrorIs(t, err, scoring.ErrInvalidInput)
			assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
		})
	}
}

func TestEngine_Transformation_MaintainIsPerfectForAnyWeek(t *testing.T) {
	e := makeEngine(t)
	for _, w := range []float64{45, 72.5, 130} {
		for k := 0; k <= 12; k++ {
			got, err := e.Transformation(w, w, domain.GoalMaintain, k)
			require.NoError(t, err)
			assert.Equal(t, 100.0, got)
		}
	}
}

func TestEngine_Adherence(t *testing.T) {
	tests := map[string]struct {
		workouts  int
		checkIns  []domain.DailyCheckIn
		totalDays int
		want      float64
	}{
		"no activity scores 0": {
			workouts: 0, checkIns: nil, totalDays: 10, want: 0,
		},
		"all workouts and all meals": {
			workouts: 10, checkIns: checkIns(4, 4), totalDays: 10, want: 100,
		},
		"half workouts and a quarter of meals": {
			workouts: 5, checkIns: checkIns(4, 1), totalDays: 10, want: 37.5,
		},
		"meals without check-ins do not divide by zero": {
			workouts: 10, checkIns: nil, totalDays: 10, want: 50,
		},
		"extra workouts push the workout term above 100": {
			workouts: 15, checkIns: checkIns(2, 2), totalDays: 10, want: 125,
		},
	}

	e := makeEngine(t)
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := e.Adherence(workoutLogs(tt.workouts), tt.checkIns, tt.totalDays)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEngine_Adherence_ZeroWorkoutDays(t *testing.T) {
	_, err := makeEngine(t).Adherence(nil, nil, 0)
	require.ErrorIs(t, err, scoring.ErrInvalidInput)
}

func TestEngine_Engagement(t *testing.T) {
	e := makeEngine(t)

	t.Run("no activity scores 0", func(t *testing.T) {
		got, err := e.Engagement(nil, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("points are normalized by the challenge maximum", func(t *testing.T) {
		// 10*2 + 2*5 + 5*3 = 45 of 270
		got, err := e.Engagement(checkIns(10, 0), 2, 5)
		require.NoError(t, err)
		assert.InDelta(t, 45.0/270*100, got, 1e-9)
	})

	t.Run("a perfect challenge scores 100", func(t *testing.T) {
		got, err := e.Engagement(checkIns(42, 0), 12, 42)
		require.NoError(t, err)
		assert.InDelta(t, 100, got, 1e-9)
	})

	t.Run("more than the maximum is capped at 100", func(t *testing.T) {
		got, err := e.Engagement(checkIns(42, 0), 100, 500)
		require.NoError(t, err)
		assert.Equal(t, 100.0, got)
	})

	t.Run("negative counts are rejected", func(t *testing.T) {
		_, err := e.Engagement(nil, -1, 0)
		require.ErrorIs(t, err, scoring.ErrInvalidInput)

		_, err = e.Engagement(nil, 0, -1)
		require.ErrorIs(t, err, scoring.ErrInvalidInput)
	})
}

func TestEngagementConfig_MaxPossible(t *testing.T) {
	assert.Equal(t, 270.0, scoring.DefaultConfig().Engagement.MaxPossible())

	c := scoring.DefaultConfig().Engagement
	c.ChallengeWeeks = 8
	assert.Equal(t, 56*2.0+12*5+42*3, c.MaxPossible())
}

func TestEngine_Total(t *testing.T) {
	e := makeEngine(t)

	assert.InDelta(t, 100, e.Total(100, 100, 100), 1e-9)
	assert.InDelta(t, 50*0.5+80*0.35+20*0.15, e.Total(50, 80, 20), 1e-9)
	assert.InDelta(t, 100*0.5+125*0.35+100*0.15, e.Total(100, 125, 100), 1e-9, "total is not clamped")
}

func TestEngine_Summary(t *testing.T) {
	e := makeEngine(t)

	req := domain.ScoreRequest{
		StartWeight:    100,
		CurrentWeight:  97,
		Goal:           domain.GoalCut,
		WeeksElapsed:   2,
		WorkoutLogs:    workoutLogs(7),
		CheckIns:       checkIns(12, 9),
		PhotosUploaded: 2,
		CommunityPosts: 3,
	}

	got, err := e.Summary(req)
	require.NoError(t, err)

	// transformation: 100 - |3 - 3|*10 = 100
	// adherence: 70*0.5 + 75*0.5 = 72.5
	// engagement: (24 + 10 + 9) / 270 * 100 = 15.925...
	// total: 50 + 25.375 + 2.3888... = 77.7638...
	want := &domain.ScoreSummary{
		Total:             77.8,
		Transformation:    100,
		Adherence:         72.5,
		Engagement:        15.9,
		WorkoutsCompleted: 7,
		WorkoutsTotal:     10,
		MealsLogged:       9,
		CheckIns:          12,
		PhotosUploaded:    2,
	}
	assert.Equal(t, want, got)

	again, err := e.Summary(req)
	require.NoError(t, err)
	assert.Equal(t, got, again, "scoring the same inputs twice must give identical results")
}

func TestEngine_Summary_Errors(t *testing.T) {
	e := makeEngine(t)

	tests := map[string]domain.ScoreRequest{
		"zero start weight": {StartWeight: 0, CurrentWeight: 80, Goal: domain.GoalCut, WeeksElapsed: 1},
		"bad goal":          {StartWeight: 80, CurrentWeight: 80, Goal: "", WeeksElapsed: 1},
		"no workout days":   {StartWeight: 80, CurrentWeight: 80, Goal: domain.GoalCut, WeeksElapsed: 0},
		"negative weeks":    {StartWeight: 80, CurrentWeight: 80, Goal: domain.GoalCut, WeeksElapsed: -2},
		"negative photos":   {StartWeight: 80, CurrentWeight: 80, Goal: domain.GoalCut, WeeksElapsed: 1, PhotosUploaded: -1},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := e.Summary(req)
			require.ErrorIs(t, err, scoring.ErrInvalidInput)
			assert.Nil(t, got, "a failed summary must not be partially populated")
		})
	}
}

func TestEngine_BuildSummary_RoundsToOneDecimal(t *testing.T) {
	e := makeEngine(t)

	got := e.BuildSummary(domain.ScoreRequest{}, 83.33333333, 66.66666666, 12.25, 5)
	assert.Equal(t, 83.3, got.Transformation)
	assert.Equal(t, 66.7, got.Adherence)
	assert.Equal(t, 12.3, got.Engagement, "halves round away from zero")

	for _, v := range []float64{got.Total, got.Transformation, got.Adherence, got.Engagement} {
		assert.InDelta(t, math.Round(v*10)/10, v, 1e-12)
	}
}

func TestEngine_WeightChangePercent(t *testing.T) {
	e := makeEngine(t)

	got, err := e.WeightChangePercent(90, 82.62)
	require.NoError(t, err)
	assert.Equal(t, -8.2, got)

	got, err = e.WeightChangePercent(80, 82.56)
	require.NoError(t, err)
	assert.Equal(t, 3.2, got)

	_, err = e.WeightChangePercent(0, 82)
	require.ErrorIs(t, err, scoring.ErrInvalidInput)
}

func makeEngine(t *testing.T) *scoring.Engine {
	t.Helper()

	e, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)
	return e
}

func workoutLogs(n int) []domain.WorkoutLog {
	logs := make([]domain.WorkoutLog, n)
	for i := range logs {
		logs[i] = domain.WorkoutLog{Week: i/5 + 1, Day: i%5 + 1, DurationMinutes: 45, PerceivedEffort: 3}
	}
	return logs
}

// checkIns returns n check-ins, the first meals of which have meals logged.
func checkIns(n, meals int) []domain.DailyCheckIn {
	cs := make([]domain.DailyCheckIn, n)
	for i := range cs {
		cs[i] = domain.DailyCheckIn{Mood: 3, MealsLogged: i < meals}
	}
	return cs
}
