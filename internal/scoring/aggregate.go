package scoring

import (
	"fmt"

	"github.com/victornm/fitscore/internal/domain"
)

// Total is the weighted sum of the sub-scores. It is not clamped.
func (e *Engine) Total(transformation, adherence, engagement float64) float64 {
	w := e.c.Weights
	return transformation*w.Transformation +
		adherence*w.Adherence +
		engagement*w.Engagement
}

// Summary scores a participant. Any sub-score failure aborts the whole summary.
func (e *Engine) Summary(req domain.ScoreRequest) (*domain.ScoreSummary, error) {
	if req.WeeksElapsed < 0 {
		return nil, invalidInput("weeks elapsed must not be negative: %d", req.WeeksElapsed)
	}
	totalWorkoutDays := req.WeeksElapsed * e.c.Adherence.WorkoutDaysPerWeek

	transformation, err := e.Transformation(req.StartWeight, req.CurrentWeight, req.Goal, req.WeeksElapsed)
	if err != nil {
		return nil, fmt.Errorf("transformation: %w", err)
	}

	adherence, err := e.Adherence(req.WorkoutLogs, req.CheckIns, totalWorkoutDays)
	if err != nil {
		return nil, fmt.Errorf("adherence: %w", err)
	}

	engagement, err := e.Engagement(req.CheckIns, req.PhotosUploaded, req.CommunityPosts)
	if err != nil {
		return nil, fmt.Errorf("engagement: %w", err)
	}

	return e.BuildSummary(req, transformation, adherence, engagement, totalWorkoutDays), nil
}

// BuildSummary rounds the raw scores to one decimal and attaches the activity counts of req.
func (e *Engine) BuildSummary(req domain.ScoreRequest, transformation, adherence, engagement float64, totalWorkoutDays int) *domain.ScoreSummary {
	total := e.Total(transformation, adherence, engagement)

	return &domain.ScoreSummary{
		Total:             round1(total),
		Transformation:    round1(transformation),
		Adherence:         round1(adherence),
		Engagement:        round1(engagement),
		WorkoutsCompleted: len(req.WorkoutLogs),
		WorkoutsTotal:     totalWorkoutDays,
		MealsLogged:       countMealsLogged(req.CheckIns),
		CheckIns:          len(req.CheckIns),
		PhotosUploaded:    req.PhotosUploaded,
	}
}
