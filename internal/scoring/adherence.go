package scoring

import (
	"github.com/victornm/fitscore/internal/domain"
)

// Adherence scores workout completion and meal logging.
//
// The workout term is the share of scheduled days with a logged workout and is not capped, so a
// participant logging more sessions than scheduled days can score above 100.
func (e *Engine) Adherence(workoutLogs []domain.WorkoutLog, checkIns []domain.DailyCheckIn, totalWorkoutDays int) (float64, error) {
	if totalWorkoutDays <= 0 {
		return 0, invalidInput("total workout days must be positive: %d", totalWorkoutDays)
	}

	workoutScore := float64(len(workoutLogs)) / float64(totalWorkoutDays) * 100

	var mealScore float64
	if len(checkIns) > 0 {
		mealScore = float64(countMealsLogged(checkIns)) / float64(len(checkIns)) * 100
	}

	c := e.c.Adherence
	return workoutScore*c.WorkoutWeight + mealScore*c.MealWeight, nil
}

func countMealsLogged(checkIns []domain.DailyCheckIn) int {
	n := 0
	for _, c := range checkIns {
		if c.MealsLogged {
			n++
		}
	}
	return n
}
