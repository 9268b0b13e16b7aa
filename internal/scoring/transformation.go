package scoring

import (
	"math"

	"github.com/victornm/fitscore/internal/domain"
)

// Transformation scores how closely the weight change follows the ideal curve of the goal, from 0 to 100.
func (e *Engine) Transformation(startWeight, currentWeight float64, goal domain.Goal, weeksElapsed int) (float64, error) {
	if !finite(startWeight) || startWeight <= 0 {
		return 0, invalidInput("start weight must be positive: %v", startWeight)
	}
	if !finite(currentWeight) || currentWeight <= 0 {
		return 0, invalidInput("current weight must be positive: %v", currentWeight)
	}
	if weeksElapsed < 0 {
		return 0, invalidInput("weeks elapsed must not be negative: %d", weeksElapsed)
	}

	c := e.c.Transformation

	// Positive when weight was lost.
	changePercent := (startWeight - currentWeight) / startWeight * 100

	switch goal {
	case domain.GoalCut:
		idealLoss := float64(weeksElapsed) * c.CutRatePerWeek
		return clamp(100-math.Abs(changePercent-idealLoss)*c.Penalty, 0, 100), nil

	case domain.GoalBulk:
		idealGain := float64(weeksElapsed) * c.BulkRatePerWeek
		return clamp(100-math.Abs(-changePercent-idealGain)*c.Penalty, 0, 100), nil

	case domain.GoalMaintain:
		// Signed on purpose: gaining weight while maintaining is not penalized.
		if changePercent <= c.MaintainTolerance {
			return 100, nil
		}
		return clamp(100-(changePercent-c.MaintainTolerance)*c.MaintainPenalty, 0, 100), nil
	}

	return 0, invalidInput("unknown goal: %q", goal)
}

// WeightChangePercent returns the signed change from start to current weight, rounded to one
// decimal. A gain is positive.
func (e *Engine) WeightChangePercent(startWeight, currentWeight float64) (float64, error) {
	if !finite(startWeight) || startWeight <= 0 {
		return 0, invalidInput("start weight must be positive: %v", startWeight)
	}
	if !finite(currentWeight) || currentWeight <= 0 {
		return 0, invalidInput("current weight must be positive: %v", currentWeight)
	}

	return round1((currentWeight - startWeight) / startWeight * 100), nil
}
