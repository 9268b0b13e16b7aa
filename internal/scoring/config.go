package scoring

import (
	stderrors "errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/victornm/fitscore/internal/errors"
)

// sumTolerance is how far a weight set may drift from its required total.
const sumTolerance = 1e-6

var (
	// ErrInvalidConfig is the cause of every configuration error.
	ErrInvalidConfig = stderrors.New("scoring: invalid config")
	// ErrInvalidInput is the cause of every rejected scoring input.
	ErrInvalidInput = stderrors.New("scoring: invalid input")
)

// Config holds every rule of a challenge's scoring. It is read-only once an Engine is built from it.
type Config struct {
	Weights        Weights
	Adherence      AdherenceConfig
	Engagement     EngagementConfig
	Transformation TransformationConfig
	Prizes         PrizeConfig
}

// Weights of the sub-scores in the composite total. Must sum to 1.
type Weights struct {
	Transformation float64 `validate:"gte=0,lte=1"`
	Adherence      float64 `validate:"gte=0,lte=1"`
	Engagement     float64 `validate:"gte=0,lte=1"`
}

type AdherenceConfig struct {
	// WorkoutWeight and MealWeight must sum to 1.
	WorkoutWeight      float64 `mapstructure:"workout_weight" validate:"gte=0,lte=1"`
	MealWeight         float64 `mapstructure:"meal_weight" validate:"gte=0,lte=1"`
	WorkoutDaysPerWeek int     `mapstructure:"workout_days_per_week" validate:"gt=0,lte=7"`
}

type EngagementConfig struct {
	CheckInPoints  float64 `mapstructure:"check_in_points" validate:"gt=0"`
	PhotoPoints    float64 `mapstructure:"photo_points" validate:"gte=0"`
	PostPoints     float64 `mapstructure:"post_points" validate:"gte=0"`
	ChallengeWeeks int     `mapstructure:"challenge_weeks" validate:"gt=0"`
	MaxPhotos      int     `mapstructure:"max_photos" validate:"gte=0"`
	MaxPosts       int     `mapstructure:"max_posts" validate:"gte=0"`
}

// MaxPossible is the number of engagement points a perfect participant earns over the whole challenge.
func (c EngagementConfig) MaxPossible() float64 {
	return float64(c.ChallengeWeeks*7)*c.CheckInPoints +
		float64(c.MaxPhotos)*c.PhotoPoints +
		float64(c.MaxPosts)*c.PostPoints
}

// TransformationConfig describes the ideal weekly weight change curves, in percent of the starting weight.
type TransformationConfig struct {
	CutRatePerWeek    float64 `mapstructure:"cut_rate_per_week" validate:"gt=0"`
	BulkRatePerWeek   float64 `mapstructure:"bulk_rate_per_week" validate:"gt=0"`
	Penalty           float64 `validate:"gt=0"`
	MaintainTolerance float64 `mapstructure:"maintain_tolerance" validate:"gte=0"`
	MaintainPenalty   float64 `mapstructure:"maintain_penalty" validate:"gt=0"`
}

// PrizeConfig holds the share of the pool paid to each category. The shares must not exceed 1.
type PrizeConfig struct {
	Grand           float64 `validate:"gte=0,lte=1"`
	Second          float64 `validate:"gte=0,lte=1"`
	Third           float64 `validate:"gte=0,lte=1"`
	MostImproved    float64 `mapstructure:"most_improved" validate:"gte=0,lte=1"`
	BestConsistency float64 `mapstructure:"best_consistency" validate:"gte=0,lte=1"`
	// Precision is the number of decimal places payouts are rounded to.
	Precision int32 `validate:"gte=0,lte=8"`
}

func (c PrizeConfig) sum() float64 {
	return c.Grand + c.Second + c.Third + c.MostImproved + c.BestConsistency
}

// DefaultConfig returns the rules of the standard six week challenge.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Transformation: 0.50,
			Adherence:      0.35,
			Engagement:     0.15,
		},
		Adherence: AdherenceConfig{
			WorkoutWeight:      0.5,
			MealWeight:         0.5,
			WorkoutDaysPerWeek: 5,
		},
		Engagement: EngagementConfig{
			CheckInPoints:  2,
			PhotoPoints:    5,
			PostPoints:     3,
			ChallengeWeeks: 6,
			MaxPhotos:      12,
			MaxPosts:       42,
		},
		Transformation: TransformationConfig{
			CutRatePerWeek:    1.5,
			BulkRatePerWeek:   0.75,
			Penalty:           10,
			MaintainTolerance: 2,
			MaintainPenalty:   20,
		},
		Prizes: PrizeConfig{
			Grand:           0.40,
			Second:          0.20,
			Third:           0.10,
			MostImproved:    0.15,
			BestConsistency: 0.15,
			Precision:       2,
		},
	}
}

var validate = validator.New()

// Validate checks field bounds and that every weight set sums to its required total.
func (c Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			return invalidConfig("%v", err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	w := c.Weights
	if s := w.Transformation + w.Adherence + w.Engagement; math.Abs(s-1) > sumTolerance {
		problems = append(problems, fmt.Sprintf("weights sum to %g, want 1", s))
	}

	a := c.Adherence
	if s := a.WorkoutWeight + a.MealWeight; math.Abs(s-1) > sumTolerance {
		problems = append(problems, fmt.Sprintf("adherence weights sum to %g, want 1", s))
	}

	if s := c.Prizes.sum(); s > 1+sumTolerance {
		problems = append(problems, fmt.Sprintf("prize ratios sum to %g, want at most 1", s))
	}

	if len(problems) > 0 {
		return invalidConfig("%s", strings.Join(problems, "; "))
	}

	return nil
}

func invalidConfig(format string, args ...any) error {
	return errors.New(errors.CodeInternal,
		errors.WithMessagef("invalid scoring config: "+format, args...),
		errors.WithCause(ErrInvalidConfig),
	)
}

func invalidInput(format string, args ...any) error {
	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef(format, args...),
		errors.WithCause(ErrInvalidInput),
	)
}
