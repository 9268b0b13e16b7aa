package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/fitscore/internal/scoring"
)

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		arrange func(c *scoring.Config)
		wantErr string
	}{
		"default config is valid": {
			arrange: func(*scoring.Config) {},
		},
		"weights within tolerance are valid": {
			arrange: func(c *scoring.Config) {
				c.Weights.Engagement += 1e-7
			},
		},
		"weights not summing to 1": {
			arrange: func(c *scoring.Config) {
				c.Weights.Transformation = 0.6
			},
			wantErr: "weights sum to",
		},
		"missing weights": {
			arrange: func(c *scoring.Config) {
				c.Weights = scoring.Weights{}
			},
			wantErr: "weights sum to 0",
		},
		"adherence weights not summing to 1": {
			arrange: func(c *scoring.Config) {
				c.Adherence.MealWeight = 0.4
			},
			wantErr: "adherence weights sum to",
		},
		"prize ratios above 1": {
			arrange: func(c *scoring.Config) {
				c.Prizes.Grand = 0.5
			},
			wantErr: "prize ratios sum to",
		},
		"negative weight": {
			arrange: func(c *scoring.Config) {
				c.Weights.Engagement = -0.15
				c.Weights.Transformation = 0.8
			},
			wantErr: "Config.Weights.Engagement",
		},
		"missing engagement points": {
			arrange: func(c *scoring.Config) {
				c.Engagement.CheckInPoints = 0
			},
			wantErr: "Config.Engagement.CheckInPoints",
		},
		"missing challenge length": {
			arrange: func(c *scoring.Config) {
				c.Engagement.ChallengeWeeks = 0
			},
			wantErr: "Config.Engagement.ChallengeWeeks",
		},
		"missing workout days": {
			arrange: func(c *scoring.Config) {
				c.Adherence.WorkoutDaysPerWeek = 0
			},
			wantErr: "Config.Adherence.WorkoutDaysPerWeek",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := scoring.DefaultConfig()
			tt.arrange(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, scoring.ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)

			_, err = scoring.NewEngine(c)
			require.ErrorIs(t, err, scoring.ErrInvalidConfig, "engine must refuse an invalid config")
		})
	}
}
