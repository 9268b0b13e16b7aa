// Package scoring computes challenge scores and prize payouts.
//
// Every method of Engine is a pure function of its arguments and the Config the Engine was built
// with, so a single Engine can be shared by any number of goroutines.
package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

type Engine struct {
	c Config
}

// NewEngine validates c and returns an Engine bound to it.
func NewEngine(c Config) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &Engine{c: c}, nil
}

// Config returns a copy of the rules the engine scores with.
func (e *Engine) Config() Config {
	return e.c
}

// clamp limits v to [lo, hi] and never returns negative zero.
func clamp(v, lo, hi float64) float64 {
	v = math.Max(lo, math.Min(hi, v))
	if v == 0 {
		return 0
	}
	return v
}

// round1 rounds v to one decimal place, half away from zero.
func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
