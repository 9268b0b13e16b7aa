package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/victornm/fitscore/internal/domain"
)

// Distribute splits the prize pool by the configured ratios.
//
// The awarded amount is the pool times the ratio sum, rounded to the configured precision half away
// from zero and never more than the pool. Every category except the grand prize is truncated to
// the precision, and the grand prize takes the rest of the awarded amount. The truncated shares
// never add up to more than the awarded amount, so no payout is negative.
func (e *Engine) Distribute(prizePool decimal.Decimal) (domain.PrizeDistribution, error) {
	if prizePool.IsNegative() {
		return domain.PrizeDistribution{}, invalidInput("prize pool must not be negative: %s", prizePool)
	}

	c := e.c.Prizes
	share := func(ratio float64) decimal.Decimal {
		return prizePool.Mul(decimal.NewFromFloat(ratio)).Truncate(c.Precision)
	}

	d := domain.PrizeDistribution{
		Second:          share(c.Second),
		Third:           share(c.Third),
		MostImproved:    share(c.MostImproved),
		BestConsistency: share(c.BestConsistency),
	}

	awarded := prizePool.Mul(
		decimal.NewFromFloat(c.Grand).
			Add(decimal.NewFromFloat(c.Second)).
			Add(decimal.NewFromFloat(c.Third)).
			Add(decimal.NewFromFloat(c.MostImproved)).
			Add(decimal.NewFromFloat(c.BestConsistency)),
	).Round(c.Precision)
	if awarded.GreaterThan(prizePool) {
		// Ratios within tolerance of 1 must never pay out more than the pool.
		awarded = prizePool.Truncate(c.Precision)
	}

	d.Grand = awarded.Sub(decimal.Sum(d.Second, d.Third, d.MostImproved, d.BestConsistency))
	d.Margin = prizePool.Sub(awarded)

	return d, nil
}
