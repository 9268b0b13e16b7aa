package scoring

import (
	"math"

	"github.com/victornm/fitscore/internal/domain"
)

// Engagement scores voluntary activity against the most points attainable in the challenge, from 0 to 100.
func (e *Engine) Engagement(checkIns []domain.DailyCheckIn, photosUploaded, communityPosts int) (float64, error) {
	if photosUploaded < 0 {
		return 0, invalidInput("photos uploaded must not be negative: %d", photosUploaded)
	}
	if communityPosts < 0 {
		return 0, invalidInput("community posts must not be negative: %d", communityPosts)
	}

	c := e.c.Engagement
	earned := float64(len(checkIns))*c.CheckInPoints +
		float64(photosUploaded)*c.PhotoPoints +
		float64(communityPosts)*c.PostPoints

	return math.Min(100, earned/c.MaxPossible()*100), nil
}
