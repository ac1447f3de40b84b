package engine

import (
	"github.com/avalia-edu/diagnostic-service/internal/models"
)

// Bucket maps a raw percentage to its heat-map color. nil (not
// evaluated / absent) is gray. Floors are inclusive on the higher
// bucket: exactly 70 is green, exactly 40 is yellow.
//
// The boundaries match the diagnostic tier ceilings but are applied to
// raw percentages, not tiers, so they are configured separately. Note
// the inclusivity differs at the exact boundaries: the scorer's 40/70
// are inclusive on the lower tier (40.0 -> A, 70.0 -> B) while these
// floors are inclusive on the higher bucket (40.0 -> yellow,
// 70.0 -> green), preserving the source behavior on both sides.
func Bucket(cfg Config, percentage *float64) models.HeatBucket {
	if percentage == nil {
		return models.BucketGray
	}
	switch {
	case *percentage >= cfg.GreenFloor:
		return models.BucketGreen
	case *percentage >= cfg.YellowFloor:
		return models.BucketYellow
	default:
		return models.BucketRed
	}
}
