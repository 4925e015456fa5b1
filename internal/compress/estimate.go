package compress

import (
	"math"

	"github.com/spherical/pdf-compressor/internal/domain"
)

// Estimator constants. The model is a display-only heuristic and is not
// derived from the real encoder.
const (
	estimateBaseRatio      = 0.6
	estimateReferenceScale = 2.0
	estimateQualityExp     = 0.7
	estimateMinPercent     = 5
)

// Estimate predicts the output size range for an input of originalSize bytes.
func Estimate(originalSize int64, settings domain.CompressionSettings) domain.SizeEstimate {
	settings = settings.Normalize()
	size := float64(originalSize)

	ratio := EstimateRatio(settings)

	percent := domain.RoundHalfUp((1 - ratio) * 100)
	if percent < estimateMinPercent {
		percent = estimateMinPercent
	}

	return domain.SizeEstimate{
		Min:     math.Min(size*ratio*0.7, size*0.9),
		Max:     math.Min(size*ratio*1.3, size*1.1),
		Percent: percent,
	}
}

// EstimateRatio is the expected compressed/original size ratio.
func EstimateRatio(settings domain.CompressionSettings) float64 {
	scaleFactor := math.Pow(settings.Scale/estimateReferenceScale, 2)
	qualityFactor := math.Pow(float64(settings.Quality)/100, estimateQualityExp)
	return estimateBaseRatio * scaleFactor * qualityFactor
}
