package capture

import "math"

// RMS returns the root mean square of the samples, clamped to [0,1]
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms > 1 {
		rms = 1
	}
	return rms
}
