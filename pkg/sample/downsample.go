package sample

// Downsample reduces samples to at most maxPoints for display.
// Uses simple decimation; the first and the newest sample are always kept so
// the drawn series spans the whole buffer.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// A maxPoints below 2 disables decimation.
func Downsample(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if maxPoints < 2 || len(samples) <= maxPoints {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		result := make([]Sample, len(samples))
		copy(result, samples)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	// Spread maxPoints-1 picks over the range, then pin the newest sample.
	step := float64(len(samples)-1) / float64(maxPoints-1)
	for i := range maxPoints - 1 {
		dst = append(dst, samples[int(float64(i)*step)])
	}
	dst = append(dst, samples[len(samples)-1])

	return dst
}
