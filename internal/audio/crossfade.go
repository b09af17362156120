package audio

import "fmt"

// OverlapSamples returns the number of samples two buffers of the given lengths share
// when crossfaded over overlapSeconds. An overlap longer than either buffer shrinks to
// half of the shorter one.
func OverlapSamples(overlapSeconds float64, sampleRate, firstLen, secondLen int) int {
	overlap := SecondsToSamples(overlapSeconds, sampleRate)
	if overlap < 0 {
		return 0
	}

	if overlap > firstLen || overlap > secondLen {
		overlap = min(firstLen, secondLen) / 2
	}

	return overlap
}

// Crossfade joins first and second, blending the tail of first into the head of second
// with linear ramps over overlapSeconds. The result holds
// first.Len() + second.Len() - OverlapSamples(...) samples.
// If either buffer is empty the result is their plain concatenation.
func Crossfade(first, second Buffer, overlapSeconds float64) (Buffer, error) {
	if first.IsEmpty() || second.IsEmpty() {
		return Concat(first, second)
	}

	if first.sampleRate != second.sampleRate {
		return Buffer{}, fmt.Errorf(
			"%w: cannot crossfade %d Hz into %d Hz",
			ErrSampleRateMismatch,
			first.sampleRate,
			second.sampleRate,
		)
	}

	overlap := OverlapSamples(overlapSeconds, first.sampleRate, first.Len(), second.Len())
	head := first.Len() - overlap

	out := make([]float64, 0, first.Len()+second.Len()-overlap)
	out = append(out, first.samples[:head]...)

	for i := range overlap {
		fadeOut, fadeIn := rampGains(i, overlap)
		out = append(out, first.samples[head+i]*fadeOut+second.samples[i]*fadeIn)
	}

	out = append(out, second.samples[overlap:]...)

	return wrap(out, first.sampleRate), nil
}

// rampGains returns the descending and ascending gains at position i of an n-point
// linear ramp from 0 to 1 inclusive.
func rampGains(i, n int) (float64, float64) {
	if n <= 1 {
		return 1, 0
	}

	rising := float64(i) / float64(n-1)

	return 1 - rising, rising
}
