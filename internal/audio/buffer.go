package audio

import (
	"fmt"
	"math"
)

// Buffer is a mono sequence of samples at a fixed sample rate.
//
// A Buffer is a value: every operation returns a new Buffer and never writes to the
// samples of its inputs. The zero Buffer is empty and has no sample rate.
type Buffer struct {
	samples    []float64
	sampleRate int
}

// NewBuffer copies samples into a new Buffer at the given rate.
func NewBuffer(samples []float64, sampleRate int) Buffer {
	owned := make([]float64, len(samples))
	copy(owned, samples)

	return Buffer{samples: owned, sampleRate: sampleRate}
}

// wrap takes ownership of samples without copying. Callers must not keep a reference.
func wrap(samples []float64, sampleRate int) Buffer {
	return Buffer{samples: samples, sampleRate: sampleRate}
}

// Silence returns a buffer of zero samples lasting the given number of seconds.
func Silence(seconds float64, sampleRate int) Buffer {
	count := SecondsToSamples(seconds, sampleRate)
	if count < 0 {
		count = 0
	}

	return wrap(make([]float64, count), sampleRate)
}

// SecondsToSamples converts a duration to the nearest whole number of samples.
func SecondsToSamples(seconds float64, sampleRate int) int {
	return int(math.Round(seconds * float64(sampleRate)))
}

// SampleRate returns the buffer's rate in Hz.
func (b Buffer) SampleRate() int {
	return b.sampleRate
}

// Len returns the number of samples.
func (b Buffer) Len() int {
	return len(b.samples)
}

// IsEmpty reports whether the buffer holds no samples.
func (b Buffer) IsEmpty() bool {
	return len(b.samples) == 0
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.sampleRate <= 0 {
		return 0
	}

	return float64(len(b.samples)) / float64(b.sampleRate)
}

// At returns the sample at index i.
func (b Buffer) At(i int) float64 {
	return b.samples[i]
}

// Samples returns a copy of the buffer's samples.
func (b Buffer) Samples() []float64 {
	out := make([]float64, len(b.samples))
	copy(out, b.samples)

	return out
}

// Slice returns a copy of samples [start, end) at the same rate.
// Bounds are clamped to the buffer.
func (b Buffer) Slice(start, end int) Buffer {
	start = max(0, min(start, len(b.samples)))
	end = max(start, min(end, len(b.samples)))

	return NewBuffer(b.samples[start:end], b.sampleRate)
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() float64 {
	peak := 0.0

	for _, sample := range b.samples {
		peak = math.Max(peak, math.Abs(sample))
	}

	return peak
}

// Concat joins buffers in order. Buffers without a sample rate (the zero Buffer) are
// accepted as empty; any two rated buffers must share the same rate.
func Concat(buffers ...Buffer) (Buffer, error) {
	sampleRate, total, err := commonRate(buffers)
	if err != nil {
		return Buffer{}, err
	}

	out := make([]float64, 0, total)
	for _, buffer := range buffers {
		out = append(out, buffer.samples...)
	}

	return wrap(out, sampleRate), nil
}

func commonRate(buffers []Buffer) (int, int, error) {
	sampleRate := 0
	total := 0

	for _, buffer := range buffers {
		total += len(buffer.samples)

		if buffer.sampleRate == 0 {
			continue
		}

		if sampleRate == 0 {
			sampleRate = buffer.sampleRate

			continue
		}

		if buffer.sampleRate != sampleRate {
			return 0, 0, fmt.Errorf("%w: %d Hz and %d Hz", ErrSampleRateMismatch, sampleRate, buffer.sampleRate)
		}
	}

	return sampleRate, total, nil
}
