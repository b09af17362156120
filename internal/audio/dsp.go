package audio

import "math"

// amplitudeFloor keeps log10 finite for silent frames.
const amplitudeFloor = 1e-10

// PreEmphasis applies the first-order high-pass filter y[n] = x[n] - coef*x[n-1].
func PreEmphasis(b Buffer, coef float64) Buffer {
	out := make([]float64, len(b.samples))

	for i, sample := range b.samples {
		if i == 0 {
			out[i] = sample

			continue
		}

		out[i] = sample - coef*b.samples[i-1]
	}

	return wrap(out, b.sampleRate)
}

// RemoveDC subtracts the mean sample value.
func RemoveDC(b Buffer) Buffer {
	if b.IsEmpty() {
		return b
	}

	mean := 0.0
	for _, sample := range b.samples {
		mean += sample
	}

	mean /= float64(len(b.samples))

	out := make([]float64, len(b.samples))
	for i, sample := range b.samples {
		out[i] = sample - mean
	}

	return wrap(out, b.sampleRate)
}

// FrameCount returns how many analysis frames start inside a buffer of total samples.
func FrameCount(total, hopLength int) int {
	if total <= 0 || hopLength <= 0 {
		return 0
	}

	return (total + hopLength - 1) / hopLength
}

// FrameBounds returns the sample range [start, end) covered by frame index.
func FrameBounds(frame, frameLength, hopLength, total int) (int, int) {
	start := frame * hopLength
	end := min(total, start+frameLength)

	return start, end
}

// FrameRMS returns the root-mean-square amplitude of every analysis frame.
// Frame i covers samples [i*hopLength, i*hopLength+frameLength), clipped to the buffer.
func FrameRMS(b Buffer, frameLength, hopLength int) []float64 {
	frames := FrameCount(len(b.samples), hopLength)
	rms := make([]float64, frames)

	for frame := range frames {
		start, end := FrameBounds(frame, frameLength, hopLength, len(b.samples))

		energy := 0.0
		for _, sample := range b.samples[start:end] {
			energy += sample * sample
		}

		rms[frame] = math.Sqrt(energy / float64(end-start))
	}

	return rms
}

// NonSilentFrames marks frames whose level is within topDB decibels of the loudest
// frame. A buffer whose loudest frame is zero has no non-silent frames.
func NonSilentFrames(rms []float64, topDB float64) []bool {
	reference := 0.0
	for _, value := range rms {
		reference = math.Max(reference, value)
	}

	marks := make([]bool, len(rms))
	if reference <= 0 {
		return marks
	}

	threshold := -math.Abs(topDB)

	for i, value := range rms {
		marks[i] = ToDecibels(value, reference) > threshold
	}

	return marks
}

// ToDecibels converts an amplitude to decibels relative to reference.
func ToDecibels(amplitude, reference float64) float64 {
	return 20 * math.Log10(math.Max(amplitude, amplitudeFloor)/math.Max(reference, amplitudeFloor))
}

// TrimSilence drops leading and trailing frames quieter than topDB below the loudest
// frame. It returns the trimmed buffer and the index of its first sample in b.
// A buffer with no audible frame trims to empty.
func TrimSilence(b Buffer, topDB float64, frameLength, hopLength int) (Buffer, int) {
	marks := NonSilentFrames(FrameRMS(b, frameLength, hopLength), topDB)

	first, last := -1, -1

	for i, audible := range marks {
		if !audible {
			continue
		}

		if first < 0 {
			first = i
		}

		last = i
	}

	if first < 0 {
		return wrap(nil, b.sampleRate), 0
	}

	start, _ := FrameBounds(first, frameLength, hopLength, len(b.samples))
	_, end := FrameBounds(last, frameLength, hopLength, len(b.samples))

	return b.Slice(start, end), start
}
