// Package segment cuts a raw capture into clean utterances separated by silence.
package segment

import (
	"errors"
	"fmt"
	"math"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/core"
)

// Analysis constants.
const (
	PRE_EMPHASIS_COEF = 0.97

	TRIM_TOP_DB       = 20.0
	TRIM_FRAME_LENGTH = 512
	TRIM_HOP_LENGTH   = 128

	SPLIT_FRAME_LENGTH = 1024
	SPLIT_HOP_LENGTH   = 256

	DEFAULT_SILENCE_THRESHOLD_DB   = 35.0
	DEFAULT_MIN_SILENCE_DURATION_S = 0.2
)

var (
	// ErrNoSegments is returned when a capture holds no usable utterance.
	ErrNoSegments = errors.New("no usable segments in recording")
	// ErrInvalidConfig is returned for a non-positive minimum silence or a zero threshold.
	ErrInvalidConfig = errors.New("invalid segmenter configuration")
)

// Config controls how silence is detected.
type Config struct {
	// SilenceThresholdDB is how far below the loudest frame a frame must fall to be
	// silent. The sign is ignored, so -35 and 35 are equivalent.
	SilenceThresholdDB float64
	// MinSilenceDuration is the shortest pause, in seconds, that separates two
	// utterances. It is also the shortest utterance kept.
	MinSilenceDuration float64
}

// DefaultConfig returns the thresholds used for dataset recording.
func DefaultConfig() Config {
	return Config{
		SilenceThresholdDB: DEFAULT_SILENCE_THRESHOLD_DB,
		MinSilenceDuration: DEFAULT_MIN_SILENCE_DURATION_S,
	}
}

// Segment is one utterance. Start and End are seconds into the original capture.
type Segment struct {
	Audio audio.Buffer
	Start float64
	End   float64
}

// Result holds the utterances of one capture in time order.
type Result struct {
	Segments   []Segment
	SampleRate int
}

// Segmenter splits captures on silence.
type Segmenter struct {
	config Config
	log    *logger.Logger
}

type interval struct {
	start int
	end   int
}

// New validates cfg and returns a Segmenter.
func New(cfg Config, log *logger.Logger) (*Segmenter, error) {
	if cfg.MinSilenceDuration <= 0 || math.IsNaN(cfg.MinSilenceDuration) {
		return nil, fmt.Errorf("%w: min silence duration %v", ErrInvalidConfig, cfg.MinSilenceDuration)
	}

	if cfg.SilenceThresholdDB == 0 || math.IsNaN(cfg.SilenceThresholdDB) {
		return nil, fmt.Errorf("%w: silence threshold %v dB", ErrInvalidConfig, cfg.SilenceThresholdDB)
	}

	return &Segmenter{config: cfg, log: log}, nil
}

// Improve applies pre-emphasis, removes the DC offset and trims quiet edges.
// It returns the processed buffer and the index in buf of its first sample.
func (s *Segmenter) Improve(buf audio.Buffer) (audio.Buffer, int) {
	emphasized := audio.PreEmphasis(buf, PRE_EMPHASIS_COEF)
	centered := audio.RemoveDC(emphasized)

	return audio.TrimSilence(centered, TRIM_TOP_DB, TRIM_FRAME_LENGTH, TRIM_HOP_LENGTH)
}

// Segment improves buf and splits it on pauses of at least MinSilenceDuration.
func (s *Segmenter) Segment(buf audio.Buffer) (Result, error) {
	result := Result{Segments: nil, SampleRate: buf.SampleRate()}

	improved, offset := s.Improve(buf)
	if improved.IsEmpty() {
		return result, fmt.Errorf("%w: capture is silent", ErrNoSegments)
	}

	intervals := s.intervals(improved)
	if len(intervals) == 0 {
		result.Segments = []Segment{s.newSegment(improved, offset, 0, improved.Len())}

		return result, nil
	}

	minSamples := audio.SecondsToSamples(s.config.MinSilenceDuration, buf.SampleRate())

	for _, span := range intervals {
		if span.end-span.start < minSamples {
			s.log.Info("Dropping %d-sample utterance shorter than %.2fs", span.end-span.start, s.config.MinSilenceDuration)

			continue
		}

		cleaned, _ := s.Improve(improved.Slice(span.start, span.end))
		if cleaned.IsEmpty() {
			continue
		}

		segment := s.newSegment(cleaned, offset, span.start, span.end)
		result.Segments = append(result.Segments, segment)
	}

	if len(result.Segments) == 0 {
		return result, fmt.Errorf("%w: %d candidates were too short", ErrNoSegments, len(intervals))
	}

	return result, nil
}

// SaveSegment runs the quality pass once more and writes the segment to path.
// Nothing is written and false is returned when the segment is empty afterwards.
func (s *Segmenter) SaveSegment(segment audio.Buffer, encoder core.Encoder, path string) (bool, error) {
	cleaned, _ := s.Improve(segment)
	if cleaned.IsEmpty() {
		s.log.Warn("Segment for %s is empty after processing, not saved", path)

		return false, nil
	}

	err := encoder.Encode(cleaned, path)
	if err != nil {
		return false, fmt.Errorf("failed to save segment %s: %w", path, err)
	}

	return true, nil
}

func (s *Segmenter) newSegment(buf audio.Buffer, offset, start, end int) Segment {
	rate := float64(buf.SampleRate())

	return Segment{
		Audio: buf,
		Start: float64(offset+start) / rate,
		End:   float64(offset+end) / rate,
	}
}

// intervals returns the audible spans of buf with pauses shorter than the minimum
// silence bridged. Frames locate the spans; their edges are then moved to the first
// and last audible sample so a pause is measured at sample resolution.
func (s *Segmenter) intervals(buf audio.Buffer) []interval {
	rms := audio.FrameRMS(buf, SPLIT_FRAME_LENGTH, SPLIT_HOP_LENGTH)
	marks := audio.NonSilentFrames(rms, s.config.SilenceThresholdDB)
	level := audibleLevel(rms, s.config.SilenceThresholdDB)
	minGap := audio.SecondsToSamples(s.config.MinSilenceDuration, buf.SampleRate())

	var spans []interval

	for frame := 0; frame < len(marks); {
		if !marks[frame] {
			frame++

			continue
		}

		first := frame
		for frame < len(marks) && marks[frame] {
			frame++
		}

		start, _ := audio.FrameBounds(first, SPLIT_FRAME_LENGTH, SPLIT_HOP_LENGTH, buf.Len())
		lastStart, end := audio.FrameBounds(frame-1, SPLIT_FRAME_LENGTH, SPLIT_HOP_LENGTH, buf.Len())

		start = firstAudible(buf, start, end, level)
		end = lastAudible(buf, lastStart, end, level)

		last := len(spans) - 1
		if last >= 0 && start-spans[last].end < minGap {
			spans[last].end = max(spans[last].end, end)

			continue
		}

		spans = append(spans, interval{start: start, end: end})
	}

	return spans
}

// audibleLevel is the sample amplitude matching the silence threshold below the
// loudest frame.
func audibleLevel(rms []float64, thresholdDB float64) float64 {
	reference := 0.0
	for _, value := range rms {
		reference = math.Max(reference, value)
	}

	return reference * math.Pow(10, -math.Abs(thresholdDB)/20)
}

// firstAudible returns the index of the first sample in [from, to) louder than level,
// or from when there is none.
func firstAudible(buf audio.Buffer, from, to int, level float64) int {
	for i := from; i < to; i++ {
		if math.Abs(buf.At(i)) > level {
			return i
		}
	}

	return from
}

// lastAudible returns one past the last sample in [from, to) louder than level,
// or to when there is none.
func lastAudible(buf audio.Buffer, from, to int, level float64) int {
	for i := to - 1; i >= from; i-- {
		if math.Abs(buf.At(i)) > level {
			return i + 1
		}
	}

	return to
}
