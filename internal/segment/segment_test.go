package segment_test

import (
	"errors"
	"math"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 16000

var errMockEncode = errors.New("mock encode error")

type mockEncoder struct {
	shouldFail bool
	paths      []string
	buffers    []audio.Buffer
}

func (m *mockEncoder) Encode(buffer audio.Buffer, path string) error {
	if m.shouldFail {
		return errMockEncode
	}

	m.paths = append(m.paths, path)
	m.buffers = append(m.buffers, buffer)

	return nil
}

func newSegmenter(t *testing.T) *segment.Segmenter {
	t.Helper()

	log, err := logger.New(t.TempDir(), "segment-test.log")
	require.NoError(t, err)

	segmenter, err := segment.New(segment.DefaultConfig(), log)
	require.NoError(t, err)

	return segmenter
}

func tone(seconds float64) []float64 {
	return toneAt(seconds, testRate)
}

func toneAt(seconds float64, rate int) []float64 {
	samples := make([]float64, audio.SecondsToSamples(seconds, rate))
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}

	return samples
}

func pause(seconds float64) []float64 {
	return pauseAt(seconds, testRate)
}

func pauseAt(seconds float64, rate int) []float64 {
	return make([]float64, audio.SecondsToSamples(seconds, rate))
}

func join(parts ...[]float64) audio.Buffer {
	return joinAt(testRate, parts...)
}

func joinAt(rate int, parts ...[]float64) audio.Buffer {
	var samples []float64
	for _, part := range parts {
		samples = append(samples, part...)
	}

	return audio.NewBuffer(samples, rate)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	log, err := logger.New(t.TempDir(), "segment-test.log")
	require.NoError(t, err)

	_, err = segment.New(segment.Config{SilenceThresholdDB: 35, MinSilenceDuration: 0}, log)
	require.ErrorIs(t, err, segment.ErrInvalidConfig)

	_, err = segment.New(segment.Config{SilenceThresholdDB: 0, MinSilenceDuration: 0.2}, log)
	require.ErrorIs(t, err, segment.ErrInvalidConfig)

	_, err = segment.New(segment.Config{SilenceThresholdDB: -35, MinSilenceDuration: 0.2}, log)
	require.NoError(t, err)
}

func TestSegment_ContinuousSpeech(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	result, err := segmenter.Segment(join(tone(0.8)))
	require.NoError(t, err)

	require.Len(t, result.Segments, 1)
	assert.Equal(t, testRate, result.SampleRate)
	assert.InDelta(t, 0.0, result.Segments[0].Start, 0.05)
	assert.InDelta(t, 0.8, result.Segments[0].End, 0.05)
	assert.Equal(t, testRate, result.Segments[0].Audio.SampleRate())
}

func TestSegment_TwoUtterances(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	result, err := segmenter.Segment(join(tone(0.5), pause(0.5), tone(0.5)))
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)

	first, second := result.Segments[0], result.Segments[1]
	assert.Less(t, first.End, second.Start)
	assert.InDelta(t, 0.0, first.Start, 0.05)
	assert.InDelta(t, 1.0, second.Start, 0.1)
	assert.InDelta(t, 1.5, second.End, 0.05)
}

func TestSegment_ShortPauseIsBridged(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	result, err := segmenter.Segment(join(tone(0.5), pause(0.05), tone(0.5)))
	require.NoError(t, err)

	require.Len(t, result.Segments, 1)
	assert.InDelta(t, 1.05, result.Segments[0].End-result.Segments[0].Start, 0.05)
}

func TestSegment_PauseAtMinimumSplits(t *testing.T) {
	t.Parallel()

	minSilence := segment.DEFAULT_MIN_SILENCE_DURATION_S

	testCases := []struct {
		name         string
		rate         int
		gap          float64
		wantSegments int
	}{
		{name: "16kHz below minimum", rate: 16000, gap: minSilence - 0.05, wantSegments: 1},
		{name: "16kHz at minimum", rate: 16000, gap: minSilence, wantSegments: 2},
		{name: "16kHz just above minimum", rate: 16000, gap: minSilence + 0.01, wantSegments: 2},
		{name: "16kHz well above minimum", rate: 16000, gap: minSilence * 1.5, wantSegments: 2},
		{name: "44.1kHz below minimum", rate: 44100, gap: minSilence - 0.01, wantSegments: 1},
		{name: "44.1kHz at minimum", rate: 44100, gap: minSilence, wantSegments: 2},
		{name: "44.1kHz just above minimum", rate: 44100, gap: minSilence + 0.02, wantSegments: 2},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			segmenter := newSegmenter(t)
			capture := joinAt(testCase.rate,
				toneAt(0.5, testCase.rate), pauseAt(testCase.gap, testCase.rate), toneAt(0.5, testCase.rate))

			result, err := segmenter.Segment(capture)
			require.NoError(t, err)
			require.Len(t, result.Segments, testCase.wantSegments)

			if testCase.wantSegments == 2 {
				assert.InDelta(t, testCase.gap, result.Segments[1].Start-result.Segments[0].End, 0.01)
			}
		})
	}
}

func TestSegment_BurstLengthMeasuredPerSample(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	_, err := segmenter.Segment(join(pause(0.5), tone(0.19), pause(0.5)))
	require.ErrorIs(t, err, segment.ErrNoSegments)

	result, err := segmenter.Segment(join(pause(0.5), tone(0.21), pause(0.5)))
	require.NoError(t, err)
	require.Len(t, result.Segments, 1)
	assert.InDelta(t, 0.21, result.Segments[0].End-result.Segments[0].Start, 0.01)
}

func TestSegment_Timestamps_IncludeLeadingSilence(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	result, err := segmenter.Segment(join(pause(1.0), tone(0.5), pause(1.0)))
	require.NoError(t, err)

	require.Len(t, result.Segments, 1)
	assert.InDelta(t, 1.0, result.Segments[0].Start, 0.05)
	assert.InDelta(t, 1.5, result.Segments[0].End, 0.05)
}

func TestSegment_Silence(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	_, err := segmenter.Segment(join(pause(1.0)))
	require.ErrorIs(t, err, segment.ErrNoSegments)
}

func TestSegment_OnlyShortBurst(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	_, err := segmenter.Segment(join(pause(0.5), tone(0.05), pause(0.5)))
	require.ErrorIs(t, err, segment.ErrNoSegments)
}

func TestImprove_TrimsEdges(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)

	improved, offset := segmenter.Improve(join(pause(0.5), tone(0.5), pause(0.5)))

	assert.InDelta(t, 0.5*testRate, float64(offset), 512)
	assert.InDelta(t, 0.5*testRate, float64(improved.Len()), 1024)
}

func TestSaveSegment(t *testing.T) {
	t.Parallel()

	segmenter := newSegmenter(t)
	encoder := &mockEncoder{shouldFail: false, paths: nil, buffers: nil}

	saved, err := segmenter.SaveSegment(join(tone(0.3)), encoder, "unit/recording.wav")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, []string{"unit/recording.wav"}, encoder.paths)
	assert.False(t, encoder.buffers[0].IsEmpty())

	saved, err = segmenter.SaveSegment(join(pause(0.3)), encoder, "unit/silent.wav")
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Len(t, encoder.paths, 1)

	encoder.shouldFail = true
	saved, err = segmenter.SaveSegment(join(tone(0.3)), encoder, "unit/recording.wav")
	require.ErrorIs(t, err, errMockEncode)
	assert.False(t, saved)
}
