// Package audio provides the mono sample buffer used throughout the synthesizer,
// the arithmetic defined on it (concatenation, silence, crossfade), the signal
// primitives used by the segmenter, and the WAV codec.
package audio

import (
	"errors"
	"fmt"
)

// Constants for default audio settings.
const (
	DEFAULT_SAMPLE_RATE = 44100 // Sample rate used by the recording tools.
	DEFAULT_BIT_DEPTH   = 16    // Bit depth of every file the codec writes.
	DEFAULT_CHANNELS    = 1     // Units are stored as mono.
)

// Constants for supported PCM bit depths.
const (
	BIT_DEPTH_16 = 16
	BIT_DEPTH_24 = 24
	BIT_DEPTH_32 = 32
)

// Constants for format validation limits.
const (
	MAX_SAMPLE_RATE = 192000
	MAX_CHANNELS    = 8
	PCM_FORMAT_TAG  = 1
)

// Constants for error messages and formats.
const (
	ERR_FMT_SAMPLE_RATE_RANGE = "%w: sample rate must be between 1 and %d Hz, got %d"
	ERR_FMT_BIT_DEPTH_VALUES  = "%w: bit depth must be 16, 24, or 32, got %d"
	ERR_FMT_CHANNELS_RANGE    = "%w: channels must be between 1 and %d, got %d"
	ERR_FMT_FORMAT_TAG        = "%w: only PCM (format tag 1) is supported, got %d"
)

// Common errors for the audio package.
var (
	// ErrInvalidFormat is returned when a file or buffer has unsupported format parameters.
	ErrInvalidFormat = errors.New("invalid audio format")
	// ErrSampleRateMismatch is returned when two buffers with different rates are combined.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
)

// Format describes the PCM layout of a stored audio file.
type Format struct {
	SampleRate int `json:"sampleRate"`
	BitDepth   int `json:"bitDepth"`
	Channels   int `json:"channels"`
}

// NewDefaultFormat returns the layout the codec writes for the given sample rate.
func NewDefaultFormat(sampleRate int) Format {
	return Format{
		SampleRate: sampleRate,
		BitDepth:   DEFAULT_BIT_DEPTH,
		Channels:   DEFAULT_CHANNELS,
	}
}

// Validate checks that the format is one the codec can read or write.
func (f Format) Validate() error {
	sampleRateErr := validateSampleRate(f.SampleRate)
	if sampleRateErr != nil {
		return sampleRateErr
	}

	bitDepthErr := validateBitDepth(f.BitDepth)
	if bitDepthErr != nil {
		return bitDepthErr
	}

	channelsErr := validateChannels(f.Channels)
	if channelsErr != nil {
		return channelsErr
	}

	return nil
}

// fullScale is the magnitude of the largest sample at the format's bit depth.
func (f Format) fullScale() float64 {
	return float64(int64(1) << (f.BitDepth - 1))
}

//
// Validation Helpers
//

func validateSampleRate(sampleRate int) error {
	if sampleRate <= 0 || sampleRate > MAX_SAMPLE_RATE {
		return fmt.Errorf(ERR_FMT_SAMPLE_RATE_RANGE, ErrInvalidFormat, MAX_SAMPLE_RATE, sampleRate)
	}

	return nil
}

func validateBitDepth(bitDepth int) error {
	switch bitDepth {
	case BIT_DEPTH_16, BIT_DEPTH_24, BIT_DEPTH_32:
		return nil
	default:
		return fmt.Errorf(ERR_FMT_BIT_DEPTH_VALUES, ErrInvalidFormat, bitDepth)
	}
}

func validateChannels(channels int) error {
	if channels <= 0 || channels > MAX_CHANNELS {
		return fmt.Errorf(ERR_FMT_CHANNELS_RANGE, ErrInvalidFormat, MAX_CHANNELS, channels)
	}

	return nil
}

func validateFormatTag(tag int) error {
	if tag != PCM_FORMAT_TAG {
		return fmt.Errorf(ERR_FMT_FORMAT_TAG, ErrInvalidFormat, tag)
	}

	return nil
}
