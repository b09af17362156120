package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFilePermissions = 0o600
	tempWAVPattern     = "unit-tts-*.wav"
)

// ErrNotWAV is returned when a file does not carry a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a valid WAV file")

// WAVCodec reads PCM WAV files of any supported depth into mono buffers and writes
// buffers as 16-bit mono PCM.
type WAVCodec struct {
	bitDepth int
}

// NewWAVCodec creates a codec that writes DEFAULT_BIT_DEPTH files.
func NewWAVCodec() *WAVCodec {
	return &WAVCodec{bitDepth: DEFAULT_BIT_DEPTH}
}

// Decode reads the WAV file at path.
func (c *WAVCodec) Decode(path string) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	buffer, err := c.DecodeReader(file)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return buffer, nil
}

// DecodeReader reads a WAV stream. Multichannel audio is downmixed by averaging.
func (c *WAVCodec) DecodeReader(reader io.ReadSeeker) (Buffer, error) {
	decoder := wav.NewDecoder(reader)
	if !decoder.IsValidFile() {
		return Buffer{}, ErrNotWAV
	}

	tagErr := validateFormatTag(int(decoder.WavAudioFormat))
	if tagErr != nil {
		return Buffer{}, tagErr
	}

	format := Format{
		SampleRate: int(decoder.SampleRate),
		BitDepth:   int(decoder.BitDepth),
		Channels:   int(decoder.NumChans),
	}

	formatErr := format.Validate()
	if formatErr != nil {
		return Buffer{}, formatErr
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to read PCM data: %w", err)
	}

	return wrap(downmix(pcm.Data, format.Channels, format.fullScale()), format.SampleRate), nil
}

func downmix(data []int, channels int, scale float64) []float64 {
	frames := len(data) / channels
	out := make([]float64, frames)

	for frame := range frames {
		sum := 0
		for channel := range channels {
			sum += data[frame*channels+channel]
		}

		out[frame] = float64(sum) / float64(channels) / scale
	}

	return out
}

// Encode writes the buffer to path, replacing any existing file.
func (c *WAVCodec) Encode(buffer Buffer, path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, wavFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	encodeErr := c.EncodeTo(file, buffer)
	closeErr := file.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode %s: %w", path, encodeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", path, closeErr)
	}

	return nil
}

// EncodeTo writes the buffer as a WAV stream. Samples are clamped to [-1, 1].
func (c *WAVCodec) EncodeTo(writer io.WriteSeeker, buffer Buffer) error {
	format := NewDefaultFormat(buffer.SampleRate())
	format.BitDepth = c.bitDepth

	formatErr := format.Validate()
	if formatErr != nil {
		return formatErr
	}

	peak := format.fullScale() - 1
	data := make([]int, buffer.Len())

	for i, sample := range buffer.samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, sample)) * peak))
	}

	encoder := wav.NewEncoder(writer, format.SampleRate, format.BitDepth, format.Channels, PCM_FORMAT_TAG)

	writeErr := encoder.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: format.SampleRate, NumChannels: format.Channels},
		SourceBitDepth: format.BitDepth,
	})
	if writeErr != nil {
		return fmt.Errorf("failed to write samples: %w", writeErr)
	}

	closeErr := encoder.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", closeErr)
	}

	return nil
}

// EncodeBytes returns the buffer as an in-memory WAV file.
func (c *WAVCodec) EncodeBytes(buffer Buffer) ([]byte, error) {
	tempFile, err := os.CreateTemp("", tempWAVPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for WAV output: %w", err)
	}

	defer os.Remove(tempFile.Name())

	encodeErr := c.EncodeTo(tempFile, buffer)
	closeErr := tempFile.Close()

	if encodeErr != nil {
		return nil, encodeErr
	}

	if closeErr != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	data, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV data from temp file: %w", err)
	}

	return data, nil
}
