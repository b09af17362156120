// Package device runs external commands as the capture and playback devices.
//
// Commands are parsed with shell quoting rules and may contain the placeholders
// {rate}, {duration} and {file}, which are replaced on every invocation.
package device

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/core"
	"github.com/mattn/go-shellwords"
)

// Command placeholders.
const (
	PlaceholderRate     = "{rate}"
	PlaceholderDuration = "{duration}"
	PlaceholderFile     = "{file}"
)

const (
	bytesPerSample = 2
	pcm16FullScale = 32768.0
	playbackPrefix = "unit-tts-play-*.wav"
)

var (
	// ErrEmptyCommand is returned when a device command has no program.
	ErrEmptyCommand = errors.New("device command is empty")
	// ErrCommandFailed is returned when a device command exits unsuccessfully.
	ErrCommandFailed = errors.New("device command failed")
)

func parseCommand(command string) ([]string, error) {
	parser := shellwords.NewParser()

	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse device command %q: %w", command, err)
	}

	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}

	return args, nil
}

func expand(args []string, replacer *strings.Replacer) []string {
	expanded := make([]string, len(args))
	for i, arg := range args {
		expanded[i] = replacer.Replace(arg)
	}

	return expanded
}

func run(ctx context.Context, args []string, stdout *bytes.Buffer) error {
	var stderr bytes.Buffer

	// #nosec G204 -- the command comes from the operator's configuration
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrCommandFailed, args[0], err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// ExecCapturer records by running a command that writes signed 16-bit little-endian
// mono PCM to stdout.
type ExecCapturer struct {
	args []string
	log  *logger.Logger
}

// NewExecCapturer parses command, e.g.
// "arecord -q -f S16_LE -c 1 -r {rate} -d {duration} -t raw".
func NewExecCapturer(command string, log *logger.Logger) (*ExecCapturer, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, err
	}

	return &ExecCapturer{args: args, log: log}, nil
}

// Capture runs the command and returns exactly round(durationSeconds*sampleRate)
// samples, truncating or zero-padding the command's output.
func (c *ExecCapturer) Capture(ctx context.Context, durationSeconds float64, sampleRate int) (audio.Buffer, error) {
	replacer := strings.NewReplacer(
		PlaceholderRate, strconv.Itoa(sampleRate),
		PlaceholderDuration, strconv.FormatFloat(durationSeconds, 'f', -1, 64),
	)

	var stdout bytes.Buffer

	err := run(ctx, expand(c.args, replacer), &stdout)
	if err != nil {
		return audio.Buffer{}, err
	}

	want := audio.SecondsToSamples(durationSeconds, sampleRate)
	got := stdout.Len() / bytesPerSample

	if got != want {
		c.log.Warn("Capture produced %d samples, expected %d", got, want)
	}

	return audio.NewBuffer(decodePCM16(stdout.Bytes(), want), sampleRate), nil
}

func decodePCM16(data []byte, count int) []float64 {
	samples := make([]float64, count)
	available := min(count, len(data)/bytesPerSample)

	for i := range available {
		value := int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
		samples[i] = float64(value) / pcm16FullScale
	}

	return samples
}

// ExecPlayer plays by writing the buffer to a temporary WAV file and running a
// command on it. When the command has no {file} placeholder the path is appended.
type ExecPlayer struct {
	args    []string
	encoder core.Encoder
	log     *logger.Logger
}

// NewExecPlayer parses command, e.g. "aplay -q {file}".
func NewExecPlayer(command string, encoder core.Encoder, log *logger.Logger) (*ExecPlayer, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, err
	}

	hasFile := false

	for _, arg := range args {
		if strings.Contains(arg, PlaceholderFile) {
			hasFile = true

			break
		}
	}

	if !hasFile {
		args = append(args, PlaceholderFile)
	}

	return &ExecPlayer{args: args, encoder: encoder, log: log}, nil
}

// Play blocks until the command exits.
func (p *ExecPlayer) Play(ctx context.Context, buffer audio.Buffer) error {
	tempFile, err := os.CreateTemp("", playbackPrefix)
	if err != nil {
		return fmt.Errorf("failed to create temp file for playback: %w", err)
	}

	path := tempFile.Name()

	defer func() {
		removeErr := os.Remove(path)
		if removeErr != nil {
			p.log.Warn("Failed to remove temp file '%s': %v", path, removeErr)
		}
	}()

	closeErr := tempFile.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to close temp file %s: %w", path, closeErr)
	}

	encodeErr := p.encoder.Encode(buffer, path)
	if encodeErr != nil {
		return fmt.Errorf("failed to write playback file: %w", encodeErr)
	}

	replacer := strings.NewReplacer(
		PlaceholderFile, path,
		PlaceholderRate, strconv.Itoa(buffer.SampleRate()),
	)

	var stdout bytes.Buffer

	return run(ctx, expand(p.args, replacer), &stdout)
}
