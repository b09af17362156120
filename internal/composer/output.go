package composer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/core"
	"github.com/book-expert/unit-tts/internal/fileutil"
)

// Output file naming.
const (
	OutputFilePrefix = "tts_output_"
	outputFileExt    = ".wav"
)

// SaveOutput writes buffer into dir as tts_output_<timestamp>.wav and returns the path.
// The directory is created when missing.
func SaveOutput(encoder core.Encoder, buffer audio.Buffer, dir string) (string, error) {
	err := fileutil.EnsureDir(dir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fileutil.TimestampedName(OutputFilePrefix, time.Now(), outputFileExt))

	encodeErr := encoder.Encode(buffer, path)
	if encodeErr != nil {
		return "", fmt.Errorf("failed to save output %s: %w", path, encodeErr)
	}

	return path, nil
}

// Speak composes input and plays it, blocking until playback ends.
// Nothing is played when composition fails.
func (c *Composer) Speak(ctx context.Context, input string, player core.Player) (Result, error) {
	result, err := c.Compose(input)
	if err != nil {
		return result, err
	}

	playErr := player.Play(ctx, result.Audio)
	if playErr != nil {
		return result, fmt.Errorf("failed to play composed audio: %w", playErr)
	}

	return result, nil
}
