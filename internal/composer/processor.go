package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
)

// ErrEmptyText is returned when the text to synthesize is blank.
var ErrEmptyText = errors.New("text cannot be empty")

// ByteEncoder produces an in-memory audio file.
type ByteEncoder interface {
	EncodeBytes(buffer audio.Buffer) ([]byte, error)
}

// Processor implements core.SpeechProcessor by composing text and encoding the
// result as a WAV file.
type Processor struct {
	composer *Composer
	encoder  ByteEncoder
	log      *logger.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(composer *Composer, encoder ByteEncoder, log *logger.Logger) (*Processor, error) {
	return &Processor{
		composer: composer,
		encoder:  encoder,
		log:      log,
	}, nil
}

// Process composes text and returns the encoded audio.
func (p *Processor) Process(ctx context.Context, text []byte) ([]byte, error) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, fmt.Errorf("synthesis cancelled: %w", ctxErr)
	}

	input := strings.TrimSpace(string(text))
	if input == "" {
		return nil, ErrEmptyText
	}

	result, err := p.composer.Compose(input)
	if err != nil {
		return nil, fmt.Errorf("failed to compose text: %w", err)
	}

	if len(result.Skipped) > 0 {
		p.log.Warn("Synthesized %d words, %d could not be played", len(result.Words), len(result.Skipped))
	}

	audioData, err := p.encoder.EncodeBytes(result.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to encode composed audio: %w", err)
	}

	return audioData, nil
}
