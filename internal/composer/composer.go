// Package composer assembles speech for arbitrary text from recorded units.
package composer

import (
	"errors"
	"fmt"
	"math"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/library"
	"github.com/book-expert/unit-tts/internal/text"
)

// Default timing, in seconds.
const (
	DEFAULT_GAP_DURATION_S   = 0.3
	DEFAULT_WORD_CROSSFADE_S = 0.01
	// pauseGapMultiplier scales the gap after a word ending in a pause mark.
	pauseGapMultiplier = 2
)

var (
	// ErrNoPlayableWords is returned when no word of the text could be resolved.
	ErrNoPlayableWords = errors.New("no playable words")
	// ErrInvalidConfig is returned for negative or non-finite timings.
	ErrInvalidConfig = errors.New("invalid composer configuration")
)

// WordResolver turns a normalized word into audio.
type WordResolver interface {
	GetAudio(word string) (library.Resolution, error)
}

// Config holds the timing between words.
type Config struct {
	// GapDuration is the silence inserted before every word after the first.
	GapDuration float64
	// WordCrossfade is the overlap used to blend each word onto the gap before it.
	WordCrossfade float64
}

// DefaultConfig returns the default word timing.
func DefaultConfig() Config {
	return Config{
		GapDuration:   DEFAULT_GAP_DURATION_S,
		WordCrossfade: DEFAULT_WORD_CROSSFADE_S,
	}
}

// ComposedWord describes a word that made it into the output.
type ComposedWord struct {
	Text   string
	Source library.Source
	// Start is the word's offset into the output, in seconds.
	Start float64
}

// SkippedWord is a word left out of the output and the reason.
type SkippedWord struct {
	Text string
	Err  error
}

// Result is the outcome of a composition.
type Result struct {
	Audio   audio.Buffer
	Words   []ComposedWord
	Skipped []SkippedWord
}

// Composer joins word recordings with gaps and crossfades.
type Composer struct {
	resolver     WordResolver
	config       Config
	preprocessor *text.Preprocessor
	log          *logger.Logger
}

// New validates cfg and returns a Composer.
func New(resolver WordResolver, cfg Config, log *logger.Logger) (*Composer, error) {
	if !validSeconds(cfg.GapDuration) {
		return nil, fmt.Errorf("%w: gap duration %v", ErrInvalidConfig, cfg.GapDuration)
	}

	if !validSeconds(cfg.WordCrossfade) {
		return nil, fmt.Errorf("%w: word crossfade %v", ErrInvalidConfig, cfg.WordCrossfade)
	}

	return &Composer{
		resolver:     resolver,
		config:       cfg,
		preprocessor: text.NewPreprocessor(),
		log:          log,
	}, nil
}

func validSeconds(seconds float64) bool {
	return seconds >= 0 && !math.IsInf(seconds, 0) && !math.IsNaN(seconds)
}

// Compose resolves every word of input and joins the results. Words that cannot be
// resolved are reported in Result.Skipped; the call fails only when none resolve.
func (c *Composer) Compose(input string) (Result, error) {
	var (
		result    Result
		pauseNext bool
	)

	for _, token := range c.preprocessor.Tokenize(input) {
		resolution, err := c.resolver.GetAudio(token.Key)
		if err != nil {
			c.skip(&result, token, err)

			continue
		}

		start, joined, err := c.appendWord(result.Audio, resolution.Audio, len(result.Words) > 0, pauseNext)
		if err != nil {
			c.skip(&result, token, err)

			continue
		}

		result.Audio = joined
		result.Words = append(result.Words, ComposedWord{
			Text:   token.Source,
			Source: resolution.Source,
			Start:  start,
		})
		pauseNext = token.PauseAfter
	}

	if len(result.Words) == 0 {
		return result, fmt.Errorf("%w in %q", ErrNoPlayableWords, input)
	}

	c.log.Info("Composed %d words (%d skipped), %.2fs of audio",
		len(result.Words), len(result.Skipped), result.Audio.Duration())

	return result, nil
}

// appendWord adds word to composed after the inter-word gap and returns the word's start
// offset in seconds along with the new buffer.
func (c *Composer) appendWord(composed, word audio.Buffer, hasPrevious, pause bool) (float64, audio.Buffer, error) {
	if !hasPrevious {
		return 0, word, nil
	}

	rate := composed.SampleRate()
	if word.SampleRate() != rate {
		return 0, audio.Buffer{}, fmt.Errorf("%w: word is %d Hz, output is %d Hz",
			audio.ErrSampleRateMismatch, word.SampleRate(), rate)
	}

	gap := c.config.GapDuration
	if pause {
		gap *= pauseGapMultiplier
	}

	withGap, err := audio.Concat(composed, audio.Silence(gap, rate))
	if err != nil {
		return 0, audio.Buffer{}, fmt.Errorf("failed to insert gap: %w", err)
	}

	overlap := audio.OverlapSamples(c.config.WordCrossfade, rate, withGap.Len(), word.Len())
	start := float64(withGap.Len()-overlap) / float64(rate)

	joined, err := audio.Crossfade(withGap, word, c.config.WordCrossfade)
	if err != nil {
		return 0, audio.Buffer{}, fmt.Errorf("failed to crossfade word: %w", err)
	}

	return start, joined, nil
}

func (c *Composer) skip(result *Result, token text.Token, err error) {
	c.log.Warn("Cannot play word '%s': %v", token.Source, err)

	result.Skipped = append(result.Skipped, SkippedWord{Text: token.Source, Err: err})
}
