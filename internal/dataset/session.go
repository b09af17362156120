// Package dataset records units into the dataset directory: one capture per unit, the
// raw capture kept next to the clean segment cut from it.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/core"
	"github.com/book-expert/unit-tts/internal/fileutil"
	"github.com/book-expert/unit-tts/internal/library"
	"github.com/book-expert/unit-tts/internal/manifest"
	"github.com/book-expert/unit-tts/internal/segment"
	"github.com/book-expert/unit-tts/internal/text"
)

// Recording defaults.
const (
	DEFAULT_DURATION_S  = 1.5
	DEFAULT_SAMPLE_RATE = 44100
	freeRecordingPrefix = "recording_"
)

var (
	// ErrRecordingFailed is returned when the capture device fails. Units recorded
	// earlier are left untouched.
	ErrRecordingFailed = errors.New("recording failed")
	// ErrInvalidDuration is returned for a non-positive capture duration.
	ErrInvalidDuration = errors.New("recording duration must be positive")
)

// Config describes a recording session.
type Config struct {
	Root       string
	Duration   float64
	SampleRate int
}

// PlanOptions selects what a session records.
type PlanOptions struct {
	// SyllablesMode reads a manifest and records its distinct syllables instead of
	// the listed words.
	SyllablesMode bool
	// SkipRecorded leaves out units that already have a canonical recording.
	SkipRecorded bool
}

// Plan is the ordered list of units to record.
type Plan struct {
	Units []string
	// Skipped counts units left out because they were already recorded.
	Skipped int
}

// Outcome describes one recorded unit.
type Outcome struct {
	Key           string
	Dir           string
	RawPath       string
	RecordingPath string
	// Segmented is false when no usable segment was found; the raw capture is kept.
	Segmented bool
	Segments  int
}

// Session captures, segments and stores units.
type Session struct {
	config       Config
	capturer     core.Capturer
	segmenter    *segment.Segmenter
	encoder      core.Encoder
	preprocessor *text.Preprocessor
	log          *logger.Logger
}

// NewSession creates the dataset directory when needed and returns a Session.
func NewSession(
	cfg Config,
	capturer core.Capturer,
	segmenter *segment.Segmenter,
	encoder core.Encoder,
	log *logger.Logger,
) (*Session, error) {
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDuration, cfg.Duration)
	}

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DEFAULT_SAMPLE_RATE
	}

	err := fileutil.EnsureDir(cfg.Root)
	if err != nil {
		return nil, err
	}

	return &Session{
		config:       cfg,
		capturer:     capturer,
		segmenter:    segmenter,
		encoder:      encoder,
		preprocessor: text.NewPreprocessor(),
		log:          log,
	}, nil
}

// PlanUnits reads a word list (or, in syllables mode, a manifest) from source.
// Words keep their file order; syllables are sorted. Duplicates are dropped.
func (s *Session) PlanUnits(source io.Reader, opts PlanOptions) (Plan, error) {
	units, err := s.readUnits(source, opts.SyllablesMode)
	if err != nil {
		return Plan{}, err
	}

	if !opts.SkipRecorded {
		return Plan{Units: units, Skipped: 0}, nil
	}

	recorded, err := RecordedUnits(s.config.Root)
	if err != nil {
		return Plan{}, err
	}

	pending := make([]string, 0, len(units))

	for _, unit := range units {
		if _, done := recorded[fileutil.SanitizeFilename(unit)]; done {
			continue
		}

		pending = append(pending, unit)
	}

	return Plan{Units: pending, Skipped: len(units) - len(pending)}, nil
}

func (s *Session) readUnits(source io.Reader, syllablesMode bool) ([]string, error) {
	if syllablesMode {
		entries, err := manifest.Load(source)
		if err != nil {
			return nil, err
		}

		return entries.Syllables(), nil
	}

	content, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}

	seen := make(map[string]struct{})
	words := make([]string, 0)

	for _, word := range s.preprocessor.SplitWordList(string(content)) {
		if _, dup := seen[word]; dup {
			continue
		}

		seen[word] = struct{}{}
		words = append(words, word)
	}

	return words, nil
}

// RecordUnit captures key, keeps the raw capture as raw.wav and saves the first
// segment as recording.wav.
func (s *Session) RecordUnit(ctx context.Context, key string) (Outcome, error) {
	capture, err := s.capturer.Capture(ctx, s.config.Duration, s.config.SampleRate)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s: %w", ErrRecordingFailed, key, err)
	}

	dir := filepath.Join(s.config.Root, fileutil.SanitizeFilename(key))
	outcome := Outcome{
		Key:           key,
		Dir:           dir,
		RawPath:       filepath.Join(dir, library.RawFileName),
		RecordingPath: "",
		Segmented:     false,
		Segments:      0,
	}

	dirErr := fileutil.EnsureDir(dir)
	if dirErr != nil {
		return outcome, dirErr
	}

	rawErr := s.encoder.Encode(capture, outcome.RawPath)
	if rawErr != nil {
		return outcome, fmt.Errorf("failed to save raw capture for %s: %w", key, rawErr)
	}

	return s.saveFirstSegment(capture, outcome)
}

// RecordFree captures an unnamed unit into recording_<timestamp>/. Nothing is
// written when the capture holds no usable segment.
func (s *Session) RecordFree(ctx context.Context) (Outcome, error) {
	capture, err := s.capturer.Capture(ctx, s.config.Duration, s.config.SampleRate)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrRecordingFailed, err)
	}

	result, segErr := s.segmenter.Segment(capture)
	if errors.Is(segErr, segment.ErrNoSegments) {
		s.log.Warn("No clear recording detected, nothing saved")

		return Outcome{}, nil
	}

	if segErr != nil {
		return Outcome{}, fmt.Errorf("failed to segment capture: %w", segErr)
	}

	key := fileutil.TimestampedName(freeRecordingPrefix, time.Now(), "")
	dir := filepath.Join(s.config.Root, key)
	outcome := Outcome{
		Key:           key,
		Dir:           dir,
		RawPath:       filepath.Join(dir, library.RawFileName),
		RecordingPath: "",
		Segmented:     false,
		Segments:      len(result.Segments),
	}

	dirErr := fileutil.EnsureDir(dir)
	if dirErr != nil {
		return outcome, dirErr
	}

	rawErr := s.encoder.Encode(capture, outcome.RawPath)
	if rawErr != nil {
		return outcome, fmt.Errorf("failed to save raw capture: %w", rawErr)
	}

	return s.saveSegment(result, outcome)
}

func (s *Session) saveFirstSegment(capture audio.Buffer, outcome Outcome) (Outcome, error) {
	result, err := s.segmenter.Segment(capture)
	if errors.Is(err, segment.ErrNoSegments) {
		s.log.Warn("No clear recording detected for '%s', raw capture kept at %s", outcome.Key, outcome.RawPath)

		return outcome, nil
	}

	if err != nil {
		return outcome, fmt.Errorf("failed to segment %s: %w", outcome.Key, err)
	}

	outcome.Segments = len(result.Segments)

	return s.saveSegment(result, outcome)
}

// saveSegment stores the earliest segment as the unit's canonical recording.
func (s *Session) saveSegment(result segment.Result, outcome Outcome) (Outcome, error) {
	path := filepath.Join(outcome.Dir, library.RecordingFileName)

	saved, err := s.segmenter.SaveSegment(result.Segments[0].Audio, s.encoder, path)
	if err != nil {
		return outcome, err
	}

	if saved {
		outcome.RecordingPath = path
		outcome.Segmented = true
		s.log.Info("Recorded '%s' (%d segments)", outcome.Key, outcome.Segments)
	}

	return outcome, nil
}

// RecordedUnits returns the names of unit directories under root that hold a
// canonical recording. A missing root has no recorded units.
func RecordedUnits(root string) (map[string]struct{}, error) {
	recorded := make(map[string]struct{})

	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return recorded, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, statErr := os.Stat(filepath.Join(root, entry.Name(), library.RecordingFileName))
		if statErr == nil && !info.IsDir() {
			recorded[entry.Name()] = struct{}{}
		}
	}

	return recorded, nil
}
