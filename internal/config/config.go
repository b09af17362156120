// Package config provides the configuration structure for the synthesizer's binaries.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/composer"
	"github.com/book-expert/unit-tts/internal/library"
	"github.com/book-expert/unit-tts/internal/segment"
	"github.com/pelletier/go-toml/v2"
)

// Default values for settings missing from the configuration file.
const (
	defaultSampleRate     = 44100
	defaultRecordDuration = 1.5
	defaultLogsDir        = "logs"
	defaultDatasetDir     = "dataset"
	defaultOutputDir      = "output"
	defaultWordsFile      = "words.txt"
	defaultManifestFile   = "dataset/unique_syllables.txt"
	defaultCaptureCommand = "arecord -q -t raw -f S16_LE -c 1 -r {rate} -d {duration}"
	defaultPlayCommand    = "aplay -q {file}"
	defaultNATSURL        = "nats://127.0.0.1:4222"
	defaultTextSubject    = "text.processed"
	defaultAudioSubject   = "audio.chunk.created"
	defaultTextBucket     = "TEXT_FILES"
	defaultAudioBucket    = "AUDIO_FILES"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// AudioConfig holds capture settings.
type AudioConfig struct {
	SampleRate     int     `toml:"sample_rate"`
	RecordDuration float64 `toml:"record_duration"`
}

// SegmenterConfig holds silence detection settings.
type SegmenterConfig struct {
	SilenceThresholdDB float64 `toml:"silence_threshold_db"`
	MinSilenceDuration float64 `toml:"min_silence_duration"`
}

// ComposerConfig holds synthesis timing and cache settings.
type ComposerConfig struct {
	GapDuration       float64 `toml:"gap_duration"`
	WordCrossfade     float64 `toml:"word_crossfade"`
	SyllableCrossfade float64 `toml:"syllable_crossfade"`
	CacheSize         int     `toml:"cache_size"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir  string `toml:"base_logs_dir"`
	DatasetDir   string `toml:"dataset_dir"`
	OutputDir    string `toml:"output_dir"`
	WordsFile    string `toml:"words_file"`
	ManifestFile string `toml:"manifest_file"`
}

// DevicesConfig holds the commands used as capture and playback devices.
type DevicesConfig struct {
	CaptureCommand  string `toml:"capture_command"`
	PlaybackCommand string `toml:"playback_command"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	TextObjectStoreBucket    string `toml:"text_object_store_bucket"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// Config is the root configuration structure.
type Config struct {
	Audio     AudioConfig     `toml:"audio"`
	Segmenter SegmenterConfig `toml:"segmenter"`
	Composer  ComposerConfig  `toml:"composer"`
	Paths     PathsConfig     `toml:"paths"`
	Devices   DevicesConfig   `toml:"devices"`
	NATS      NATSConfig      `toml:"nats"`
}

// Default returns a configuration with every setting at its default.
func Default() *Config {
	var cfg Config

	cfg.ApplyDefaults()

	return &cfg
}

// Load loads the project configuration found by the configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// LoadFile loads the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	var cfg Config

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", path, err)
	}

	return finish(&cfg)
}

// Resolve loads path when given. Otherwise it asks the configurator for the project
// configuration and falls back to defaults when none is found.
func Resolve(path string, log *logger.Logger) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}

	cfg, err := Load(log)
	if err != nil {
		log.Warn("Using default configuration: %v", err)

		return Default(), nil
	}

	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills every zero-valued setting with its default.
func (c *Config) ApplyDefaults() {
	setInt(&c.Audio.SampleRate, defaultSampleRate)
	setFloat(&c.Audio.RecordDuration, defaultRecordDuration)

	setFloat(&c.Segmenter.SilenceThresholdDB, segment.DEFAULT_SILENCE_THRESHOLD_DB)
	setFloat(&c.Segmenter.MinSilenceDuration, segment.DEFAULT_MIN_SILENCE_DURATION_S)

	setFloat(&c.Composer.GapDuration, composer.DEFAULT_GAP_DURATION_S)
	setFloat(&c.Composer.WordCrossfade, composer.DEFAULT_WORD_CROSSFADE_S)
	setFloat(&c.Composer.SyllableCrossfade, library.DEFAULT_SYLLABLE_CROSSFADE_S)
	setInt(&c.Composer.CacheSize, library.DEFAULT_CACHE_SIZE)

	setString(&c.Paths.BaseLogsDir, defaultLogsDir)
	setString(&c.Paths.DatasetDir, defaultDatasetDir)
	setString(&c.Paths.OutputDir, defaultOutputDir)
	setString(&c.Paths.WordsFile, defaultWordsFile)
	setString(&c.Paths.ManifestFile, defaultManifestFile)

	setString(&c.Devices.CaptureCommand, defaultCaptureCommand)
	setString(&c.Devices.PlaybackCommand, defaultPlayCommand)

	setString(&c.NATS.URL, defaultNATSURL)
	setString(&c.NATS.TextProcessedSubject, defaultTextSubject)
	setString(&c.NATS.AudioChunkCreatedSubject, defaultAudioSubject)
	setString(&c.NATS.TextObjectStoreBucket, defaultTextBucket)
	setString(&c.NATS.AudioObjectStoreBucket, defaultAudioBucket)
}

// Validate reports the first setting outside its valid range.
func (c *Config) Validate() error {
	switch {
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("%w: audio.sample_rate must be positive, got %d", ErrInvalidConfig, c.Audio.SampleRate)
	case !positive(c.Audio.RecordDuration):
		return fmt.Errorf("%w: audio.record_duration must be positive, got %v", ErrInvalidConfig, c.Audio.RecordDuration)
	case !positive(c.Segmenter.MinSilenceDuration):
		return fmt.Errorf("%w: segmenter.min_silence_duration must be positive, got %v",
			ErrInvalidConfig, c.Segmenter.MinSilenceDuration)
	case !nonNegative(c.Composer.GapDuration):
		return fmt.Errorf("%w: composer.gap_duration must not be negative, got %v", ErrInvalidConfig, c.Composer.GapDuration)
	case !nonNegative(c.Composer.WordCrossfade):
		return fmt.Errorf("%w: composer.word_crossfade must not be negative, got %v",
			ErrInvalidConfig, c.Composer.WordCrossfade)
	case !nonNegative(c.Composer.SyllableCrossfade):
		return fmt.Errorf("%w: composer.syllable_crossfade must not be negative, got %v",
			ErrInvalidConfig, c.Composer.SyllableCrossfade)
	case c.Composer.CacheSize <= 0:
		return fmt.Errorf("%w: composer.cache_size must be positive, got %d", ErrInvalidConfig, c.Composer.CacheSize)
	}

	return nil
}

// SegmenterSettings returns the segmenter configuration.
func (c *Config) SegmenterSettings() segment.Config {
	return segment.Config{
		SilenceThresholdDB: c.Segmenter.SilenceThresholdDB,
		MinSilenceDuration: c.Segmenter.MinSilenceDuration,
	}
}

// ComposerSettings returns the composer configuration.
func (c *Config) ComposerSettings() composer.Config {
	return composer.Config{
		GapDuration:   c.Composer.GapDuration,
		WordCrossfade: c.Composer.WordCrossfade,
	}
}

func positive(value float64) bool {
	return value > 0 && !math.IsInf(value, 0)
}

func nonNegative(value float64) bool {
	return value >= 0 && !math.IsInf(value, 0) && !math.IsNaN(value)
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func setFloat(field *float64, value float64) {
	if *field == 0 {
		*field = value
	}
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
