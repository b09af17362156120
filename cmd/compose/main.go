// Package main provides a command-line tool that speaks text from recorded units.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/composer"
	"github.com/book-expert/unit-tts/internal/config"
	"github.com/book-expert/unit-tts/internal/device"
	"github.com/book-expert/unit-tts/internal/fileutil"
	"github.com/book-expert/unit-tts/internal/library"
	"github.com/book-expert/unit-tts/internal/manifest"
)

// Flag descriptions.
const (
	flagTextDesc      = "Text to speak; a random phrase of recorded words when empty"
	flagWordsDesc     = "Number of random recorded words to speak when no text is given"
	flagGapDesc       = "Gap between words in seconds (negative keeps the configured value)"
	flagSaveDesc      = "Save the composed audio to the output directory"
	flagPlayDesc      = "Play the composed audio"
	flagOutputDirDesc = "Directory to save output files"
	flagDatasetDesc   = "Dataset directory holding the recorded units"
	flagConfigDesc    = "Path to project.toml (defaults to searching up directory tree)"
)

// Flag names.
const (
	flagText      = "text"
	flagWords     = "words"
	flagGap       = "gap"
	flagSave      = "save"
	flagPlay      = "play"
	flagOutputDir = "output-dir"
	flagDataset   = "dataset"
	flagConfig    = "config"
)

// Error messages.
const (
	errFailedToLoadConfig = "failed to load configuration: %w"
	errFailedToInitLogger = "failed to initialize logger: %w"
	errFailedToCompose    = "failed to compose text: %w"
)

// User-facing messages.
const (
	msgSpeaking     = "Speaking: %s\n"
	msgSkipped      = "Skipped '%s': %v\n"
	msgDuration     = "Composed %d words (%s)\n"
	msgSaved        = "Output saved to: %s\n"
	logFileName     = "compose.log"
	defaultWords    = 5
	unsetGapSeconds = -1
)

var (
	errNothingToDo      = errors.New("nothing to do: both --play and --save are disabled")
	errInvalidWordCount = errors.New("--words must be positive")
	errNoRecordedWords  = errors.New("no recorded words to compose a phrase from")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text      string
	words     int
	gap       float64
	save      bool
	play      bool
	outputDir string
	dataset   string
	config    string
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	bootstrapLog, err := logger.New(os.TempDir(), "compose-bootstrap.log")
	if err != nil {
		return fmt.Errorf(errFailedToInitLogger, err)
	}

	cfg, err := config.Resolve(flags.config, bootstrapLog)
	if err != nil {
		return fmt.Errorf(errFailedToLoadConfig, err)
	}

	applyOverrides(cfg, flags)

	appLog, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return fmt.Errorf(errFailedToInitLogger, err)
	}
	defer appLog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var player *device.ExecPlayer
	if flags.play {
		player, err = device.NewExecPlayer(cfg.Devices.PlaybackCommand, audio.NewWAVCodec(), appLog)
		if err != nil {
			return err
		}
	}

	return execute(ctx, cfg, flags, player, appLog, os.Stdout)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("compose", flag.ContinueOnError)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.IntVar(&flags.words, flagWords, defaultWords, flagWordsDesc)
	flagSet.Float64Var(&flags.gap, flagGap, unsetGapSeconds, flagGapDesc)
	flagSet.BoolVar(&flags.save, flagSave, false, flagSaveDesc)
	flagSet.BoolVar(&flags.play, flagPlay, true, flagPlayDesc)
	flagSet.StringVar(&flags.outputDir, flagOutputDir, "", flagOutputDirDesc)
	flagSet.StringVar(&flags.dataset, flagDataset, "", flagDatasetDesc)
	flagSet.StringVar(&flags.config, flagConfig, "", flagConfigDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return flags, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, validateFlags(flags)
}

func validateFlags(flags appFlags) error {
	if !flags.play && !flags.save {
		return errNothingToDo
	}

	if strings.TrimSpace(flags.text) == "" && flags.words <= 0 {
		return errInvalidWordCount
	}

	return nil
}

// applyOverrides lets flags take precedence over the configuration.
func applyOverrides(cfg *config.Config, flags appFlags) {
	if flags.gap >= 0 {
		cfg.Composer.GapDuration = flags.gap
	}

	if flags.outputDir != "" {
		cfg.Paths.OutputDir = flags.outputDir
	}

	if flags.dataset != "" {
		cfg.Paths.DatasetDir = flags.dataset
		cfg.Paths.ManifestFile = filepath.Join(flags.dataset, manifest.DefaultFileName)
	}
}

// execute builds the library, composes the text, then saves and plays it.
// A nil player disables playback.
func execute(
	ctx context.Context,
	cfg *config.Config,
	flags appFlags,
	player *device.ExecPlayer,
	appLog *logger.Logger,
	out io.Writer,
) error {
	codec := audio.NewWAVCodec()

	unitLibrary, err := library.New(
		cfg.Paths.DatasetDir,
		codec,
		appLog,
		library.WithCacheSize(cfg.Composer.CacheSize),
		library.WithCrossfade(cfg.Composer.SyllableCrossfade),
		library.WithManifestFile(cfg.Paths.ManifestFile),
	)
	if err != nil {
		return err
	}

	input := strings.TrimSpace(flags.text)
	if input == "" {
		input, err = randomPhrase(unitLibrary.Words(), flags.words)
		if err != nil {
			return err
		}
	}

	wordComposer, err := composer.New(unitLibrary, cfg.ComposerSettings(), appLog)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, msgSpeaking, input)

	result, err := wordComposer.Compose(input)

	for _, skipped := range result.Skipped {
		fmt.Fprintf(out, msgSkipped, skipped.Text, skipped.Err)
	}

	if err != nil {
		return fmt.Errorf(errFailedToCompose, err)
	}

	fmt.Fprintf(out, msgDuration, len(result.Words), fileutil.FormatDuration(result.Audio.Duration()))
	appLog.Info("Composed %d words with %d recordings cached", len(result.Words), unitLibrary.CacheLen())

	if flags.save {
		path, saveErr := composer.SaveOutput(codec, result.Audio, cfg.Paths.OutputDir)
		if saveErr != nil {
			return saveErr
		}

		fmt.Fprintf(out, msgSaved, path)
	}

	if player == nil {
		return nil
	}

	return player.Play(ctx, result.Audio)
}

// randomPhrase joins count words drawn from the recorded vocabulary.
func randomPhrase(words []library.Word, count int) (string, error) {
	if len(words) == 0 {
		return "", errNoRecordedWords
	}

	phrase := make([]string, 0, count)
	for range count {
		phrase = append(phrase, string(words[rand.IntN(len(words))]))
	}

	return strings.Join(phrase, " "), nil
}
