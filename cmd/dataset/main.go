// Package main provides the interactive recording tool that builds the unit dataset.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/config"
	"github.com/book-expert/unit-tts/internal/dataset"
	"github.com/book-expert/unit-tts/internal/device"
	"github.com/book-expert/unit-tts/internal/segment"
)

// Flag descriptions.
const (
	flagWordsDesc         = "File containing words to record (free recording mode when empty)"
	flagOutputDesc        = "Output directory"
	flagDurationDesc      = "Recording duration in seconds"
	flagSkipRecordedDesc  = "Skip units that have already been recorded"
	flagSyllablesModeDesc = "Record the syllables of a manifest instead of complete words"
	flagConfigDesc        = "Path to project.toml (defaults to searching up directory tree)"
)

// Flag names.
const (
	flagWords         = "words"
	flagOutput        = "output"
	flagDuration      = "duration"
	flagSkipRecorded  = "skip-recorded"
	flagSyllablesMode = "syllables-mode"
	flagConfig        = "config"
)

// Prompts and progress messages.
const (
	msgSkippedRecorded = "\nSkipping %d already recorded %s.\n"
	msgNothingToRecord = "No new %s to record!\n"
	msgLoaded          = "\nLoaded %d %s to record.\n"
	msgCtrlC           = "Press Ctrl+C at any time to save progress and exit."
	msgPronounce       = "\n[%d/%d] Please pronounce: %s\n"
	msgEnterOrSkip     = "Press Enter when ready to record, or 's' to skip..."
	msgSkipped         = "Skipped: %s\n"
	msgRecorded        = "✓ Recorded and saved: %s\n"
	msgNoClearUnit     = "! No clear recording detected for: %s\n"
	msgUnitFailed      = "✗ Failed to record %s: %v\n"
	msgInterrupted     = "\n\nRecording session interrupted. Progress has been saved."
	msgProgress        = "Recorded %d out of %d %s.\n"
	msgAllRecorded     = "\nAll %s have been recorded successfully!\n"
	msgFreeMode        = "Free recording mode: Press Ctrl+C to stop"
	msgEnterToRecord   = "Press Enter to start recording..."
	msgFreeSaved       = "✓ Recording saved"
	msgFreeEmpty       = "! No clear recording detected"
	msgFreeFailed      = "✗ Recording failed: %v\n"
	msgSessionEnded    = "\nRecording session ended"
	logFileName        = "dataset.log"
	skipAnswer         = "s"
	unitWords          = "words"
	unitSyllables      = "syllables"
)

// errInputClosed is returned when stdin ends before the session does.
var errInputClosed = errors.New("input closed")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	words         string
	output        string
	duration      float64
	skipRecorded  bool
	syllablesMode bool
	config        string
}

// unitRecorder is the part of dataset.Session driven by the prompt loop.
type unitRecorder interface {
	RecordUnit(ctx context.Context, key string) (dataset.Outcome, error)
	RecordFree(ctx context.Context) (dataset.Outcome, error)
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	bootstrapLog, err := logger.New(os.TempDir(), "dataset-bootstrap.log")
	if err != nil {
		return fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg, err := config.Resolve(flags.config, bootstrapLog)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	applyOverrides(cfg, flags)

	appLog, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLog.Close()

	session, err := newSession(cfg, appLog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	input := newLineReader(os.Stdin)

	if flags.words == "" {
		return recordFree(ctx, session, input, os.Stdout)
	}

	plan, err := planFromFile(session, flags)
	if err != nil {
		return err
	}

	return recordPlan(ctx, session, plan, unitNoun(flags.syllablesMode), input, os.Stdout)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("dataset", flag.ContinueOnError)
	flagSet.StringVar(&flags.words, flagWords, "", flagWordsDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.Float64Var(&flags.duration, flagDuration, 0, flagDurationDesc)
	flagSet.BoolVar(&flags.skipRecorded, flagSkipRecorded, false, flagSkipRecordedDesc)
	flagSet.BoolVar(&flags.syllablesMode, flagSyllablesMode, false, flagSyllablesModeDesc)
	flagSet.StringVar(&flags.config, flagConfig, "", flagConfigDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return flags, fmt.Errorf("failed to parse flags: %w", err)
	}

	if flags.duration < 0 {
		return flags, fmt.Errorf("%w: got %v", dataset.ErrInvalidDuration, flags.duration)
	}

	return flags, nil
}

// applyOverrides lets flags take precedence over the configuration.
func applyOverrides(cfg *config.Config, flags appFlags) {
	if flags.output != "" {
		cfg.Paths.DatasetDir = flags.output
	}

	if flags.duration > 0 {
		cfg.Audio.RecordDuration = flags.duration
	}
}

func newSession(cfg *config.Config, appLog *logger.Logger) (*dataset.Session, error) {
	capturer, err := device.NewExecCapturer(cfg.Devices.CaptureCommand, appLog)
	if err != nil {
		return nil, err
	}

	segmenter, err := segment.New(cfg.SegmenterSettings(), appLog)
	if err != nil {
		return nil, err
	}

	return dataset.NewSession(
		dataset.Config{
			Root:       cfg.Paths.DatasetDir,
			Duration:   cfg.Audio.RecordDuration,
			SampleRate: cfg.Audio.SampleRate,
		},
		capturer,
		segmenter,
		audio.NewWAVCodec(),
		appLog,
	)
}

func planFromFile(session *dataset.Session, flags appFlags) (dataset.Plan, error) {
	file, err := os.Open(flags.words)
	if err != nil {
		return dataset.Plan{}, fmt.Errorf("failed to open %s: %w", flags.words, err)
	}
	defer file.Close()

	return session.PlanUnits(file, dataset.PlanOptions{
		SyllablesMode: flags.syllablesMode,
		SkipRecorded:  flags.skipRecorded,
	})
}

func unitNoun(syllablesMode bool) string {
	if syllablesMode {
		return unitSyllables
	}

	return unitWords
}

// recordPlan prompts for each planned unit in turn. A failed capture loses only that
// unit. An interrupt ends the session without error; units recorded so far stay on disk.
func recordPlan(
	ctx context.Context,
	recorder unitRecorder,
	plan dataset.Plan,
	noun string,
	input *lineReader,
	out io.Writer,
) error {
	if plan.Skipped > 0 {
		fmt.Fprintf(out, msgSkippedRecorded, plan.Skipped, noun)
	}

	total := len(plan.Units)
	if total == 0 {
		fmt.Fprintf(out, msgNothingToRecord, noun)

		return nil
	}

	fmt.Fprintf(out, msgLoaded, total, noun)
	fmt.Fprintln(out, msgCtrlC)

	recorded, failed := 0, 0

	for idx, unit := range plan.Units {
		fmt.Fprintf(out, msgPronounce, idx+1, total, unit)
		fmt.Fprintln(out, msgEnterOrSkip)

		answer, err := input.next(ctx)
		if err != nil {
			return endSession(out, recorded, total, noun)
		}

		if strings.EqualFold(answer, skipAnswer) {
			fmt.Fprintf(out, msgSkipped, unit)

			continue
		}

		outcome, err := recorder.RecordUnit(ctx, unit)
		if err != nil {
			if ctx.Err() != nil {
				return endSession(out, recorded, total, noun)
			}

			fmt.Fprintf(out, msgUnitFailed, unit, err)

			failed++

			continue
		}

		recorded++

		if outcome.Segmented {
			fmt.Fprintf(out, msgRecorded, unit)
		} else {
			fmt.Fprintf(out, msgNoClearUnit, unit)
		}
	}

	if failed > 0 {
		fmt.Fprintf(out, msgProgress, recorded, total, noun)

		return nil
	}

	fmt.Fprintf(out, msgAllRecorded, noun)

	return nil
}

// endSession reports progress after an interrupt or the end of input.
func endSession(out io.Writer, recorded, total int, noun string) error {
	fmt.Fprintln(out, msgInterrupted)
	fmt.Fprintf(out, msgProgress, recorded, total, noun)

	return nil
}

// recordFree records unnamed units until interrupted or stdin closes.
func recordFree(ctx context.Context, recorder unitRecorder, input *lineReader, out io.Writer) error {
	fmt.Fprintln(out, msgFreeMode)

	for {
		fmt.Fprintln(out, msgEnterToRecord)

		_, err := input.next(ctx)
		if err != nil {
			break
		}

		outcome, err := recorder.RecordFree(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			fmt.Fprintf(out, msgFreeFailed, err)

			continue
		}

		if outcome.Segmented {
			fmt.Fprintln(out, msgFreeSaved)
		} else {
			fmt.Fprintln(out, msgFreeEmpty)
		}
	}

	fmt.Fprintln(out, msgSessionEnded)

	return nil
}

// lineReader delivers input lines without blocking cancellation.
type lineReader struct {
	lines <-chan string
}

func newLineReader(reader io.Reader) *lineReader {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	return &lineReader{lines: lines}
}

func (r *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("prompt cancelled: %w", ctx.Err())
	case line, ok := <-r.lines:
		if !ok {
			return "", errInputClosed
		}

		return line, nil
	}
}
