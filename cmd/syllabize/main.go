// Package main provides a tool that writes the syllable manifest for a word list.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/fileutil"
	"github.com/book-expert/unit-tts/internal/manifest"
	"github.com/book-expert/unit-tts/internal/syllable"
	"github.com/book-expert/unit-tts/internal/text"
)

// Flag names, descriptions and defaults.
const (
	flagInput      = "input"
	flagOutput     = "output"
	flagInputDesc  = "Text file with the words to decompose"
	flagOutputDesc = "Manifest file to write"
	defaultInput   = "words.txt"
	logFileName    = "syllabize.log"
)

// defaultOutput is the manifest location the library reads by default.
var defaultOutput = filepath.Join("dataset", manifest.DefaultFileName)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	input  string
	output string
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

	appLog, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLog.Close()

	fmt.Println("Extracting syllables...")

	count, err := extract(flags.input, flags.output)
	if err != nil {
		appLog.Error("Failed to extract syllables from %s: %v", flags.input, err)

		return err
	}

	appLog.Info("Wrote %d words from %s to %s", count, flags.input, flags.output)
	fmt.Printf("\nSyllables saved to: %s\n", flags.output)

	return nil
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("syllabize", flag.ContinueOnError)
	flagSet.StringVar(&flags.input, flagInput, defaultInput, flagInputDesc)
	flagSet.StringVar(&flags.output, flagOutput, defaultOutput, flagOutputDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return flags, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

// extract writes the manifest for the distinct words of input and returns the number
// of words written.
func extract(input, output string) (int, error) {
	file, err := os.Open(input)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", input, err)
	}

	words := text.NewPreprocessor().ExtractWords(string(content))
	entries := manifest.Build(words, syllable.Split)

	dirErr := fileutil.EnsureDir(filepath.Dir(output))
	if dirErr != nil {
		return 0, dirErr
	}

	writeErr := entries.WriteFile(output)
	if writeErr != nil {
		return 0, writeErr
	}

	return len(entries), nil
}
