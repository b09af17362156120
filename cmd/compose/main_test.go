package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/composer"
	"github.com/book-expert/unit-tts/internal/config"
	"github.com/book-expert/unit-tts/internal/library"
	"github.com/book-expert/unit-tts/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 16000

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, flags appFlags)
	}{
		{
			name:    "defaults",
			args:    []string{},
			wantErr: nil,
			check: func(t *testing.T, flags appFlags) {
				t.Helper()
				assert.True(t, flags.play)
				assert.False(t, flags.save)
				assert.Equal(t, defaultWords, flags.words)
				assert.Less(t, flags.gap, 0.0)
			},
		},
		{
			name:    "text and gap",
			args:    []string{"--text", "Привіт, світ!", "--gap", "0.5", "--save"},
			wantErr: nil,
			check: func(t *testing.T, flags appFlags) {
				t.Helper()
				assert.Equal(t, "Привіт, світ!", flags.text)
				assert.InEpsilon(t, 0.5, flags.gap, 1e-9)
				assert.True(t, flags.save)
			},
		},
		{
			name:    "nothing to do",
			args:    []string{"--play=false"},
			wantErr: errNothingToDo,
			check:   nil,
		},
		{
			name:    "no text and no words",
			args:    []string{"--words", "0"},
			wantErr: errInvalidWordCount,
			check:   nil,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			flags, err := parseFlags(testCase.args)
			if testCase.wantErr != nil {
				require.ErrorIs(t, err, testCase.wantErr)

				return
			}

			require.NoError(t, err)
			testCase.check(t, flags)
		})
	}
}

func TestParseFlags_UnknownFlag(t *testing.T) {
	t.Parallel()

	_, err := parseFlags([]string{"--chunks", "file.json"})
	require.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	applyOverrides(cfg, appFlags{
		text:      "",
		words:     defaultWords,
		gap:       0,
		save:      true,
		play:      false,
		outputDir: "out",
		dataset:   "units",
		config:    "",
	})

	assert.Zero(t, cfg.Composer.GapDuration)
	assert.Equal(t, "out", cfg.Paths.OutputDir)
	assert.Equal(t, "units", cfg.Paths.DatasetDir)
	assert.Equal(t, filepath.Join("units", manifest.DefaultFileName), cfg.Paths.ManifestFile)

	untouched := config.Default()
	applyOverrides(untouched, appFlags{
		text:      "",
		words:     defaultWords,
		gap:       unsetGapSeconds,
		save:      false,
		play:      true,
		outputDir: "",
		dataset:   "",
		config:    "",
	})
	assert.Equal(t, config.Default(), untouched)
}

func TestExecute_SavesComposedText(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	flags := appFlags{
		text:      "Привіт, невідоме світ",
		words:     defaultWords,
		gap:       unsetGapSeconds,
		save:      true,
		play:      false,
		outputDir: "",
		dataset:   "",
		config:    "",
	}

	var out bytes.Buffer

	err := execute(context.Background(), cfg, flags, nil, newTestLogger(t), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Skipped 'невідоме'")
	assert.Contains(t, out.String(), "Composed 2 words")

	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), composer.OutputFilePrefix))

	saved, err := audio.NewWAVCodec().Decode(filepath.Join(cfg.Paths.OutputDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, testSampleRate, saved.SampleRate())
	assert.Positive(t, saved.Len())
}

func TestExecute_NoPlayableWords(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	flags := appFlags{
		text:      "абракадабра",
		words:     defaultWords,
		gap:       unsetGapSeconds,
		save:      true,
		play:      false,
		outputDir: "",
		dataset:   "",
		config:    "",
	}

	var out bytes.Buffer

	err := execute(context.Background(), cfg, flags, nil, newTestLogger(t), &out)
	require.ErrorIs(t, err, composer.ErrNoPlayableWords)

	_, statErr := os.Stat(cfg.Paths.OutputDir)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRandomPhrase(t *testing.T) {
	t.Parallel()

	phrase, err := randomPhrase([]library.Word{"світ"}, 3)
	require.NoError(t, err)
	assert.Equal(t, "світ світ світ", phrase)

	_, err = randomPhrase(nil, 3)
	require.ErrorIs(t, err, errNoRecordedWords)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "compose-test.log")
	require.NoError(t, err)

	return testLogger
}

// newTestConfig records two words into a temporary dataset.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	datasetDir := t.TempDir()
	codec := audio.NewWAVCodec()

	for _, word := range []string{"привіт", "світ"} {
		dir := filepath.Join(datasetDir, word)
		require.NoError(t, os.MkdirAll(dir, 0o750))

		samples := make([]float64, testSampleRate/2)
		for i := range samples {
			samples[i] = 0.25
		}

		err := codec.Encode(audio.NewBuffer(samples, testSampleRate), filepath.Join(dir, library.RecordingFileName))
		require.NoError(t, err)
	}

	cfg := config.Default()
	cfg.Paths.DatasetDir = datasetDir
	cfg.Paths.ManifestFile = filepath.Join(datasetDir, manifest.DefaultFileName)
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "output")

	return cfg
}
