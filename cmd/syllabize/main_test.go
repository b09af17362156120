package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/unit-tts/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	flags, err := parseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "words.txt", flags.input)
	assert.Equal(t, filepath.Join("dataset", "unique_syllables.txt"), flags.output)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "words.txt")
	output := filepath.Join(dir, "dataset", manifest.DefaultFileName)

	content := "Привіт, світ!\nСлово-привіт сонце 42 (сім'я)\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o600))

	count, err := extract(input, output)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "привіт при віт\nсвіт світ\nслово сло во\nсонце сон це\nсім'я сі м'я\n", string(written))

	loaded, err := manifest.LoadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"при", "віт"}, loaded["привіт"])
}

func TestExtract_MissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := extract(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "out.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
