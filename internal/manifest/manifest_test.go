package manifest_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/unit-tts/internal/manifest"
	"github.com/book-expert/unit-tts/internal/syllable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	input := "привіт при віт\n\nсвіт\nслово  сло\tво\nпривіт пр и віт\n"

	entries, err := manifest.Load(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, manifest.Manifest{
		"привіт": {"пр", "и", "віт"},
		"слово":  {"сло", "во"},
	}, entries)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	entries, err := manifest.LoadFile(filepath.Join(t.TempDir(), manifest.DefaultFileName))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildAndWrite(t *testing.T) {
	t.Parallel()

	entries := manifest.Build([]string{"слово", "країна", "світ"}, syllable.Split)

	var output bytes.Buffer
	require.NoError(t, entries.Write(&output))

	assert.Equal(t, "країна кра ї на\nсвіт світ\nслово сло во\n", output.String())
	assert.Equal(t, []string{"во", "кра", "на", "світ", "сло", "ї"}, entries.Syllables())
}

func TestWriteFile_LoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), manifest.DefaultFileName)
	entries := manifest.Build([]string{"сім'я", "батько"}, syllable.Split)

	require.NoError(t, entries.WriteFile(path))

	loaded, err := manifest.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
	assert.Equal(t, []string{"батько", "сім'я"}, loaded.Words())
}
