// Package manifest reads and writes the decomposition manifest: one word per line
// followed by its syllables, separated by whitespace.
//
//	привіт при віт
//	слово сло во
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// DefaultFileName is the manifest's name inside a dataset directory.
const DefaultFileName = "unique_syllables.txt"

const manifestFilePermissions = 0o644

// Manifest maps a word to its ordered syllables.
type Manifest map[string][]string

// Load parses a manifest. Blank lines and lines with a word but no syllables are
// ignored. A later line for the same word replaces an earlier one.
func Load(reader io.Reader) (Manifest, error) {
	entries := make(Manifest)
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		entries[fields[0]] = fields[1:]
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", scanErr)
	}

	return entries, nil
}

// LoadFile reads the manifest at path. A missing file yields an empty manifest.
func LoadFile(path string) (Manifest, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(Manifest), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer file.Close()

	entries, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return entries, nil
}

// Build decomposes every word with split.
func Build(words []string, split func(string) []string) Manifest {
	entries := make(Manifest, len(words))

	for _, word := range words {
		entries[word] = split(word)
	}

	return entries
}

// Words returns the manifest's words in sorted order.
func (m Manifest) Words() []string {
	words := make([]string, 0, len(m))
	for word := range m {
		words = append(words, word)
	}

	sort.Strings(words)

	return words
}

// Syllables returns every distinct syllable in the manifest, sorted.
func (m Manifest) Syllables() []string {
	seen := make(map[string]struct{})

	for _, syllables := range m {
		for _, s := range syllables {
			seen[s] = struct{}{}
		}
	}

	distinct := make([]string, 0, len(seen))
	for s := range seen {
		distinct = append(distinct, s)
	}

	sort.Strings(distinct)

	return distinct
}

// Write emits the manifest one word per line in sorted word order.
func (m Manifest) Write(writer io.Writer) error {
	buffered := bufio.NewWriter(writer)

	for _, word := range m.Words() {
		_, err := fmt.Fprintf(buffered, "%s %s\n", word, strings.Join(m[word], " "))
		if err != nil {
			return fmt.Errorf("failed to write manifest entry %q: %w", word, err)
		}
	}

	flushErr := buffered.Flush()
	if flushErr != nil {
		return fmt.Errorf("failed to flush manifest: %w", flushErr)
	}

	return nil
}

// WriteFile writes the manifest to path, replacing any existing file.
func (m Manifest) WriteFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, manifestFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create manifest %s: %w", path, err)
	}

	writeErr := m.Write(file)
	closeErr := file.Close()

	if writeErr != nil {
		return writeErr
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close manifest %s: %w", path, closeErr)
	}

	return nil
}
