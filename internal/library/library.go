// Package library indexes recorded units on disk and resolves words to audio, either
// from a whole-word recording or by joining syllable recordings.
package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/core"
	"github.com/book-expert/unit-tts/internal/manifest"
	"github.com/book-expert/unit-tts/internal/syllable"
)

// Storage layout of a unit directory.
const (
	RecordingFileName    = "recording.wav"
	RawFileName          = "raw.wav"
	AlternateTakePattern = "recording_*.wav"
)

// DEFAULT_SYLLABLE_CROSSFADE_S is the overlap between joined syllables.
const DEFAULT_SYLLABLE_CROSSFADE_S = 0.02

var (
	// ErrSyllableNotFound is returned when a word needs a syllable that was never recorded.
	ErrSyllableNotFound = errors.New("syllable not recorded")
	// ErrEmptyWord is returned when asked to resolve an empty word.
	ErrEmptyWord = errors.New("word cannot be empty")
)

// Word is the key of a whole-word recording.
type Word string

// Syllable is the key of a syllable recording.
type Syllable string

// Source tells how a word was resolved.
type Source int

const (
	// SourceWholeWord means the word has its own recording.
	SourceWholeWord Source = iota
	// SourceSyllables means the word was joined from syllable recordings.
	SourceSyllables
)

func (s Source) String() string {
	if s == SourceWholeWord {
		return "whole word"
	}

	return "syllables"
}

// Resolution is the audio for one word.
type Resolution struct {
	Audio  audio.Buffer
	Source Source
	// Syllables lists the units joined when Source is SourceSyllables.
	Syllables []Syllable
}

// MissingSyllablesError lists every unrecorded syllable of a word.
type MissingSyllablesError struct {
	Word    Word
	Missing []Syllable
}

func (e *MissingSyllablesError) Error() string {
	names := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		names[i] = string(s)
	}

	return fmt.Sprintf("%s for %q: %s", ErrSyllableNotFound, e.Word, strings.Join(names, ", "))
}

func (e *MissingSyllablesError) Unwrap() error {
	return ErrSyllableNotFound
}

type options struct {
	cacheSize    int
	crossfade    float64
	rng          *rand.Rand
	split        func(string) []string
	manifest     manifest.Manifest
	manifestPath string
}

// Option configures a Library.
type Option func(*options)

// WithCacheSize sets how many decoded recordings are kept in memory.
func WithCacheSize(size int) Option {
	return func(o *options) { o.cacheSize = size }
}

// WithCrossfade sets the overlap in seconds between joined syllables.
func WithCrossfade(seconds float64) Option {
	return func(o *options) { o.crossfade = seconds }
}

// WithRand sets the source used to pick among alternate syllable takes.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithSplitter replaces the syllable splitter used for words missing from the manifest.
func WithSplitter(split func(string) []string) Option {
	return func(o *options) { o.split = split }
}

// WithManifest supplies the word decompositions directly.
func WithManifest(entries manifest.Manifest) Option {
	return func(o *options) { o.manifest = entries }
}

// WithManifestFile reads word decompositions from path instead of the dataset's own
// manifest.
func WithManifestFile(path string) Option {
	return func(o *options) { o.manifestPath = path }
}

// Library resolves words to audio from a directory of recorded units.
// The indexes are fixed after New; the cache and random source are guarded by mu.
type Library struct {
	decoder       core.Decoder
	log           *logger.Logger
	words         map[Word]string
	syllables     map[Syllable][]string
	decomposition manifest.Manifest
	split         func(string) []string
	crossfade     float64
	cache         *Cache

	mu  sync.Mutex
	rng *rand.Rand
}

// New scans root and builds the unit indexes.
func New(root string, decoder core.Decoder, log *logger.Logger, opts ...Option) (*Library, error) {
	settings := options{
		cacheSize:    DEFAULT_CACHE_SIZE,
		crossfade:    DEFAULT_SYLLABLE_CROSSFADE_S,
		rng:          nil,
		split:        syllable.Split,
		manifest:     nil,
		manifestPath: filepath.Join(root, manifest.DefaultFileName),
	}

	for _, opt := range opts {
		opt(&settings)
	}

	if settings.rng == nil {
		seed := uint64(time.Now().UnixNano())
		settings.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	cache, err := NewCache(settings.cacheSize)
	if err != nil {
		return nil, err
	}

	decomposition := settings.manifest
	if decomposition == nil {
		decomposition, err = manifest.LoadFile(settings.manifestPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load syllable manifest: %w", err)
		}
	}

	words, syllables, err := scan(root)
	if err != nil {
		return nil, err
	}

	log.Info("Loaded %d words and %d syllables from %s", len(words), len(syllables), root)

	return &Library{
		decoder:       decoder,
		log:           log,
		words:         words,
		syllables:     syllables,
		decomposition: decomposition,
		split:         settings.split,
		crossfade:     settings.crossfade,
		cache:         cache,
		mu:            sync.Mutex{},
		rng:           settings.rng,
	}, nil
}

// scan registers every child directory holding a canonical recording as both a word
// and a syllable. Alternate takes only extend the syllable's set.
func scan(root string) (map[Word]string, map[Syllable][]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dataset directory %s: %w", root, err)
	}

	words := make(map[Word]string)
	syllables := make(map[Syllable][]string)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		recording := filepath.Join(dir, RecordingFileName)

		info, statErr := os.Stat(recording)
		if statErr != nil || info.IsDir() {
			continue
		}

		takes, globErr := filepath.Glob(filepath.Join(dir, AlternateTakePattern))
		if globErr != nil {
			return nil, nil, fmt.Errorf("failed to list takes in %s: %w", dir, globErr)
		}

		sort.Strings(takes)

		words[Word(entry.Name())] = recording
		syllables[Syllable(entry.Name())] = append([]string{recording}, takes...)
	}

	return words, syllables, nil
}

// GetAudio returns the audio for word. A whole-word recording wins; otherwise the
// word is joined from its syllables, and every syllable must have been recorded.
func (l *Library) GetAudio(word string) (Resolution, error) {
	key := Word(strings.ToLower(strings.TrimSpace(word)))
	if key == "" {
		return Resolution{}, ErrEmptyWord
	}

	if path, ok := l.words[key]; ok {
		buffer, err := l.load(path)
		if err != nil {
			return Resolution{}, err
		}

		return Resolution{Audio: buffer, Source: SourceWholeWord, Syllables: nil}, nil
	}

	units := l.Syllables(string(key))

	paths, err := l.pickTakes(key, units)
	if err != nil {
		return Resolution{}, err
	}

	joined, err := l.join(key, paths)
	if err != nil {
		return Resolution{}, err
	}

	return Resolution{Audio: joined, Source: SourceSyllables, Syllables: units}, nil
}

// pickTakes chooses one recording per syllable, failing with every missing syllable.
func (l *Library) pickTakes(key Word, units []Syllable) ([]string, error) {
	var missing []Syllable

	paths := make([]string, 0, len(units))

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, unit := range units {
		takes, ok := l.syllables[unit]
		if !ok {
			missing = append(missing, unit)

			continue
		}

		paths = append(paths, takes[l.rng.IntN(len(takes))])
	}

	if len(missing) > 0 {
		return nil, &MissingSyllablesError{Word: key, Missing: missing}
	}

	return paths, nil
}

func (l *Library) join(key Word, paths []string) (audio.Buffer, error) {
	var joined audio.Buffer

	for i, path := range paths {
		buffer, err := l.load(path)
		if err != nil {
			return audio.Buffer{}, err
		}

		if i == 0 {
			joined = buffer

			continue
		}

		joined, err = audio.Crossfade(joined, buffer, l.crossfade)
		if err != nil {
			return audio.Buffer{}, fmt.Errorf("failed to join syllables of %q: %w", key, err)
		}
	}

	return joined, nil
}

func (l *Library) load(path string) (audio.Buffer, error) {
	if buffer, ok := l.cache.Get(path); ok {
		return buffer, nil
	}

	buffer, err := l.decoder.Decode(path)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	l.cache.Put(path, buffer)

	return buffer, nil
}

// Syllables returns the decomposition of word: the manifest entry when present,
// otherwise the splitter's output.
func (l *Library) Syllables(word string) []Syllable {
	parts, ok := l.decomposition[word]
	if !ok {
		parts = l.split(word)
	}

	units := make([]Syllable, len(parts))
	for i, part := range parts {
		units[i] = Syllable(part)
	}

	return units
}

// Words returns the recorded words, sorted.
func (l *Library) Words() []Word {
	words := make([]Word, 0, len(l.words))
	for word := range l.words {
		words = append(words, word)
	}

	sort.Slice(words, func(i, j int) bool { return words[i] < words[j] })

	return words
}

// SyllableKeys returns the recorded syllables, sorted.
func (l *Library) SyllableKeys() []Syllable {
	keys := make([]Syllable, 0, len(l.syllables))
	for key := range l.syllables {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

// CacheLen returns the number of decoded recordings held in memory.
func (l *Library) CacheLen() int {
	return l.cache.Len()
}
