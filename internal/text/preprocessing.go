// Package text turns free text into the lowercase word keys used to look up recorded
// units.
//
// Keys are NFC-normalized, typographic apostrophes are folded into the ASCII
// apostrophe, and case is lowered with Ukrainian rules so that a key typed on any
// keyboard layout matches the directory name a unit was recorded under.
package text

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Regex pattern for hyphen runs.
const (
	hyphenRegexPattern = `[-‐‑‒–—]+`
)

// Punctuation handling constants.
const (
	// pauseMarks end a word that is followed by a longer pause.
	pauseMarks = ".!?,"
	// wordListTrimSet is stripped from both ends of words when building word lists.
	wordListTrimSet = `.,!?:;()[]{}"'«»„“”…`
	asciiApostrophe = "'"
	softSign        = 'ь'
)

// Token is one whitespace-separated word of the input text.
type Token struct {
	// Source is the word as written, including punctuation.
	Source string
	// Key is the normalized lookup key. It is empty for tokens made only of punctuation.
	Key string
	// PauseAfter is set when Source ends with a pause mark.
	PauseAfter bool
}

// Preprocessor normalizes text for unit lookup.
type Preprocessor struct {
	hyphenPattern *regexp.Regexp
	// Folds typographic apostrophes into the ASCII one.
	apostropheReplacer *strings.Replacer
	lang               language.Tag
}

// NewPreprocessor creates a preprocessor with compiled patterns and replacers.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		hyphenPattern: regexp.MustCompile(hyphenRegexPattern),
		apostropheReplacer: strings.NewReplacer(
			"’", asciiApostrophe,
			"ʼ", asciiApostrophe,
			"‘", asciiApostrophe,
			"`", asciiApostrophe,
			"′", asciiApostrophe,
		),
		lang: language.Ukrainian,
	}
}

// Normalize returns the canonical form of a single word: NFC, ASCII apostrophes,
// lowercase.
func (p *Preprocessor) Normalize(word string) string {
	normalized := norm.NFC.String(word)
	normalized = p.apostropheReplacer.Replace(normalized)

	return cases.Lower(p.lang).String(normalized)
}

// Tokenize splits text on whitespace and derives a lookup key for every word.
// Tokens without any letter or digit are dropped.
func (p *Preprocessor) Tokenize(text string) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))

	for _, field := range fields {
		key := strings.TrimFunc(p.Normalize(field), isNotWordRune)
		if key == "" {
			continue
		}

		tokens = append(tokens, Token{
			Source:     field,
			Key:        key,
			PauseAfter: endsWithPause(field),
		})
	}

	return tokens
}

// Keys returns the lookup keys of Tokenize in order.
func (p *Preprocessor) Keys(text string) []string {
	tokens := p.Tokenize(text)
	keys := make([]string, len(tokens))

	for i, token := range tokens {
		keys[i] = token.Key
	}

	return keys
}

// ExtractWords returns the distinct words of text, sorted. Hyphens separate words,
// surrounding punctuation is stripped, and words containing anything other than letters
// and apostrophes are discarded.
func (p *Preprocessor) ExtractWords(text string) []string {
	seen := make(map[string]struct{})

	for _, field := range strings.Fields(p.hyphenPattern.ReplaceAllString(text, " ")) {
		word := strings.Trim(p.Normalize(field), wordListTrimSet)
		if word == "" || !isWord(word) {
			continue
		}

		seen[word] = struct{}{}
	}

	words := make([]string, 0, len(seen))
	for word := range seen {
		words = append(words, word)
	}

	sort.Strings(words)

	return words
}

// SplitWordList splits a recording list into normalized words, keeping file order.
// Newlines, spaces, and hyphens all separate entries.
func (p *Preprocessor) SplitWordList(content string) []string {
	fields := strings.Fields(p.hyphenPattern.ReplaceAllString(content, " "))
	words := make([]string, 0, len(fields))

	for _, field := range fields {
		word := p.Normalize(strings.TrimSpace(field))
		if word != "" {
			words = append(words, word)
		}
	}

	return words
}

func endsWithPause(word string) bool {
	if word == "" {
		return false
	}

	return strings.ContainsAny(word[len(word)-1:], pauseMarks)
}

func isNotWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isWord(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) && string(r) != asciiApostrophe && r != softSign {
			return false
		}
	}

	return true
}
