// Package syllable splits Ukrainian words into syllables using vowel positions.
//
// Every syllable carries exactly one vowel. A single consonant between two vowels opens
// the next syllable; a longer cluster is divided in half. Apostrophes and the soft sign
// are never separated from the consonant they follow.
package syllable

import (
	"strings"
	"unicode/utf8"
)

// vowels is the Ukrainian vowel set.
const vowels = "аеєиіїоуюя"

// modifiers bind to the preceding letter. The typographic apostrophes are accepted
// alongside the ASCII one.
const modifiers = "'’ʼь"

// IsVowel reports whether r is a Ukrainian vowel.
func IsVowel(r rune) bool {
	return strings.ContainsRune(vowels, r)
}

// IsModifier reports whether r is an apostrophe or the soft sign.
func IsModifier(r rune) bool {
	return strings.ContainsRune(modifiers, r)
}

// unit is one letter together with any modifiers bound to it.
type unit struct {
	text string
	base rune
}

func (u unit) isVowel() bool {
	return IsVowel(u.base)
}

// Split returns the syllables of word in order. Joining them yields the lowercased
// word. Words of at most one letter, and words without vowels, are returned whole.
func Split(word string) []string {
	lowered := strings.ToLower(word)
	units := mergeModifiers(lowered)

	if len(units) <= 1 {
		return []string{lowered}
	}

	vowelPositions := make([]int, 0, len(units))

	for i, u := range units {
		if u.isVowel() {
			vowelPositions = append(vowelPositions, i)
		}
	}

	if len(vowelPositions) == 0 {
		return []string{lowered}
	}

	syllables := make([]string, 0, len(vowelPositions))

	var current strings.Builder

	current.WriteString(join(units[:vowelPositions[0]+1]))

	for i := 1; i < len(vowelPositions); i++ {
		cluster := units[vowelPositions[i-1]+1 : vowelPositions[i]]
		vowel := units[vowelPositions[i]].text

		splitAt := clusterSplit(cluster)

		current.WriteString(join(cluster[:splitAt]))
		syllables = append(syllables, current.String())

		current.Reset()
		current.WriteString(join(cluster[splitAt:]))
		current.WriteString(vowel)
	}

	current.WriteString(join(units[vowelPositions[len(vowelPositions)-1]+1:]))
	syllables = append(syllables, current.String())

	return dropEmpty(syllables, lowered)
}

// clusterSplit returns how many units of the consonant cluster stay with the
// preceding syllable.
func clusterSplit(cluster []unit) int {
	if len(cluster) <= 1 {
		return 0
	}

	return len(cluster) / 2
}

// mergeModifiers groups the word into units, attaching each modifier to the letter
// before it. A modifier with no preceding letter stands alone.
func mergeModifiers(word string) []unit {
	units := make([]unit, 0, utf8.RuneCountInString(word))

	for _, r := range word {
		if IsModifier(r) && len(units) > 0 {
			last := &units[len(units)-1]
			last.text += string(r)

			continue
		}

		units = append(units, unit{text: string(r), base: r})
	}

	return units
}

func join(units []unit) string {
	var builder strings.Builder

	for _, u := range units {
		builder.WriteString(u.text)
	}

	return builder.String()
}

func dropEmpty(syllables []string, word string) []string {
	kept := syllables[:0]

	for _, s := range syllables {
		if s != "" {
			kept = append(kept, s)
		}
	}

	if len(kept) == 0 {
		return []string{word}
	}

	return kept
}
