package textstat

import "regexp"

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// CountWords counts the words in text, where a word is a maximal run of
// letters, digits, or underscores in any script. Empty or whitespace-only
// text counts as zero words.
func CountWords(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}
