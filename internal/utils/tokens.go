package utils

import "unicode"

// CountTokens estimates the prompt size of text. Han, Hiragana, Katakana and
// Hangul runes count as one token each; every other run of four runes counts
// as one. Non-empty text is at least one token.
func CountTokens(text string) int {
	var wide, other int
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			wide++
		} else {
			other++
		}
	}
	n := wide + other/4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
