package markup

import (
	"iter"
	"strings"
	"unicode"
)

// Sentences splits text at '.', '?' and '!' when followed by whitespace or the
// end of the text. A period between digits, as in "2.5 cm", does not end a
// sentence. Blank sentences are skipped.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i := 0; i < len(text); i++ {
			switch text[i] {
			case '.', '?', '!':
			default:
				continue
			}
			if i+1 < len(text) && !unicode.IsSpace(rune(text[i+1])) {
				continue
			}
			s := strings.TrimSpace(text[start : i+1])
			start = i + 1
			if s == "" {
				continue
			}
			if !yield(s) {
				return
			}
		}
		if s := strings.TrimSpace(text[start:]); s != "" {
			yield(s)
		}
	}
}
