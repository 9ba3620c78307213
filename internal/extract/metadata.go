package extract

import (
	"strings"
	"unicode/utf8"
)

// Count applies the shared counting rule: words are whitespace-separated
// tokens, characters are Unicode code points.
func Count(text string) (words, characters int) {
	return len(strings.Fields(text)), utf8.RuneCountInString(text)
}

func textResult(text string) Result {
	words, chars := Count(text)
	return Result{
		Text:     text,
		Metadata: Metadata{Words: words, Characters: chars},
	}
}
