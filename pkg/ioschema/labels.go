package ioschema

import (
	"regexp"
	"strings"
	"unicode"
)

var labelSeparators = regexp.MustCompile(`[_\-\s.]+`)

// Labeler turns a property name into a display label.
type Labeler func(name string) string

// DefaultLabeler splits on underscores, dashes, dots and camelCase
// boundaries and capitalises each word: "ground_truth" -> "Ground Truth",
// "maxIoU" -> "Max Io U".
func DefaultLabeler(name string) string {
	var words []string
	for _, chunk := range labelSeparators.Split(name, -1) {
		for _, word := range splitCamel(chunk) {
			words = append(words, capitalise(word))
		}
	}
	return strings.Join(words, " ")
}

func splitCamel(chunk string) []string {
	if chunk == "" {
		return nil
	}
	runes := []rune(chunk)
	var (
		words []string
		start int
	)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := (unicode.IsLower(prev) && unicode.IsUpper(cur)) ||
			(unicode.IsLetter(prev) && unicode.IsDigit(cur)) ||
			(unicode.IsDigit(prev) && unicode.IsLetter(cur))
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

func capitalise(word string) string {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
