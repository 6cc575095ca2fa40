package entity

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler converts a field name into a human-friendly label. It splits
// on underscores/dashes and camelCase boundaries, so "airlineName" becomes
// "Airline Name" and "number_of_passengers" becomes "Number Of Passengers".
func DefaultLabeler(name string) string {
	if name == "" {
		return ""
	}

	words := splitWordsPattern.Split(name, -1)
	var segments []string
	for _, word := range words {
		if word == "" {
			continue
		}
		segments = append(segments, titleWords(splitCamel(word)))
	}
	return strings.TrimSpace(strings.Join(segments, " "))
}

// SingularLabel returns the human name of one record of a collection, so
// "cities" becomes "City".
func SingularLabel(collection string) string {
	return DefaultLabeler(singularize(collection))
}

// singularize covers the collection names the travel API uses. Irregular
// forms fall through unchanged.
func singularize(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(lower, "ss"):
		return name
	case strings.HasSuffix(lower, "s") && len(lower) > 1:
		return name[:len(name)-1]
	default:
		return name
	}
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	return (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) || (isDigit(prev) && isLetter(r))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func titleWords(phrase string) string {
	parts := strings.Fields(phrase)
	for i, part := range parts {
		parts[i] = titleCase(part)
	}
	return strings.Join(parts, " ")
}

func titleCase(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
