// Package normalize turns raw report fields into the canonical single-sentence form fed to the rule engines.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// dotRunLimit is the run of periods that forces another collapse-and-split pass.
const dotRunLimit = ".........."

var (
	multiDot      = regexp.MustCompile(`\.{2,}`)
	sentenceEnd   = regexp.MustCompile(`\.(\s|$)`)
	emptySentence = regexp.MustCompile(`\.\s+\.`)
	punctSpacer   = strings.NewReplacer(".", ". ", ",", ", ")
)

// Normalize cleans a raw report into a quoted, single-sentence string.
// It never fails and Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(raw string) string {
	return Structure(Clean(raw))
}

// Clean applies the content rewrites: lower-casing, slash expansion, period
// and comma spacing, whitespace collapsing and removal of empty sentences.
func Clean(text string) string {
	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, "and/or", "or")
	s = expandLetterSlash(s)
	s = strings.ReplaceAll(s, "..", ".")
	s = punctSpacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return emptySentence.ReplaceAllString(s, ".")
}

// Structure quotes the field, splits it into sentences and keeps the first one,
// terminated by a single period. Input without any sentence yields `"."`.
func Structure(text string) string {
	quote, inner := unwrap(text)
	frags := Fragments(inner)
	if len(frags) == 0 {
		return quote + "." + quote
	}
	first := strings.TrimRightFunc(frags[0], unicode.IsSpace)
	return quote + first + "." + quote
}

// Fragments collapses period runs and newline-periods, then splits on a period
// followed by whitespace or end of text. Empty and whitespace-only pieces are dropped.
func Fragments(text string) []string {
	frags := splitSentences(collapse(text))
	for hasDotRun(frags) {
		next := make([]string, 0, len(frags))
		for _, f := range frags {
			next = append(next, splitSentences(collapse(f))...)
		}
		frags = next
	}
	return frags
}

// unwrap returns the quote character and the quoted body. Fields not fully
// wrapped in matching quotes get double quotes, with inner double quotes escaped.
func unwrap(s string) (quote, inner string) {
	if len(s) >= 2 {
		q := s[0]
		if (q == '"' || q == '\'') && s[len(s)-1] == q {
			return string(q), s[1 : len(s)-1]
		}
	}
	return `"`, strings.ReplaceAll(s, `"`, `\"`)
}

// collapse repeats the period collapses until the text stops changing.
// Every effective pass shortens the text, so the loop terminates.
func collapse(s string) string {
	for {
		next := strings.TrimSpace(multiDot.ReplaceAllString(s, "."))
		next = strings.TrimSpace(strings.ReplaceAll(next, "\n.", "."))
		if next == s {
			return s
		}
		s = next
	}
}

func splitSentences(s string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(s, -1) {
		out = appendNonBlank(out, s[start:loc[0]])
		start = loc[1]
	}
	return appendNonBlank(out, s[start:])
}

func appendNonBlank(out []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return out
	}
	return append(out, s)
}

func hasDotRun(frags []string) bool {
	for _, f := range frags {
		if strings.Contains(f, dotRunLimit) {
			return true
		}
	}
	return false
}

// expandLetterSlash rewrites "x/y" to "x or y" when both neighbours are ASCII letters.
func expandLetterSlash(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '/' && i > 0 && i+1 < len(s) && isASCIILetter(s[i-1]) && isASCIILetter(s[i+1]) {
			b.WriteString(" or ")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
