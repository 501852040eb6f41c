// Package ssplit splits cleaned report text into single-passage documents of sentences.
package ssplit

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/radlabel/internal/models"
)

// Splitter segments text into sentences. Newlines are not sentence boundaries.
type Splitter struct{}

// NewSplitter returns a Splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split returns a document with exactly one passage holding the sentences of text.
// Blank text yields a passage with no sentences.
func (s *Splitter) Split(id, text string) *models.Document {
	return &models.Document{
		ID:   id,
		Text: text,
		Passages: []models.Passage{{
			Offset:    0,
			Text:      text,
			Sentences: Sentences(text),
		}},
	}
}

// Sentences returns the non-blank sentences of text with byte offsets into text.
func Sentences(text string) []models.Sentence {
	var out []models.Sentence
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) {
			continue
		}
		end := i + 1
		// Closing quotes stay with the sentence they terminate.
		for end < len(text) && isClosingQuote(text[end]) {
			end++
		}
		if !atBoundary(text, end) {
			continue
		}
		out = appendSentence(out, text, start, end)
		start = end
		i = end - 1
	}
	return appendSentence(out, text, start, len(text))
}

func appendSentence(out []models.Sentence, text string, start, end int) []models.Sentence {
	seg := text[start:end]
	trimmed := strings.TrimLeftFunc(seg, unicode.IsSpace)
	offset := start + len(seg) - len(trimmed)
	trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	if trimmed == "" || isPunctuationOnly(trimmed) && len(out) > 0 {
		return out
	}
	return append(out, models.Sentence{Offset: offset, Text: trimmed})
}

func atBoundary(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}

func isTerminal(c byte) bool {
	return c == '.' || c == '?' || c == '!'
}

func isClosingQuote(c byte) bool {
	return c == '"' || c == '\''
}

func isPunctuationOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
