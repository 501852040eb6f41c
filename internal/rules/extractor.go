package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/radlabel/internal/models"
)

type phraseRule struct {
	category string
	phrase   string
	re       *regexp.Regexp
}

// PhraseExtractor finds mention phrases in sentences. Matches overlapping an
// unmention phrase are dropped. It holds only compiled rules and is safe for concurrent use.
type PhraseExtractor struct {
	mentions   []phraseRule
	unmentions []phraseRule
}

// NewPhraseExtractor compiles mention and unmention phrases keyed by category.
func NewPhraseExtractor(mention, unmention map[string][]string) (*PhraseExtractor, error) {
	mentions, err := compilePhrases(mention)
	if err != nil {
		return nil, err
	}
	unmentions, err := compilePhrases(unmention)
	if err != nil {
		return nil, err
	}
	return &PhraseExtractor{mentions: mentions, unmentions: unmentions}, nil
}

// LoadPhraseExtractor reads phrase files from the mention and unmention directories.
// unmentionDir may be empty.
func LoadPhraseExtractor(mentionDir, unmentionDir string) (*PhraseExtractor, error) {
	mention, err := LoadPhrases(mentionDir)
	if err != nil {
		return nil, fmt.Errorf("mention phrases: %w", err)
	}
	unmention := map[string][]string{}
	if unmentionDir != "" {
		if unmention, err = LoadPhrases(unmentionDir); err != nil {
			return nil, fmt.Errorf("unmention phrases: %w", err)
		}
	}
	return NewPhraseExtractor(mention, unmention)
}

// Categories returns the categories that have at least one mention phrase.
func (e *PhraseExtractor) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range e.mentions {
		if !seen[r.category] {
			seen[r.category] = true
			out = append(out, r.category)
		}
	}
	return out
}

// Extract appends an annotation for every mention match to each document's passages.
func (e *PhraseExtractor) Extract(docs []*models.Document) error {
	for _, doc := range docs {
		for pi := range doc.Passages {
			e.extractPassage(&doc.Passages[pi])
		}
	}
	return nil
}

func (e *PhraseExtractor) extractPassage(p *models.Passage) {
	next := len(p.Annotations)
	for si, s := range p.Sentences {
		blocked := e.unmentionSpans(s.Text)
		seen := make(map[[2]int]map[string]bool)
		for _, rule := range e.mentions {
			for _, loc := range rule.re.FindAllStringIndex(s.Text, -1) {
				span := [2]int{loc[0], loc[1]}
				if overlapsAny(span, blocked) || seen[span][rule.category] {
					continue
				}
				if seen[span] == nil {
					seen[span] = make(map[string]bool)
				}
				seen[span][rule.category] = true
				p.Annotations = append(p.Annotations, models.Annotation{
					ID:       strconv.Itoa(next),
					Category: rule.category,
					Phrase:   rule.phrase,
					Start:    s.Offset + loc[0],
					End:      s.Offset + loc[1],
					Sentence: si,
				})
				next++
			}
		}
	}
}

func (e *PhraseExtractor) unmentionSpans(text string) [][2]int {
	var spans [][2]int
	for _, rule := range e.unmentions {
		for _, loc := range rule.re.FindAllStringIndex(text, -1) {
			spans = append(spans, [2]int{loc[0], loc[1]})
		}
	}
	return spans
}

func overlapsAny(span [2]int, others [][2]int) bool {
	for _, o := range others {
		if span[0] < o[1] && o[0] < span[1] {
			return true
		}
	}
	return false
}

func compilePhrases(byCategory map[string][]string) ([]phraseRule, error) {
	var rules []phraseRule
	for _, category := range sortedKeys(byCategory) {
		for _, phrase := range byCategory[category] {
			re, err := phraseRegexp(phrase)
			if err != nil {
				return nil, fmt.Errorf("category %q phrase %q: %w", category, phrase, err)
			}
			rules = append(rules, phraseRule{category: category, phrase: phrase, re: re})
		}
	}
	return rules, nil
}

// phraseRegexp matches phrase case-insensitively with flexible inner whitespace,
// anchored on word boundaries where the phrase starts or ends with a word character.
func phraseRegexp(phrase string) (*regexp.Regexp, error) {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return nil, fmt.Errorf("empty phrase")
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	expr := strings.Join(quoted, `\s+`)
	joined := strings.Join(words, " ")
	if r, _ := utf8.DecodeRuneInString(joined); isWordRune(r) {
		expr = `\b` + expr
	}
	if r, _ := utf8.DecodeLastRuneInString(joined); isWordRune(r) {
		expr += `\b`
	}
	return regexp.Compile(`(?i)` + expr)
}

func isWordRune(r rune) bool {
	return r == '_' || r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
