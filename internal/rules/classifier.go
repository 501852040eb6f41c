package rules

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/hyperjump/radlabel/internal/models"
)

// MentionToken replaces the annotated span in the sentence before patterns are matched.
const MentionToken = "MENTION"

type pattern struct {
	source string
	re     *regexp.Regexp
}

// PatternClassifier marks mentions as uncertain or negated using regular
// expressions over the sentence, in which the mention span reads MENTION.
// Pre-negation uncertainty wins over negation, which wins over post-negation uncertainty.
type PatternClassifier struct {
	preNegationUncertainty  []pattern
	negation                []pattern
	postNegationUncertainty []pattern
}

// NewPatternClassifier compiles the three pattern lists.
func NewPatternClassifier(preNegationUncertainty, negation, postNegationUncertainty []string) (*PatternClassifier, error) {
	pre, err := compilePatterns(preNegationUncertainty)
	if err != nil {
		return nil, fmt.Errorf("pre-negation uncertainty: %w", err)
	}
	neg, err := compilePatterns(negation)
	if err != nil {
		return nil, fmt.Errorf("negation: %w", err)
	}
	post, err := compilePatterns(postNegationUncertainty)
	if err != nil {
		return nil, fmt.Errorf("post-negation uncertainty: %w", err)
	}
	return &PatternClassifier{preNegationUncertainty: pre, negation: neg, postNegationUncertainty: post}, nil
}

// LoadPatternClassifier reads one pattern per line from each of the three files.
func LoadPatternClassifier(preNegationUncertaintyPath, negationPath, postNegationUncertaintyPath string) (*PatternClassifier, error) {
	var lists [3][]pattern
	for i, path := range []string{preNegationUncertaintyPath, negationPath, postNegationUncertaintyPath} {
		lines, numbers, err := readRuleLines(path)
		if err != nil {
			return nil, err
		}
		for j, line := range lines {
			re, err := regexp.Compile(line)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), numbers[j], err)
			}
			lists[i] = append(lists[i], pattern{source: line, re: re})
		}
	}
	return &PatternClassifier{preNegationUncertainty: lists[0], negation: lists[1], postNegationUncertainty: lists[2]}, nil
}

// Classify sets Negated or Uncertain on every annotation of every document.
func (c *PatternClassifier) Classify(docs []*models.Document) error {
	for _, doc := range docs {
		for pi := range doc.Passages {
			p := &doc.Passages[pi]
			for ai := range p.Annotations {
				a := &p.Annotations[ai]
				if a.Sentence < 0 || a.Sentence >= len(p.Sentences) {
					return fmt.Errorf("document %s annotation %s: sentence %d out of range", doc.ID, a.ID, a.Sentence)
				}
				c.classify(a, masked(p.Sentences[a.Sentence], *a))
			}
		}
	}
	return nil
}

func (c *PatternClassifier) classify(a *models.Annotation, sentence string) {
	a.Negated, a.Uncertain = false, false
	switch {
	case matchAny(c.preNegationUncertainty, sentence):
		a.Uncertain = true
	case matchAny(c.negation, sentence):
		a.Negated = true
	case matchAny(c.postNegationUncertainty, sentence):
		a.Uncertain = true
	}
}

// masked returns the sentence text with the annotation span replaced by MentionToken.
func masked(s models.Sentence, a models.Annotation) string {
	start, end := a.Start-s.Offset, a.End-s.Offset
	if start < 0 || end > len(s.Text) || start > end {
		return s.Text
	}
	return s.Text[:start] + MentionToken + s.Text[end:]
}

func matchAny(patterns []pattern, s string) bool {
	for _, p := range patterns {
		if p.re.MatchString(s) {
			return true
		}
	}
	return false
}

func compilePatterns(sources []string) ([]pattern, error) {
	out := make([]pattern, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", src, err)
		}
		out = append(out, pattern{source: src, re: re})
	}
	return out, nil
}
