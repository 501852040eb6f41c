package rules

import (
	"errors"
	"fmt"

	"github.com/hyperjump/radlabel/internal/models"
)

const (
	NoFinding      = "No Finding"
	SupportDevices = "Support Devices"
)

// CategoryAggregator reduces mentions to one label per category per document.
// A positive mention beats an uncertain one, which beats a negated one.
// "No Finding" is positive when no other category besides "Support Devices"
// is positive or uncertain.
type CategoryAggregator struct {
	categories []string
	index      map[string]int
}

// NewCategoryAggregator creates an aggregator over the fixed category order.
func NewCategoryAggregator(categories []string) (*CategoryAggregator, error) {
	if len(categories) == 0 {
		return nil, errors.New("aggregator: no categories")
	}
	index := make(map[string]int, len(categories))
	for i, c := range categories {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("aggregator: duplicate category %q", c)
		}
		index[c] = i
	}
	return &CategoryAggregator{categories: append([]string(nil), categories...), index: index}, nil
}

// Categories returns the category order of every label vector.
func (g *CategoryAggregator) Categories() []string {
	return append([]string(nil), g.categories...)
}

// Aggregate returns a [len(docs) x categories] label matrix. Documents are not modified.
// Mentions of categories outside the configured list are ignored.
func (g *CategoryAggregator) Aggregate(docs []*models.Document) (models.LabelMatrix, error) {
	out := make(models.LabelMatrix, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("aggregator: document %d is nil", i)
		}
		out[i] = g.aggregate(doc)
	}
	return out, nil
}

func (g *CategoryAggregator) aggregate(doc *models.Document) models.LabelVector {
	v := make(models.LabelVector, len(g.categories))
	for i := range v {
		v[i] = models.Absent
	}
	for _, p := range doc.Passages {
		for _, a := range p.Annotations {
			idx, ok := g.index[a.Category]
			if !ok {
				continue
			}
			v[idx] = stronger(v[idx], mentionLabel(a))
		}
	}
	if idx, ok := g.index[NoFinding]; ok {
		v[idx] = models.Positive
		for i, c := range g.categories {
			if c == NoFinding || c == SupportDevices {
				continue
			}
			if v[i] == models.Positive || v[i] == models.Uncertain {
				v[idx] = models.Absent
				break
			}
		}
	}
	return v
}

func mentionLabel(a models.Annotation) models.Label {
	switch {
	case a.Negated:
		return models.Negative
	case a.Uncertain && a.Category == SupportDevices:
		return models.Positive
	case a.Uncertain:
		return models.Uncertain
	default:
		return models.Positive
	}
}

// stronger returns the label with higher precedence: Positive > Uncertain > Negative > Absent.
func stronger(a, b models.Label) models.Label {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func rank(l models.Label) int {
	switch l {
	case models.Positive:
		return 3
	case models.Uncertain:
		return 2
	case models.Negative:
		return 1
	default:
		return 0
	}
}
