// Package pipeline partitions a table into windows and chunks and drives the
// normalize -> split -> extract -> classify -> aggregate sequence per chunk.
package pipeline

import "github.com/hyperjump/radlabel/internal/models"

// Splitter turns a normalized report into a sentence-segmented document.
type Splitter interface {
	Split(id, text string) *models.Document
}

// Extractor adds candidate mention annotations to each document.
type Extractor interface {
	Extract(docs []*models.Document) error
}

// Classifier marks the mention annotations of each document as negated or uncertain, in place.
type Classifier interface {
	Classify(docs []*models.Document) error
}

// Aggregator reduces each document's annotations to one label per category.
// It must not modify the documents and returns a [len(docs) x categories] matrix.
type Aggregator interface {
	Aggregate(docs []*models.Document) (models.LabelMatrix, error)
	Categories() []string
}

// Engines groups the rule engines used for every chunk. The engines may be
// shared between concurrently running chunks only if they keep no per-call state.
type Engines struct {
	Splitter   Splitter
	Extractor  Extractor
	Classifier Classifier
	Aggregator Aggregator
}
