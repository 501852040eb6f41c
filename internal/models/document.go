// Package models defines core data structures for reports, documents, labels, and window runs.
package models

// Report is the free-text report field of one table row.
// Row is the index within the current window, not within the source table.
type Report struct {
	Row  int    `json:"row"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Document is a sentence-segmented report consumed by the rule engines.
// Text and the passage/sentence structure are fixed once split; each passage
// carries an annotation store that the labeling stages extend in place.
type Document struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Passages []Passage `json:"passages"`
}

// Passage is a contiguous block of a document.
type Passage struct {
	Offset      int          `json:"offset"`
	Text        string       `json:"text"`
	Sentences   []Sentence   `json:"sentences"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Sentence is one sentence of a passage. Offset is a byte offset into the passage text.
type Sentence struct {
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

// Annotation is a mention of a finding category found in a sentence.
// Start and End are byte offsets into the passage text.
type Annotation struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Phrase    string `json:"phrase"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Sentence  int    `json:"sentence"`
	Negated   bool   `json:"negated,omitempty"`
	Uncertain bool   `json:"uncertain,omitempty"`
}

// Text returns the annotated span of the passage.
func (a Annotation) Text(p *Passage) string {
	if a.Start < 0 || a.End > len(p.Text) || a.Start > a.End {
		return ""
	}
	return p.Text[a.Start:a.End]
}

// AnnotationCount returns the number of annotations across all passages.
func (d *Document) AnnotationCount() int {
	n := 0
	for i := range d.Passages {
		n += len(d.Passages[i].Annotations)
	}
	return n
}
