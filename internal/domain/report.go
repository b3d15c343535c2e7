package domain

import (
	"errors"
	"strings"
	"time"
)

// Common validation errors for Report
var (
	ErrEmptyReportTitle    = errors.New("report title cannot be empty")
	ErrEmptyReportOutline  = errors.New("report outline cannot be empty")
	ErrChapterCountMismatch = errors.New("chapter count does not match outline section count")
)

// Section is a single entry of a generated outline: an index-ordered
// chapter heading the pipeline will expand into a full chapter.
type Section struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// Outline is the structured result of the first pipeline stage: a
// normalized report title plus the ordered list of section headings.
type Outline struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Validate checks that the outline has a title and at least one section,
// and that section indexes are dense and in order.
func (o *Outline) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return ErrEmptyReportTitle
	}

	if len(o.Sections) == 0 {
		return ErrEmptyReportOutline
	}

	for i, s := range o.Sections {
		if s.Index != i {
			return errors.New("outline section indexes must be dense and ordered")
		}
		if strings.TrimSpace(s.Title) == "" {
			return errors.New("outline section title cannot be empty")
		}
	}

	return nil
}

// Chapter is one generated body section of the final report. Index always
// equals the originating outline section index, regardless of the order in
// which chapter generations completed.
type Chapter struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Report is the final assembled artifact of a completed analysis task.
type Report struct {
	Title      string    `json:"title"`
	Outline    Outline   `json:"outline"`
	Chapters   []Chapter `json:"chapters"`
	Conclusion string    `json:"conclusion"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewReport assembles a report from its generated parts. It validates that
// the chapter set covers the outline exactly, in outline order.
func NewReport(outline Outline, chapters []Chapter, conclusion string) (*Report, error) {
	if err := outline.Validate(); err != nil {
		return nil, err
	}

	if len(chapters) != len(outline.Sections) {
		return nil, ErrChapterCountMismatch
	}

	for i, ch := range chapters {
		if ch.Index != i {
			return nil, errors.New("chapters must be ordered by outline index")
		}
	}

	return &Report{
		Title:      outline.Title,
		Outline:    outline,
		Chapters:   chapters,
		Conclusion: conclusion,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Markdown renders the report as a single markdown document: title,
// chapters in outline order, then the conclusion.
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# " + r.Title + "\n\n")
	for _, ch := range r.Chapters {
		b.WriteString("## " + ch.Title + "\n\n")
		b.WriteString(strings.TrimSpace(ch.Body) + "\n\n")
	}
	if r.Conclusion != "" {
		b.WriteString("## Conclusion\n\n")
		b.WriteString(strings.TrimSpace(r.Conclusion) + "\n")
	}

	return b.String()
}
