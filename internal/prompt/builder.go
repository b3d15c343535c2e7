// Package prompt assembles the text prompts sent to providers. Stage
// templates are embedded in the binary; callers pass parameters and get
// back an opaque prompt string.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Stage template names
const (
	StageOutline    = "outline"
	StageChapter    = "chapter"
	StageConclusion = "conclusion"
)

// ErrUnknownStage is returned when no template exists for a stage name.
var ErrUnknownStage = errors.New("unknown prompt stage")

// OutlineData parameterizes the outline-stage prompt.
type OutlineData struct {
	SourceText string
}

// ChapterData parameterizes one chapter-stage prompt. SectionTitles is the
// full outline so each chapter call sees the whole structure.
type ChapterData struct {
	ReportTitle   string
	SectionTitles []string
	Index         int
	SectionTitle  string
	SourceText    string
}

// ConclusionData parameterizes the conclusion-stage prompt.
type ConclusionData struct {
	ReportTitle string
	Chapters    []string
}

// Builder renders stage prompts from the embedded templates.
type Builder struct {
	templates *template.Template
}

// NewBuilder parses the embedded stage templates.
func NewBuilder() (*Builder, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	return &Builder{templates: tmpl}, nil
}

// Build renders the named stage template with the given data.
func (b *Builder) Build(stage string, data interface{}) (string, error) {
	tmpl := b.templates.Lookup(stage + ".tmpl")
	if tmpl == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", stage, err)
	}

	return buf.String(), nil
}
