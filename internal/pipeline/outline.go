package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/benjamin1108/reinvent-insight/internal/domain"
)

// ErrMalformedOutline is returned when the outline stage response cannot
// be parsed into a title and section list.
var ErrMalformedOutline = errors.New("malformed outline response")

var sectionLineRe = regexp.MustCompile(`^(?:\d+[.)]|[-*])\s+(.+)$`)

// parseOutline extracts a report title and ordered section list from the
// outline-stage response. The expected shape is a "TITLE:" line followed
// by a numbered list, but the parser tolerates bullet lists and a bare
// first line as the title, since providers do not always follow
// instructions to the letter.
func parseOutline(text string) (domain.Outline, error) {
	var outline domain.Outline

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if rest, ok := cutPrefixFold(line, "TITLE:"); ok {
			if outline.Title == "" {
				outline.Title = strings.TrimSpace(rest)
			}
			continue
		}

		if m := sectionLineRe.FindStringSubmatch(line); m != nil {
			outline.Sections = append(outline.Sections, domain.Section{
				Index: len(outline.Sections),
				Title: strings.TrimSpace(m[1]),
			})
			continue
		}

		// A leading bare line before any section is treated as the title.
		if outline.Title == "" && len(outline.Sections) == 0 {
			outline.Title = line
		}
	}

	if outline.Title == "" || len(outline.Sections) == 0 {
		return domain.Outline{}, fmt.Errorf("%w: no title or sections found", ErrMalformedOutline)
	}

	if err := outline.Validate(); err != nil {
		return domain.Outline{}, fmt.Errorf("%w: %v", ErrMalformedOutline, err)
	}

	return outline, nil
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding on the prefix.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
