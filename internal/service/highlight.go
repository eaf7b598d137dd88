package service

import (
	"sort"
	"strings"
)

// htmlEscaper escapes the characters that could inject markup into the
// annotated output: & < > " '. A single pass means already-escaped
// entities are never escaped twice.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

type highlightSpan struct {
	start int
	end   int
}

// HighlightText renders the text as escaped HTML with every found
// occurrence of every highlight wrapped in <b> markers, without
// overlapping or nested markers. Highlight order is the evaluator's
// authoring order, not textual order; highlights that do not occur in
// the text are ignored.
func HighlightText(text string, highlights []string) string {
	if len(highlights) == 0 {
		return htmlEscaper.Replace(text)
	}

	// Collect every occurrence of every highlight. The search cursor
	// advances by one byte after each hit so adjacent occurrences of the
	// same highlight are still found individually.
	var spans []highlightSpan
	for _, highlight := range highlights {
		if highlight == "" {
			continue
		}
		from := 0
		for {
			idx := strings.Index(text[from:], highlight)
			if idx < 0 {
				break
			}
			start := from + idx
			spans = append(spans, highlightSpan{start: start, end: start + len(highlight)})
			from = start + 1
		}
	}

	// Ascending start; at equal start the longer match wins.
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var builder strings.Builder
	lastEnd := 0
	cursor := 0
	for _, span := range spans {
		if span.start < lastEnd {
			continue
		}
		builder.WriteString(htmlEscaper.Replace(text[cursor:span.start]))
		builder.WriteString("<b>")
		builder.WriteString(htmlEscaper.Replace(text[span.start:span.end]))
		builder.WriteString("</b>")
		lastEnd = span.end
		cursor = span.end
	}
	builder.WriteString(htmlEscaper.Replace(text[cursor:]))

	return builder.String()
}
