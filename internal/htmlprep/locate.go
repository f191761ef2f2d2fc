package htmlprep

import (
	"log/slog"
	"sort"
	"unicode/utf8"
)

// DefaultPadMargin is the number of characters of context added on each side
// of a located table.
const DefaultPadMargin = 100

// TableSpan maps one table fragment to where its text appears in the plain text.
type TableSpan struct {
	Index  int    `json:"index"`
	HTML   string `json:"html"`
	Span   Span   `json:"span"`   // where the table text was found
	Padded Span   `json:"padded"` // Span widened by the pad margin
}

// cursor is a forward-only search over the plain text. A match moves the
// cursor to the match start unless the match is at offset 0.
type cursor struct {
	text *PlainText
	pos  int
}

func (c *cursor) next(sub string) (Span, bool) {
	sp, ok := c.text.Find(sub, c.pos)
	if !ok {
		return Span{}, false
	}
	// TODO: a match at offset 0 never advances the cursor, so a later table with
	// the same text as the first one can match offset 0 again.
	if sp.Start != 0 {
		c.pos = sp.Start
	}
	return sp, true
}

// LocateTables finds the span of every table in text, drops spans nested in
// another span, pads the survivors by margin, and numbers them by start offset.
// Tables with empty text are skipped; tables whose text is not found are
// logged and skipped.
func LocateTables(text *PlainText, tables []Fragment, margin int, log *slog.Logger) []TableSpan {
	cur := &cursor{text: text}
	var found []TableSpan
	for i, t := range tables {
		if t.Text == "" {
			continue
		}
		sp, ok := cur.next(t.Text)
		if !ok {
			log.Warn("table text not found in plain text",
				"table", i,
				"text_runes", utf8.RuneCountInString(t.Text),
				"cursor", cur.pos,
			)
			continue
		}
		found = append(found, TableSpan{HTML: t.HTML, Span: sp})
	}

	spans := dropNested(found)
	for i := range spans {
		spans[i].Index = i
		spans[i].Padded = spans[i].Span.Pad(margin, text.Len())
	}
	return spans
}

// dropNested removes every span fully contained in another one. Spans are
// ordered by start, longest first on ties; of two identical spans the one
// found first is kept.
func dropNested(spans []TableSpan) []TableSpan {
	sorted := make([]TableSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Span, sorted[j].Span
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End > b.End
	})

	out := make([]TableSpan, 0, len(sorted))
	maxEnd := -1
	for _, s := range sorted {
		// Every kept span starts at or before s, so reaching past s.End means it contains s.
		if s.Span.End <= maxEnd {
			continue
		}
		out = append(out, s)
		maxEnd = s.Span.End
	}
	return out
}
