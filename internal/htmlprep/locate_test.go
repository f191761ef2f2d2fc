package htmlprep

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestLocateTablesPads(t *testing.T) {
	text := NewPlainText(strings.Repeat("x", 200) + "TABLE-ONE-TEXT-HERE-0123456789" + strings.Repeat("y", 500))

	spans := LocateTables(text, []Fragment{{HTML: "<table/>", Text: "TABLE-ONE-TEXT-HERE-0123456789"}}, 100, discardLogger())
	require.Len(t, spans, 1)
	assert.Equal(t, 0, spans[0].Index)
	assert.Equal(t, Span{200, 230}, spans[0].Span)
	assert.Equal(t, Span{100, 330}, spans[0].Padded)
	assert.Equal(t, "<table/>", spans[0].HTML)
}

func TestLocateTablesClampsPadding(t *testing.T) {
	text := NewPlainText("abTTcd")
	spans := LocateTables(text, []Fragment{{Text: "TT"}}, 100, discardLogger())
	require.Len(t, spans, 1)
	assert.Equal(t, Span{0, 6}, spans[0].Padded)
}

func TestLocateTablesDropsNested(t *testing.T) {
	text := NewPlainText("intro outerinner tail second")
	frags := []Fragment{
		{HTML: "outer", Text: "outerinner"},
		{HTML: "inner", Text: "inner"},
		{HTML: "second", Text: "second"},
	}

	spans := LocateTables(text, frags, 0, discardLogger())
	require.Len(t, spans, 2)
	assert.Equal(t, "outer", spans[0].HTML)
	assert.Equal(t, Span{6, 16}, spans[0].Span)
	assert.Equal(t, "second", spans[1].HTML)
	assert.Equal(t, 1, spans[1].Index)
}

func TestLocateTablesSkipsMissingAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	text := NewPlainText("alpha beta gamma")

	spans := LocateTables(text, []Fragment{
		{Text: ""},
		{Text: "missing"},
		{Text: "gamma"},
	}, 0, log)

	require.Len(t, spans, 1)
	assert.Equal(t, Span{11, 16}, spans[0].Span)
	assert.Contains(t, buf.String(), "table text not found in plain text")
}

func TestLocateTablesForwardOnly(t *testing.T) {
	// The second "cell" must be found after the first one.
	text := NewPlainText("head cell middle cell end")
	spans := LocateTables(text, []Fragment{{Text: "cell"}, {Text: "middle cell"}}, 0, discardLogger())
	require.Len(t, spans, 2)
	assert.Equal(t, Span{5, 9}, spans[0].Span)
	assert.Equal(t, Span{10, 21}, spans[1].Span)

	// A table that only occurs before the cursor is not found.
	spans = LocateTables(NewPlainText("xx one two"), []Fragment{{Text: "two"}, {Text: "one"}}, 0, discardLogger())
	require.Len(t, spans, 1)
	assert.Equal(t, Span{7, 10}, spans[0].Span)
}

func TestLocateTablesRepeatAtStart(t *testing.T) {
	// A match at offset 0 does not advance the cursor, so a repeated
	// table resolves to the same span and is collapsed.
	text := NewPlainText("AB middle AB")
	spans := LocateTables(text, []Fragment{{HTML: "first", Text: "AB"}, {HTML: "second", Text: "AB"}}, 0, discardLogger())
	require.Len(t, spans, 1)
	assert.Equal(t, "first", spans[0].HTML)
	assert.Equal(t, Span{0, 2}, spans[0].Span)
}

func TestDropNested(t *testing.T) {
	in := []TableSpan{
		{HTML: "c", Span: Span{40, 45}},
		{HTML: "a", Span: Span{0, 30}},
		{HTML: "b", Span: Span{10, 20}},
		{HTML: "d", Span: Span{40, 60}},
		{HTML: "e", Span: Span{50, 70}},
		{HTML: "a2", Span: Span{0, 30}},
	}
	got := dropNested(in)

	var names []string
	for _, s := range got {
		names = append(names, s.HTML)
	}
	assert.Equal(t, []string{"a", "d", "e"}, names)
}
