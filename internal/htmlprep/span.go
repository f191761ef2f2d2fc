package htmlprep

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"
)

// Span is a half-open range [Start, End) of rune offsets into a PlainText.
type Span struct {
	Start int
	End   int
}

// Contains reports whether o lies entirely inside s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Overlaps reports whether o touches s. Ranges that meet at a boundary overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start <= o.End && s.End >= o.Start
}

// Pad widens s by margin on both sides, clamped to [0, limit].
func (s Span) Pad(margin, limit int) Span {
	return Span{
		Start: max(s.Start-margin, 0),
		End:   min(s.End+margin, limit),
	}
}

// MarshalJSON encodes the span as a two-element array.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON decodes a two-element array.
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// PlainText is text extracted from HTML, addressed by rune offset.
type PlainText struct {
	text    string
	offsets []int // byte offset of each rune, then len(text)
}

func NewPlainText(s string) *PlainText {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return &PlainText{text: s, offsets: append(offsets, len(s))}
}

func (p *PlainText) String() string { return p.text }

// Len returns the length in runes.
func (p *PlainText) Len() int { return len(p.offsets) - 1 }

// Slice returns the text covered by sp.
func (p *PlainText) Slice(sp Span) string {
	return p.text[p.offsets[sp.Start]:p.offsets[sp.End]]
}

// Find returns the first occurrence of sub starting at or after rune offset from.
func (p *PlainText) Find(sub string, from int) (Span, bool) {
	if sub == "" || from < 0 || from > p.Len() {
		return Span{}, false
	}
	base := p.offsets[from]
	i := strings.Index(p.text[base:], sub)
	if i < 0 {
		return Span{}, false
	}
	start := sort.SearchInts(p.offsets, base+i)
	return Span{Start: start, End: start + utf8.RuneCountInString(sub)}, true
}
