package htmlprep

import (
	"fmt"
	"sort"

	"github.com/dgallion1/doconv/internal/chunker"
)

// AlignMode selects how chunks are matched against table spans.
type AlignMode string

const (
	// AlignWindow sorts spans by start and sweeps a window over them. Exact for any input order.
	AlignWindow AlignMode = "window"
	// AlignEarlyExit scans spans in index order and gives up after
	// earlyExitMisses consecutive misses following a hit. Cheaper on documents
	// with many tables, but can miss overlaps when spans are not sorted by start.
	AlignEarlyExit AlignMode = "early_exit"
)

const earlyExitMisses = 3

// ParseAlignMode validates a mode name. The empty string selects AlignWindow.
func ParseAlignMode(s string) (AlignMode, error) {
	switch AlignMode(s) {
	case "", AlignWindow:
		return AlignWindow, nil
	case AlignEarlyExit:
		return AlignEarlyExit, nil
	}
	return "", fmt.Errorf("unknown align mode %q", s)
}

// Align returns, for each chunk, the ascending indices of the tables whose
// padded span overlaps the chunk. Chunks must be ordered by start offset.
func Align(chunks []chunker.Chunk, tables []TableSpan, mode AlignMode) [][]int {
	if mode == AlignEarlyExit {
		return alignEarlyExit(chunks, tables)
	}
	return alignWindow(chunks, tables)
}

func alignWindow(chunks []chunker.Chunk, tables []TableSpan) [][]int {
	sorted := make([]TableSpan, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Padded.Start < sorted[j].Padded.Start
	})

	out := make([][]int, len(chunks))
	lo := 0
	for ci, c := range chunks {
		cs := Span{Start: c.Start, End: c.End}
		// Spans ending before this chunk also end before every later chunk.
		for lo < len(sorted) && sorted[lo].Padded.End < cs.Start {
			lo++
		}
		ids := []int{}
		for i := lo; i < len(sorted) && sorted[i].Padded.Start <= cs.End; i++ {
			if cs.Overlaps(sorted[i].Padded) {
				ids = append(ids, sorted[i].Index)
			}
		}
		sort.Ints(ids)
		out[ci] = ids
	}
	return out
}

func alignEarlyExit(chunks []chunker.Chunk, tables []TableSpan) [][]int {
	out := make([][]int, len(chunks))
	lower := 0
	for ci, c := range chunks {
		cs := Span{Start: c.Start, End: c.End}
		ids := []int{}
		first := -1
		misses := 0
		for i := lower; i < len(tables); i++ {
			if cs.Overlaps(tables[i].Padded) {
				if first < 0 {
					first = i
				}
				ids = append(ids, tables[i].Index)
				misses = 0
				continue
			}
			if first >= 0 {
				misses++
				if misses == earlyExitMisses {
					break
				}
			}
		}
		// The lower bound only moves to the first hit of this chunk, so a chunk
		// without hits never hides tables from the chunks after it.
		if first >= 0 {
			lower = first
		}
		sort.Ints(ids)
		out[ci] = ids
	}
	return out
}
