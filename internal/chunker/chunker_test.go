package chunker

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
)

func TestSplit_BoundaryTrace(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks, err := Split(text, Config{ChunkSize: 400, ChunkOverlap: 250})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][2]int{{0, 400}, {150, 550}, {300, 700}, {450, 850}, {600, 1000}}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		c := chunks[i]
		if c.Start != w[0] || c.End != w[1] {
			t.Errorf("chunk %d: expected [%d,%d), got [%d,%d)", i, w[0], w[1], c.Start, c.End)
		}
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if len(c.Text) != c.End-c.Start {
			t.Errorf("chunk %d: text length %d does not match range", i, len(c.Text))
		}
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks, err := Split("hello", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "hello" || chunks[0].Start != 0 || chunks[0].End != 5 {
		t.Errorf("unexpected chunk %+v", chunks[0])
	}
}

func TestSplit_ExactlyChunkSize(t *testing.T) {
	chunks, err := Split(strings.Repeat("a", 400), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for text of exactly chunk_size, got %d", len(chunks))
	}
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("", DefaultConfig())
	if err != nil {
		t.Fatalf("expected no error for empty text, got %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero size", Config{ChunkSize: 0, ChunkOverlap: 0}},
		{"negative size", Config{ChunkSize: -5, ChunkOverlap: 0}},
		{"overlap equals size", Config{ChunkSize: 100, ChunkOverlap: 100}},
		{"overlap exceeds size", Config{ChunkSize: 100, ChunkOverlap: 150}},
		{"negative overlap", Config{ChunkSize: 100, ChunkOverlap: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split("some text", tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if chunks != nil {
				t.Errorf("expected no chunks on invalid config, got %d", len(chunks))
			}
		})
	}
}

func TestSplit_DuplicateTextKeptByOffset(t *testing.T) {
	// Every window has identical text; all of them must survive.
	text := strings.Repeat("ab", 50)
	chunks, err := Split(text, Config{ChunkSize: 10, ChunkOverlap: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 10 {
		t.Fatalf("expected 10 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Text != "ababababab" {
			t.Errorf("chunk %d: unexpected text %q", i, c.Text)
		}
		if c.Start != i*10 {
			t.Errorf("chunk %d: expected start %d, got %d", i, i*10, c.Start)
		}
	}
}

func TestSplit_RuneOffsets(t *testing.T) {
	text := "表格測試內容資料" // 8 runes, 24 bytes
	chunks, err := Split(text, Config{ChunkSize: 5, ChunkOverlap: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "表格測試內" || chunks[0].End != 5 {
		t.Errorf("chunk 0: got %q [%d,%d)", chunks[0].Text, chunks[0].Start, chunks[0].End)
	}
	if chunks[1].Text != "試內容資料" || chunks[1].Start != 3 || chunks[1].End != 8 {
		t.Errorf("chunk 1: got %q [%d,%d)", chunks[1].Text, chunks[1].Start, chunks[1].End)
	}
}

func TestSplit_CoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for iter := 0; iter < 500; iter++ {
		n := rng.IntN(3000) + 1
		size := rng.IntN(500) + 1
		overlap := rng.IntN(size)
		text := strings.Repeat("z", n)

		chunks, err := Split(text, Config{ChunkSize: size, ChunkOverlap: overlap})
		if err != nil {
			t.Fatalf("n=%d size=%d overlap=%d: unexpected error %v", n, size, overlap, err)
		}
		if chunks[0].Start != 0 {
			t.Fatalf("n=%d size=%d overlap=%d: first chunk starts at %d", n, size, overlap, chunks[0].Start)
		}
		if chunks[len(chunks)-1].End != n {
			t.Fatalf("n=%d size=%d overlap=%d: last chunk ends at %d", n, size, overlap, chunks[len(chunks)-1].End)
		}
		for i := 1; i < len(chunks); i++ {
			prev, cur := chunks[i-1], chunks[i]
			if cur.Start > prev.End {
				t.Fatalf("n=%d size=%d overlap=%d: gap between chunk %d and %d", n, size, overlap, i-1, i)
			}
			if prev.End-cur.Start < overlap {
				t.Fatalf("n=%d size=%d overlap=%d: chunks %d/%d overlap by %d", n, size, overlap, i-1, i, prev.End-cur.Start)
			}
			if cur.End-cur.Start > size {
				t.Fatalf("n=%d size=%d overlap=%d: chunk %d longer than size", n, size, overlap, i)
			}
		}
	}
}

func TestSplit_Idempotent(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	cfg := Config{ChunkSize: 120, ChunkOverlap: 30}
	a, err := Split(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Split(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical chunk sequences for identical input")
	}
}
