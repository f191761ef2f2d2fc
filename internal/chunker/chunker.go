package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when chunk parameters cannot produce forward progress.
var ErrInvalidConfig = errors.New("invalid chunk configuration")

// Config controls chunking behavior. Sizes are counted in characters (runes).
type Config struct {
	ChunkSize    int // Nominal window length.
	ChunkOverlap int // Characters shared with the previous window.
}

// DefaultConfig returns the window used for table-aware retrieval indexing.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    400,
		ChunkOverlap: 250,
	}
}

// Validate rejects configurations that would loop forever or emit empty windows.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Chunk is one window of the source text. Start and End are rune offsets, half-open.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Split cuts text into fixed-size overlapping windows covering the whole text.
//
// Each window starts chunk_size-overlap runes after the previous one. Once the
// remaining text no longer exceeds chunk_size, a final window runs to the end of
// the text and splitting stops. Windows with identical text are kept as
// separate chunks.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	offsets := runeOffsets(text)
	n := len(offsets) - 1
	step := cfg.ChunkSize - cfg.ChunkOverlap

	var chunks []Chunk
	start := 0
	for {
		end := n
		last := start+cfg.ChunkSize >= n
		if !last {
			end = start + cfg.ChunkSize
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  text[offsets[start]:offsets[end]],
			Start: start,
			End:   end,
		})
		if last {
			break
		}
		start += step
	}
	return chunks, nil
}

// runeOffsets returns the byte offset of every rune in s, followed by len(s).
func runeOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}
