// Package htmlprep turns rendered HTML into overlapping text chunks, each
// annotated with the tables whose text falls inside it, for retrieval indexing.
package htmlprep

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgallion1/doconv/internal/chunker"
	"github.com/tmc/langchaingo/schema"
)

// Metadata keys set on every produced document.
const (
	MetaTables = "tables"
	MetaLocs   = "locs"
	MetaSource = "source"
)

// Config controls preprocessing.
type Config struct {
	Chunk     chunker.Config
	PadMargin int
	Align     AlignMode
}

func DefaultConfig() Config {
	return Config{
		Chunk:     chunker.DefaultConfig(),
		PadMargin: DefaultPadMargin,
		Align:     AlignWindow,
	}
}

func (c Config) Validate() error {
	if err := c.Chunk.Validate(); err != nil {
		return err
	}
	if c.PadMargin < 0 {
		return fmt.Errorf("%w: pad margin must not be negative, got %d", chunker.ErrInvalidConfig, c.PadMargin)
	}
	if _, err := ParseAlignMode(string(c.Align)); err != nil {
		return fmt.Errorf("%w: %v", chunker.ErrInvalidConfig, err)
	}
	return nil
}

// Result is the output of Preprocess.
type Result struct {
	// Documents holds one entry per chunk, in text order. Metadata carries
	// MetaTables ([]int), MetaLocs ([2]int) and MetaSource (string).
	Documents []schema.Document
	// Tables lists the located tables; Index matches the values in MetaTables.
	Tables []TableSpan
	// TextLength is the plain text length in runes.
	TextLength int
}

// Preprocess extracts plain text and tables from htmlContent, chunks the text
// and associates each chunk with the tables overlapping it. source is copied
// into every document's metadata.
func Preprocess(log *slog.Logger, htmlContent, source string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cleaned, err := RemoveLinks(htmlContent)
	if err != nil {
		return nil, err
	}
	log.Debug("removed links from html")

	plain, fragments, err := Extract(cleaned)
	if err != nil {
		return nil, err
	}
	text := NewPlainText(plain)
	log.Debug("extracted plain text", "runes", text.Len(), "tables", len(fragments))

	tables := LocateTables(text, fragments, cfg.PadMargin, log)
	log.Debug("located tables", "spans", len(tables))

	chunks, err := chunker.Split(plain, cfg.Chunk)
	if err != nil {
		return nil, err
	}
	log.Debug("chunks created", "chunks", len(chunks))

	assoc := Align(chunks, tables, cfg.Align)

	docs := make([]schema.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = schema.Document{
			PageContent: c.Text,
			Metadata: map[string]any{
				MetaTables: assoc[i],
				MetaLocs:   [2]int{c.Start, c.End},
				MetaSource: source,
			},
		}
	}

	log.Info("preprocessed html",
		"source", source,
		"chunks", len(docs),
		"tables_found", len(fragments),
		"tables_located", len(tables),
	)

	if tables == nil {
		tables = []TableSpan{}
	}
	return &Result{Documents: docs, Tables: tables, TextLength: text.Len()}, nil
}

type documentJSON struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// MarshalJSON encodes the result as
// {"documents":[{"page_content","metadata"}],"tables":[...],"text_length":n}.
func (r *Result) MarshalJSON() ([]byte, error) {
	docs := make([]documentJSON, len(r.Documents))
	for i, d := range r.Documents {
		docs[i] = documentJSON{PageContent: d.PageContent, Metadata: d.Metadata}
	}
	tables := r.Tables
	if tables == nil {
		tables = []TableSpan{}
	}
	return json.Marshal(struct {
		Documents  []documentJSON `json:"documents"`
		Tables     []TableSpan    `json:"tables"`
		TextLength int            `json:"text_length"`
	}{docs, tables, r.TextLength})
}
