package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/doconv/internal/doctree"
)

// CSVParser handles CSV files. The whole file becomes one table block whose
// first row is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	tree.Add(doctree.Block{Kind: doctree.Table, Rows: records, Header: true})
	return tree, nil
}
