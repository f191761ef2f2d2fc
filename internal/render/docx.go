// Package render writes a DocTree out as DOCX or HTML.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/doconv/internal/doctree"
	"github.com/fumiama/go-docx"
)

// Heading run sizes in half-points, indexed by level.
var headingSizes = [...]string{"", "32", "28", "26", "24", "22", "22"}

// DOCX writes tree as a Word document.
func DOCX(w io.Writer, tree *doctree.DocTree) error {
	doc := docx.New().WithDefaultTheme()

	for _, b := range tree.Blocks {
		switch b.Kind {
		case doctree.Heading:
			level := min(max(b.Level, 1), 6)
			doc.AddParagraph().
				Style(fmt.Sprintf("Heading%d", level)).
				AddText(b.Text).
				Bold().
				Size(headingSizes[level])
		case doctree.ListItem:
			doc.AddParagraph().AddText(strings.Repeat("    ", b.Level) + "• " + b.Text)
		case doctree.Code:
			doc.AddParagraph().AddText(b.Text).Font("Courier New", "Courier New", "Courier New", "default")
		case doctree.Table:
			addDOCXTable(doc, b)
		default:
			doc.AddParagraph().AddText(b.Text)
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func addDOCXTable(doc *docx.Docx, b doctree.Block) {
	width := b.Width()
	if width == 0 {
		return
	}
	tbl := doc.AddTable(len(b.Rows), width, 0, nil)
	for i, row := range b.Rows {
		for j, cell := range tbl.TableRows[i].TableCells {
			// Every cell needs a paragraph, even past the end of a short row.
			para := cell.AddParagraph()
			if j >= len(row) || row[j] == "" {
				continue
			}
			run := para.AddText(row[j])
			if i == 0 && b.Header {
				run.Bold()
			}
		}
	}
}
