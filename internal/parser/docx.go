package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/doconv/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// go-docx needs a ReaderAt+size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			tree.Add(docxParagraphBlock(it))
		case *docx.Table:
			tree.Add(doctree.Block{Kind: doctree.Table, Rows: docxTableRows(it)})
		}
	}
	return tree, nil
}

func docxParagraphBlock(para *docx.Paragraph) doctree.Block {
	text := docxParagraphText(para)
	if level := docxHeadingLevel(para); level > 0 {
		return doctree.Block{Kind: doctree.Heading, Level: level, Text: text}
	}
	if props := para.Properties; props != nil && props.NumProperties != nil {
		depth := 0
		if props.NumProperties.Ilvl != nil {
			depth, _ = strconv.Atoi(props.NumProperties.Ilvl.Val)
		}
		return doctree.Block{Kind: doctree.ListItem, Level: depth, Text: text}
	}
	return doctree.Block{Kind: doctree.Paragraph, Text: text}
}

// docxHeadingLevel returns 1-6 for "Heading1" or "heading 1" style names,
// and 0 otherwise. "Title" counts as level 1.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(style, "heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	writeRun := func(run *docx.Run) {
		for _, rc := range run.Children {
			switch x := rc.(type) {
			case *docx.Text:
				buf.WriteString(x.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			case *docx.BarterRabbet:
				buf.WriteByte('\n')
			}
		}
	}
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRun(c)
		case *docx.Hyperlink:
			// Links built in memory keep their text in InstrText.
			if len(c.Run.Children) == 0 {
				buf.WriteString(c.Run.InstrText)
				continue
			}
			writeRun(&c.Run)
		}
	}
	return strings.TrimSpace(buf.String())
}

func docxTableRows(tbl *docx.Table) [][]string {
	rows := make([][]string, 0, len(tbl.TableRows))
	for _, tr := range tbl.TableRows {
		cells := make([]string, 0, len(tr.TableCells))
		for _, tc := range tr.TableCells {
			parts := make([]string, 0, len(tc.Paragraphs))
			for _, p := range tc.Paragraphs {
				if t := docxParagraphText(p); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, "\n"))
		}
		rows = append(rows, cells)
	}
	return rows
}
