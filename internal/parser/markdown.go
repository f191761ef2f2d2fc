package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/doconv/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark with GFM tables.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		addMarkdownBlock(tree, n, src, 0)
	}
	return tree, nil
}

func addMarkdownBlock(tree *doctree.DocTree, n ast.Node, src []byte, listDepth int) {
	switch node := n.(type) {
	case *ast.Heading:
		tree.Add(doctree.Block{Kind: doctree.Heading, Level: node.Level, Text: extractText(n, src)})
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		tree.Add(doctree.Block{Kind: doctree.Code, Text: strings.TrimRight(blockLines(n, src), "\n")})
	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			addMarkdownListItem(tree, item, src, listDepth)
		}
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			addMarkdownBlock(tree, c, src, listDepth)
		}
	case *east.Table:
		tree.Add(doctree.Block{Kind: doctree.Table, Rows: markdownTableRows(node, src), Header: true})
	case *ast.ThematicBreak:
	default:
		tree.Add(doctree.Block{Kind: doctree.Paragraph, Text: extractText(n, src)})
	}
}

// addMarkdownListItem adds the item's text, then any nested lists one level deeper.
func addMarkdownListItem(tree *doctree.DocTree, item ast.Node, src []byte, depth int) {
	var own []string
	var nested []ast.Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			nested = append(nested, c)
			continue
		}
		if t := extractText(c, src); t != "" {
			own = append(own, t)
		}
	}
	tree.Add(doctree.Block{Kind: doctree.ListItem, Level: depth, Text: strings.Join(own, " ")})
	for _, l := range nested {
		addMarkdownBlock(tree, l, src, depth+1)
	}
}

func markdownTableRows(tbl *east.Table, src []byte) [][]string {
	var rows [][]string
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		// Header and body rows both hold TableCell children.
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, extractText(cell, src))
		}
		rows = append(rows, cells)
	}
	return rows
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		buf.WriteString(blockLines(n, src))
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(src))
		default:
			// Recurse for nested inlines.
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
