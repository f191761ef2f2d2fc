package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/doconv/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	if title := findTitle(doc); title != "" {
		tree.Title = title
	}

	var walk func(n *html.Node, listDepth int)
	walk = func(n *html.Node, listDepth int) {
		switch n.Type {
		case html.TextNode:
			// Loose text outside any block element.
			tree.Add(doctree.Block{Kind: doctree.Paragraph, Text: collapseSpace(n.Data)})
			return
		case html.ElementNode:
			if level := headingLevel(n.DataAtom); level > 0 {
				tree.Add(doctree.Block{Kind: doctree.Heading, Level: level, Text: textContent(n)})
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				return
			case atom.P, atom.Blockquote, atom.Dt, atom.Dd, atom.Caption:
				tree.Add(doctree.Block{Kind: doctree.Paragraph, Text: textContent(n)})
				return
			case atom.Pre:
				tree.Add(doctree.Block{Kind: doctree.Code, Text: strings.Trim(rawText(n), "\n")})
				return
			case atom.Table:
				rows, header := tableRows(n)
				tree.Add(doctree.Block{Kind: doctree.Table, Rows: rows, Header: header})
				return
			case atom.Ul, atom.Ol:
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, listDepth+1)
				}
				return
			case atom.Li:
				listItem(tree, n, max(listDepth-1, 0), walk)
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, listDepth)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body, 0)
	} else {
		walk(doc, 0)
	}
	return tree, nil
}

// listItem adds the item's own text, then walks nested lists so they follow
// their parent item.
func listItem(tree *doctree.DocTree, li *html.Node, depth int, walk func(*html.Node, int)) {
	var own strings.Builder
	var nested []*html.Node
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
			nested = append(nested, c)
			continue
		}
		own.WriteString(rawText(c))
	}
	tree.Add(doctree.Block{Kind: doctree.ListItem, Level: depth, Text: collapseSpace(own.String())})
	for _, n := range nested {
		walk(n, depth+1)
	}
}

// tableRows collects cell text row by row and reports whether the first row
// is made of <th> cells. Nested tables are flattened into the text of the
// cell that holds them.
func tableRows(tbl *html.Node) ([][]string, bool) {
	var rows [][]string
	header := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var cells []string
			allTh := true
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cells = append(cells, textContent(c))
					allTh = allTh && c.DataAtom == atom.Th
				}
			}
			if len(cells) > 0 {
				if len(rows) == 0 {
					header = allTh
				}
				rows = append(rows, cells)
			}
			return
		}
		if n != tbl && n.Type == html.ElementNode && n.DataAtom == atom.Table {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tbl)
	return rows, header
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// textContent returns the whitespace-collapsed text below n.
func textContent(n *html.Node) string {
	return collapseSpace(rawText(n))
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
