package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/doconv/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLOptions controls HTML output.
type HTMLOptions struct {
	// Standalone wraps the body in a full document with a <title>.
	// Otherwise only the body fragment is written.
	Standalone bool
}

// HTML writes tree as HTML.
func HTML(w io.Writer, tree *doctree.DocTree, opts HTMLOptions) error {
	root := &html.Node{Type: html.DocumentNode}
	body := root
	if opts.Standalone {
		root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
		htmlEl := element(atom.Html)
		head := element(atom.Head)
		meta := element(atom.Meta)
		meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
		head.AppendChild(meta)
		title := element(atom.Title)
		title.AppendChild(textNode(tree.Title))
		head.AppendChild(title)
		body = element(atom.Body)
		htmlEl.AppendChild(head)
		htmlEl.AppendChild(body)
		root.AppendChild(htmlEl)
	}

	var lists listStack
	for _, b := range tree.Blocks {
		if b.Kind != doctree.ListItem {
			lists = lists[:0]
		}
		switch b.Kind {
		case doctree.Heading:
			level := min(max(b.Level, 1), 6)
			h := element(headingAtoms[level])
			h.AppendChild(textNode(b.Text))
			body.AppendChild(h)
		case doctree.ListItem:
			lists.add(body, b)
		case doctree.Code:
			pre := element(atom.Pre)
			code := element(atom.Code)
			code.AppendChild(textNode(b.Text))
			pre.AppendChild(code)
			body.AppendChild(pre)
		case doctree.Table:
			body.AppendChild(tableNode(b))
		default:
			body.AppendChild(paragraph(b.Text))
		}
	}

	if err := html.Render(w, root); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// HTMLString is HTML into a string.
func HTMLString(tree *doctree.DocTree, opts HTMLOptions) (string, error) {
	var sb strings.Builder
	if err := HTML(&sb, tree, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var headingAtoms = [...]atom.Atom{atom.H1, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// listStack holds the open <ul> elements, outermost first.
type listStack []*html.Node

func (s *listStack) add(parent *html.Node, b doctree.Block) {
	depth := max(b.Level, 0)
	for len(*s) > depth+1 {
		*s = (*s)[:len(*s)-1]
	}
	for len(*s) < depth+1 {
		ul := element(atom.Ul)
		if len(*s) == 0 {
			parent.AppendChild(ul)
		} else {
			top := (*s)[len(*s)-1]
			li := top.LastChild
			if li == nil {
				li = element(atom.Li)
				top.AppendChild(li)
			}
			li.AppendChild(ul)
		}
		*s = append(*s, ul)
	}
	li := element(atom.Li)
	li.AppendChild(textNode(b.Text))
	(*s)[len(*s)-1].AppendChild(li)
}

func tableNode(b doctree.Block) *html.Node {
	table := element(atom.Table)
	width := b.Width()
	for i, row := range b.Rows {
		tr := element(atom.Tr)
		cellAtom := atom.Td
		if i == 0 && b.Header {
			cellAtom = atom.Th
		}
		for j := 0; j < width; j++ {
			cell := element(cellAtom)
			if j < len(row) && row[j] != "" {
				cell.AppendChild(paragraph(row[j]))
			}
			tr.AppendChild(cell)
		}
		table.AppendChild(tr)
	}
	return table
}

// paragraph builds a <p>, turning newlines into <br>.
func paragraph(text string) *html.Node {
	p := element(atom.P)
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			p.AppendChild(element(atom.Br))
		}
		if line != "" {
			p.AppendChild(textNode(line))
		}
	}
	return p
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
