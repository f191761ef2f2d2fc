package htmlprep

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var parenURLRe = regexp.MustCompile(`\(https?://[^\s)]+\)`)

// Fragment is one <table> element: its rendered HTML and its text content.
type Fragment struct {
	HTML string
	Text string
}

// RemoveLinks replaces every anchor with its own text and strips
// parenthesised URLs such as "(https://example.com)".
func RemoveLinks(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var anchors []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			anchors = append(anchors, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)

	for _, a := range anchors {
		a.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: textContent(a)}, a)
		a.Parent.RemoveChild(a)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return parenURLRe.ReplaceAllString(buf.String(), ""), nil
}

// Extract returns the plain text of src and every table in document order,
// nested tables included.
func Extract(src string) (string, []Fragment, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", nil, fmt.Errorf("parse html: %w", err)
	}

	var tables []Fragment
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			var buf bytes.Buffer
			if err := html.Render(&buf, n); err != nil {
				return fmt.Errorf("render table: %w", err)
			}
			tables = append(tables, Fragment{HTML: buf.String(), Text: textContent(n)})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return "", nil, err
	}

	return textContent(doc), tables, nil
}

// textContent concatenates every text node below n without trimming, so
// table text can be located verbatim inside the document text.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}
