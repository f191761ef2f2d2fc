package doctree

import "strings"

// BlockKind identifies what a Block holds.
type BlockKind string

const (
	Heading   BlockKind = "heading"
	Paragraph BlockKind = "paragraph"
	ListItem  BlockKind = "list_item"
	Code      BlockKind = "code"
	Table     BlockKind = "table"
)

// DocTree is a parsed document: a title and its content blocks in reading order.
type DocTree struct {
	Title  string  // Document title (from metadata or filename)
	Blocks []Block // Content in document order
}

// Block is one unit of document content.
type Block struct {
	Kind   BlockKind
	Level  int        // Heading level 1-6, or list nesting depth starting at 0
	Text   string     // Text content; empty for tables
	Rows   [][]string // Table cells by row
	Header bool       // First table row is a header row
	Page   int        // Source page (0 if N/A)
}

// Add appends b unless it carries no content.
func (t *DocTree) Add(b Block) {
	if b.Kind == Table {
		if len(b.Rows) == 0 {
			return
		}
	} else if strings.TrimSpace(b.Text) == "" {
		return
	}
	t.Blocks = append(t.Blocks, b)
}

// Tables returns the number of table blocks.
func (t *DocTree) Tables() int {
	n := 0
	for _, b := range t.Blocks {
		if b.Kind == Table {
			n++
		}
	}
	return n
}

// PlainText joins all block text with blank lines. Table rows become
// tab-separated lines.
func (t *DocTree) PlainText() string {
	parts := make([]string, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		if b.Kind != Table {
			parts = append(parts, b.Text)
			continue
		}
		lines := make([]string, len(b.Rows))
		for i, row := range b.Rows {
			lines[i] = strings.Join(row, "\t")
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// Width returns the widest row length of a table block.
func (b Block) Width() int {
	w := 0
	for _, row := range b.Rows {
		w = max(w, len(row))
	}
	return w
}
