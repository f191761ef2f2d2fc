package convert

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a document format, named by its canonical file extension.
type Format string

const (
	PDF      Format = "pdf"
	DOCX     Format = "docx"
	HTML     Format = "html"
	Markdown Format = "md"
	Text     Format = "txt"
	CSV      Format = "csv"
)

var extFormats = map[string]Format{
	".pdf":      PDF,
	".docx":     DOCX,
	".html":     HTML,
	".htm":      HTML,
	".md":       Markdown,
	".markdown": Markdown,
	".txt":      Text,
	".csv":      CSV,
}

// FormatOf returns the format of filename by extension.
func FormatOf(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := extFormats[ext]
	if !ok {
		return "", fmt.Errorf("%w: file extension %q", ErrUnsupported, ext)
	}
	return f, nil
}

// ParseFormat accepts a format name or extension, e.g. "docx", ".htm", "word".
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "word" {
		return DOCX, nil
	}
	if !strings.HasPrefix(s, ".") {
		s = "." + s
	}
	f, ok := extFormats[s]
	if !ok {
		return "", fmt.Errorf("%w: format %q", ErrUnsupported, s)
	}
	return f, nil
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case HTML:
		return "text/html; charset=utf-8"
	case PDF:
		return "application/pdf"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case CSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// OutputFilename replaces the extension of filename with the one for to,
// dropping any directory part.
func OutputFilename(filename string, to Format) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + string(to)
}
