// Package convert turns documents from one format into another through the
// shared doctree model.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/doconv/internal/doctree"
	"github.com/dgallion1/doconv/internal/parser"
	"github.com/dgallion1/doconv/internal/render"
)

// ErrUnsupported is returned for formats or format pairs that cannot be converted.
var ErrUnsupported = errors.New("unsupported conversion")

type pair struct{ from, to Format }

var supported = map[pair]bool{
	{PDF, DOCX}:      true,
	{DOCX, HTML}:     true,
	{PDF, HTML}:      true,
	{HTML, DOCX}:     true,
	{Markdown, HTML}: true,
	{Markdown, DOCX}: true,
	{Text, HTML}:     true,
	{Text, DOCX}:     true,
	{CSV, HTML}:      true,
	{CSV, DOCX}:      true,
}

// Supported reports whether from can be converted to to.
func Supported(from, to Format) bool {
	return supported[pair{from, to}]
}

// Recorder receives one observation per conversion.
type Recorder interface {
	ObserveConversion(from, to string, d time.Duration, err error)
}

// Result is a converted document.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
	From        Format
	To          Format
}

// Service converts documents.
type Service struct {
	log      *slog.Logger
	rec      Recorder
	parseOpt parser.Options
}

func New(log *slog.Logger, rec Recorder, opts parser.Options) *Service {
	return &Service{log: log, rec: rec, parseOpt: opts}
}

// Convert converts data, named filename, to the target format.
func (s *Service) Convert(ctx context.Context, data []byte, filename string, to Format) (*Result, error) {
	from, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	if !Supported(from, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnsupported, from, to)
	}

	start := time.Now()
	out, err := s.convert(ctx, data, filename, from, to)
	elapsed := time.Since(start)
	if s.rec != nil {
		s.rec.ObserveConversion(string(from), string(to), elapsed, err)
	}

	log := s.log.With("filename", filename, "from", from, "to", to, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		log.Error("conversion failed", "error", err)
		return nil, err
	}
	log.Info("converted document", "in_bytes", len(data), "out_bytes", len(out))

	return &Result{
		Data:        out,
		Filename:    OutputFilename(filename, to),
		ContentType: to.ContentType(),
		From:        from,
		To:          to,
	}, nil
}

// ToHTML returns data as HTML. HTML input is returned unchanged.
func (s *Service) ToHTML(ctx context.Context, data []byte, filename string) (string, error) {
	from, err := FormatOf(filename)
	if err != nil {
		return "", err
	}
	if from == HTML {
		return string(data), nil
	}
	res, err := s.Convert(ctx, data, filename, HTML)
	if err != nil {
		return "", err
	}
	return string(res.Data), nil
}

func (s *Service) convert(ctx context.Context, data []byte, filename string, from, to Format) ([]byte, error) {
	// PDF to HTML goes through DOCX so both outputs share one layout.
	if from == PDF && to == HTML {
		docx, err := s.convert(ctx, data, filename, PDF, DOCX)
		if err != nil {
			return nil, fmt.Errorf("pdf to docx stage: %w", err)
		}
		html, err := s.convert(ctx, docx, OutputFilename(filename, DOCX), DOCX, HTML)
		if err != nil {
			return nil, fmt.Errorf("docx to html stage: %w", err)
		}
		return html, nil
	}

	tree, err := s.parse(data, filename)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return renderTree(tree, to)
}

func (s *Service) parse(data []byte, filename string) (*doctree.DocTree, error) {
	p, err := parser.ForFile(filename, s.parseOpt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return tree, nil
}

func renderTree(tree *doctree.DocTree, to Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch to {
	case DOCX:
		err = render.DOCX(&buf, tree)
	case HTML:
		err = render.HTML(&buf, tree, render.HTMLOptions{})
	default:
		return nil, fmt.Errorf("%w: render to %s", ErrUnsupported, to)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
