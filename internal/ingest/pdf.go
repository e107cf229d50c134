package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrNotPDF        = errors.New("payload is not a PDF document")
	ErrInvalidPDF    = errors.New("PDF document is malformed")
	ErrNoExtractable = errors.New("PDF document has no extractable text")
)

var disableConfigDir sync.Once

// PageReader turns a raw document into page-scoped text.
type PageReader interface {
	ReadPages(data []byte) ([]Page, error)
}

// PDFReader validates with pdfcpu and extracts one text unit per page.
// Pages without text are skipped; scanned documents are rejected.
type PDFReader struct {
	conf *model.Configuration
}

func NewPDFReader() *PDFReader {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFReader{conf: conf}
}

func (r *PDFReader) ReadPages(data []byte) (pages []Page, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	// Both parsers can panic on hostile input.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("%w: %v", ErrInvalidPDF, rec)
		}
	}()

	if err := api.Validate(bytes.NewReader(data), r.conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	for i := 1; i <= doc.NumPage(); i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrInvalidPDF, i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, ErrNoExtractable
	}
	return pages, nil
}
