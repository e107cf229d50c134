package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFReader_RejectsNonPDF(t *testing.T) {
	r := NewPDFReader()

	_, err := r.ReadPages([]byte("PK\x03\x04 this is a zip archive"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = r.ReadPages(nil)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestPDFReader_RejectsTruncatedPDF(t *testing.T) {
	r := NewPDFReader()
	_, err := r.ReadPages([]byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}
