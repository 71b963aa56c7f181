package extraction

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessPDFRejectsNonPDF(t *testing.T) {
	d := NewDocumentOCRWithConfig(DocumentAIConfig{}, nil)

	_, err := d.ProcessPDF(context.Background(), bytes.NewReader([]byte("<html>not a pdf</html>")))
	assert.True(t, errors.Is(err, ErrInvalidPDF))

	_, err = d.ProcessPDF(context.Background(), bytes.NewReader([]byte("%P")))
	assert.True(t, errors.Is(err, ErrInvalidPDF))
}

func TestProcessPDFRejectsOversizedFile(t *testing.T) {
	d := NewDocumentOCRWithConfig(DocumentAIConfig{}, nil)

	oversized := make([]byte, MaxImageSizeBytes+1)
	copy(oversized, "%PDF")
	_, err := d.ProcessPDF(context.Background(), bytes.NewReader(oversized))
	assert.True(t, errors.Is(err, ErrImageTooLarge))
}

func TestProcessorName(t *testing.T) {
	d := NewDocumentOCRWithConfig(DocumentAIConfig{
		ProjectID:   "label-review",
		Location:    "eu",
		ProcessorID: "abc123",
	}, nil)

	assert.Equal(t, "projects/label-review/locations/eu/processors/abc123", d.processorName())
}
