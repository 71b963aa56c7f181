package extraction

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"labelcheck/internal/logger"
)

// DocumentAIConfig holds configuration for the Document AI PDF backend.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	Location string

	// ProcessorID is the Document AI OCR processor ID.
	ProcessorID string

	// Timeout is the maximum time to wait for processing.
	Timeout time.Duration
}

// DocumentOCR extracts text from PDF label submissions using Google Document
// AI. Applications are frequently filed as PDF label sheets rather than
// photographs; this backend feeds the same classifier as the Vision path.
type DocumentOCR struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentOCR creates the PDF backend with credentials from environment.
// Requires GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID; the location
// defaults to "us".
func NewDocumentOCR(ctx context.Context) (*DocumentOCR, error) {
	const op = "NewDocumentOCR"

	config := DocumentAIConfig{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		Timeout:     60 * time.Second,
	}
	if config.ProjectID == "" {
		return nil, WrapExtractionError(op, ErrMissingCredentials, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapExtractionError(op, ErrMissingCredentials, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location %s", config.Location))
	}

	return NewDocumentOCRWithConfig(config, client), nil
}

// NewDocumentOCRWithConfig creates the backend with explicit config and
// client (for testing).
func NewDocumentOCRWithConfig(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentOCR {
	return &DocumentOCR{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ocr"),
	}
}

// ProcessPDF extracts the full text of a PDF label submission.
func (d *DocumentOCR) ProcessPDF(ctx context.Context, pdfData io.Reader) (string, error) {
	const op = "ProcessPDF"

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return "", WrapExtractionError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > MaxImageSizeBytes {
		return "", WrapExtractionError(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return "", WrapExtractionError(op, ErrInvalidPDF, "missing PDF header")
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}

	doc := resp.GetDocument()
	if doc == nil || doc.Text == "" {
		return "", WrapExtractionError(op, ErrEmptyImage, "document contains no readable text")
	}

	d.log.Info().
		Int("text_length", len(doc.Text)).
		Int("page_count", len(doc.Pages)).
		Dur("processing_time", time.Since(start)).
		Msg("PDF text extraction completed")

	return doc.Text, nil
}

func (d *DocumentOCR) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// Close closes the underlying Document AI client.
func (d *DocumentOCR) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
