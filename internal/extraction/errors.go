package extraction

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrNoImages is returned when a call supplies no images.
	ErrNoImages = errors.New("at least one label image is required")

	// ErrTooManyImages is returned when a call exceeds the image limit.
	ErrTooManyImages = errors.New("too many images (maximum 10 per extraction call)")

	// ErrImageTooLarge is returned when an image exceeds the size limit.
	ErrImageTooLarge = errors.New("image exceeds the maximum size limit (20MB)")

	// ErrOCRFailed is returned when the Vision API fails to process an image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrEmptyImage is returned when an image contains no readable text.
	ErrEmptyImage = errors.New("image contains no readable text")

	// ErrMissingCredentials is returned when no Google Cloud credentials
	// are configured in the environment.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrClassifierFailed is returned when the field classifier produced no
	// usable response after all retries.
	ErrClassifierFailed = errors.New("field classification failed")

	// ErrInvalidPDF is returned when the provided data is not a valid PDF.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")
)

// ExtractionError wraps errors with context about the extraction failure.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "ExtractFields").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extraction: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't
// already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		return err // Already wrapped
	}

	return &ExtractionError{Op: op, Err: err, Details: details}
}
