package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument indicates the payload was not a JSON object of categories.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrMissingElement indicates a section's table, canvas or title is absent.
	ErrMissingElement = errors.New("required element not found")
	// ErrUnknownTab indicates an activation request for a tab that does not exist.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrUnknownSection indicates an event for a section that does not exist.
	ErrUnknownSection = errors.New("unknown section")
	// ErrColumnOutOfRange indicates a column selection outside the dataset.
	ErrColumnOutOfRange = errors.New("column out of range")
	// ErrNoChart indicates a chart was requested for a table-only section.
	ErrNoChart = errors.New("section has no chart")
)

// FetchError reports a non-successful response from the document URL.
type FetchError struct {
	URL    string
	Status string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

// DocumentError is returned for documents that carry a top-level "error"
// message instead of categories.
type DocumentError struct {
	Message string
}

func (e *DocumentError) Error() string {
	return "document reports error: " + e.Message
}

// RenderError represents a failure rendering one section's chart.
type RenderError struct {
	Section string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Section, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
