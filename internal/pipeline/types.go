// Package pipeline drives one invoice document from upload to extracted
// record: content extraction, structure-aware OCR, hybrid field
// extraction, and persistence, with per-stage error accounting and a
// worker pool across documents.
package pipeline

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/rigadev/pavadoc/internal/extract"
)

// State is the lifecycle state of a document.
type State string

const (
	StateUploaded   State = "UPLOADED"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateError      State = "ERROR"
)

// validTransitions is the full lifecycle graph. COMPLETED is terminal;
// only ERROR allows a retry back to the start.
var validTransitions = map[State][]State{
	StateUploaded:   {StateProcessing},
	StateProcessing: {StateCompleted, StateError},
	StateError:      {StateUploaded},
}

// StageError records a non-fatal failure of one pipeline stage.
type StageError struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Document is one invoice moving through the pipeline.
type Document struct {
	ID         uuid.UUID `json:"id"`
	Path       string    `json:"path"`
	State      State     `json:"state"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Derived fields, cleared on retry.
	ContentMethod     string                   `json:"content_method,omitempty"`
	Text              string                   `json:"text,omitempty"`
	EnhancedText      string                   `json:"enhanced_text,omitempty"`
	OCRConfidence     float64                  `json:"ocr_confidence,omitempty"`
	Record            *extract.ExtractedRecord `json:"record,omitempty"`
	ZoneOfField       map[string]string        `json:"zone_of_field,omitempty"`
	Strategy          string                   `json:"strategy,omitempty"`
	StageErrors       []StageError             `json:"stage_errors,omitempty"`
	ProcessingTimeMS  int64                    `json:"processing_time_ms,omitempty"`
}

// NewDocument creates a document in the uploaded state.
func NewDocument(path string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        uuid.Must(uuid.NewV4()),
		Path:      path,
		State:     StateUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the document to the next state, rejecting moves the
// lifecycle graph does not allow.
func (d *Document) Transition(next State) error {
	for _, allowed := range validTransitions[d.State] {
		if allowed == next {
			d.State = next
			d.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("pipeline: invalid transition %s -> %s", d.State, next)
}

// Retry resets a failed document for reprocessing, clearing everything
// derived from the previous run. Completed documents cannot be retried.
func (d *Document) Retry() error {
	if err := d.Transition(StateUploaded); err != nil {
		return err
	}
	d.RetryCount++
	d.ContentMethod = ""
	d.Text = ""
	d.EnhancedText = ""
	d.OCRConfidence = 0
	d.Record = nil
	d.ZoneOfField = nil
	d.Strategy = ""
	d.StageErrors = nil
	d.ProcessingTimeMS = 0
	return nil
}

// addStageError appends a stage failure to the document's summary.
func (d *Document) addStageError(stage string, err error) {
	d.StageErrors = append(d.StageErrors, StageError{
		Stage:   stage,
		Message: err.Error(),
		At:      time.Now().UTC(),
	})
}
