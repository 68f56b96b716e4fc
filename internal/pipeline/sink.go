package pipeline

import (
	"fmt"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/rigadev/pavadoc/internal/extract"
)

// Sink persists pipeline outputs. Implementations must be safe for
// concurrent use; the pool calls them from worker goroutines.
type Sink interface {
	SaveOCRResult(docID uuid.UUID, enhancedText string, confidence float64) error
	SaveExtractedRecord(docID uuid.UUID, rec *extract.ExtractedRecord) error
	SaveProductRows(docID uuid.UUID, products []extract.Product) error
	GetDocument(docID uuid.UUID) (*Document, error)
}

// MemorySink keeps everything in memory. It backs tests and the CLI's
// single-shot runs.
type MemorySink struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]*Document
	texts     map[uuid.UUID]string
	records   map[uuid.UUID]*extract.ExtractedRecord
	products  map[uuid.UUID][]extract.Product
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		documents: make(map[uuid.UUID]*Document),
		texts:     make(map[uuid.UUID]string),
		records:   make(map[uuid.UUID]*extract.ExtractedRecord),
		products:  make(map[uuid.UUID][]extract.Product),
	}
}

// PutDocument registers a document so GetDocument can find it.
func (s *MemorySink) PutDocument(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = doc
}

func (s *MemorySink) SaveOCRResult(docID uuid.UUID, enhancedText string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[docID] = enhancedText
	return nil
}

func (s *MemorySink) SaveExtractedRecord(docID uuid.UUID, rec *extract.ExtractedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[docID] = rec
	return nil
}

func (s *MemorySink) SaveProductRows(docID uuid.UUID, products []extract.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[docID] = products
	return nil
}

func (s *MemorySink) GetDocument(docID uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown document %s", docID)
	}
	return doc, nil
}

// Record returns the stored record for a document, if any.
func (s *MemorySink) Record(docID uuid.UUID) (*extract.ExtractedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[docID]
	return rec, ok
}

// Text returns the stored enhanced text for a document, if any.
func (s *MemorySink) Text(docID uuid.UUID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[docID]
	return text, ok
}
