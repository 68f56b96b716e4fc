// Package learn maintains the adaptive pattern model: regular expressions
// synthesized from operator corrections, persisted as JSON and consulted by
// the learned-pattern extractor. Patterns carry a confidence, a usage count
// and a running success rate so bad patterns decay out of the model.
package learn

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Pattern is one learned (or base) extraction rule for a field label.
type Pattern struct {
	Expression       string    `json:"pattern"`
	Confidence       float64   `json:"confidence"`
	Example          string    `json:"example,omitempty"`
	Context          string    `json:"context,omitempty"`
	DocumentTypeHint string    `json:"document_type_hint,omitempty"`
	UsageCount       int       `json:"usage_count"`
	OutcomeCount     int       `json:"outcome_count"`
	SuccessRate      float64   `json:"success_rate"`
	CreatedAt        time.Time `json:"created_at"`
	LastUsedAt       time.Time `json:"last_used_at,omitempty"`
}

// Example is one recorded correction event, appended to the history log.
type Example struct {
	OriginalText     string            `json:"original_text"`
	Corrections      map[string]string `json:"corrections"`
	SupplierName     string            `json:"supplier_name,omitempty"`
	DocumentTypeHint string            `json:"document_type_hint,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

// StoreConfig holds pattern store parameters.
type StoreConfig struct {
	Path              string // learned_patterns.json
	HistoryPath       string // learning_history.json, append-only
	MinExamples       int    // labels with fewer patterns than this return nothing
	PatternExpiryDays int    // 0 disables expiry
}

// DefaultStoreConfig returns the store defaults rooted at dir.
func DefaultStoreConfig(dir string) StoreConfig {
	return StoreConfig{
		Path:              filepath.Join(dir, "learned_patterns.json"),
		HistoryPath:       filepath.Join(dir, "learning_history.json"),
		MinExamples:       1,
		PatternExpiryDays: 0,
	}
}

// Store is the on-disk pattern model keyed by field label. All methods are
// safe for concurrent use. Every mutation rewrites the JSON file atomically
// via a temp file and rename.
type Store struct {
	cfg    StoreConfig
	logger *slog.Logger

	mu       sync.RWMutex
	patterns map[string][]Pattern
	loaded   bool
}

// NewStore creates a Store. Call Load before first use, or rely on the
// lazy load performed by the read methods.
func NewStore(cfg StoreConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinExamples < 1 {
		cfg.MinExamples = 1
	}
	return &Store{
		cfg:      cfg,
		logger:   logger.With("component", "pattern-store"),
		patterns: make(map[string][]Pattern),
	}
}

// Load reads the pattern file. A missing file yields an empty model.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.cfg.Path)
	if os.IsNotExist(err) {
		s.patterns = make(map[string][]Pattern)
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read pattern store: %w", err)
	}
	parsed := make(map[string][]Pattern)
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse pattern store %s: %w", s.cfg.Path, err)
	}
	s.patterns = parsed
	s.loaded = true
	s.logger.Info("pattern store loaded", "labels", len(parsed))
	return nil
}

// PatternsFor returns the stored patterns for a label sorted by descending
// confidence. Labels with fewer than MinExamples patterns return nil so the
// extractor keeps using its base patterns until enough evidence exists.
func (s *Store) PatternsFor(label string) []Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		s.logger.Warn("pattern store load failed", "error", err)
		return nil
	}
	stored := s.patterns[label]
	if len(stored) < s.cfg.MinExamples {
		return nil
	}
	out := make([]Pattern, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Labels returns all field labels with at least one stored pattern.
func (s *Store) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil
	}
	labels := make([]string, 0, len(s.patterns))
	for label, ps := range s.patterns {
		if len(ps) >= s.cfg.MinExamples {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Add inserts a pattern under label, or refreshes an existing entry with
// the same expression. Returns whether the model gained a new pattern.
func (s *Store) Add(label string, p Pattern) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return false, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UsageCount == 0 {
		p.UsageCount = 1
	}

	existing := s.patterns[label]
	for i := range existing {
		if existing[i].Expression == p.Expression && existing[i].DocumentTypeHint == p.DocumentTypeHint {
			if p.Confidence > existing[i].Confidence {
				existing[i].Confidence = p.Confidence
			}
			existing[i].Example = p.Example
			existing[i].Context = p.Context
			existing[i].UsageCount++
			return false, s.saveLocked()
		}
	}
	s.patterns[label] = append(existing, p)
	return true, s.saveLocked()
}

// RecordUsage increments the usage counter of the pattern that fired.
func (s *Store) RecordUsage(label, expression string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return
	}
	ps := s.patterns[label]
	for i := range ps {
		if ps[i].Expression == expression {
			ps[i].UsageCount++
			ps[i].LastUsedAt = time.Now()
			if err := s.saveLocked(); err != nil {
				s.logger.Warn("pattern usage save failed", "error", err)
			}
			return
		}
	}
}

// RecordOutcome folds a correction verdict into the pattern's running
// success rate.
func (s *Store) RecordOutcome(label, expression string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return
	}
	ps := s.patterns[label]
	for i := range ps {
		if ps[i].Expression != expression {
			continue
		}
		val := 0.0
		if success {
			val = 1.0
		}
		n := float64(ps[i].OutcomeCount)
		ps[i].SuccessRate = (ps[i].SuccessRate*n + val) / (n + 1)
		ps[i].OutcomeCount++
		if err := s.saveLocked(); err != nil {
			s.logger.Warn("pattern outcome save failed", "error", err)
		}
		return
	}
}

// PurgeExpired removes patterns older than PatternExpiryDays that have not
// fired since creation. Returns the number removed.
func (s *Store) PurgeExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return 0, err
	}
	if s.cfg.PatternExpiryDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -s.cfg.PatternExpiryDays)
	removed := 0
	for label, ps := range s.patterns {
		kept := ps[:0]
		for _, p := range ps {
			stale := p.CreatedAt.Before(cutoff) && (p.LastUsedAt.IsZero() || p.LastUsedAt.Before(cutoff))
			if stale {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(s.patterns, label)
		} else {
			s.patterns[label] = kept
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.saveLocked()
}

// Stats summarizes the model for diagnostics.
type Stats struct {
	Labels          int       `json:"labels"`
	TotalPatterns   int       `json:"total_patterns"`
	TotalUsage      int       `json:"total_usage"`
	NewestPatternAt time.Time `json:"newest_pattern_at,omitempty"`
}

// Statistics returns aggregate counters over the stored patterns.
func (s *Store) Statistics() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return Stats{}
	}
	var st Stats
	st.Labels = len(s.patterns)
	for _, ps := range s.patterns {
		st.TotalPatterns += len(ps)
		for _, p := range ps {
			st.TotalUsage += p.UsageCount
			if p.CreatedAt.After(st.NewestPatternAt) {
				st.NewestPatternAt = p.CreatedAt
			}
		}
	}
	return st
}

// AppendExample appends a learning example to the history log. The log is
// a JSON array rewritten in place; history is never truncated here.
func (s *Store) AppendExample(ex Example) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}
	var history []Example
	data, err := os.ReadFile(s.cfg.HistoryPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("read learning history: %w", err)
	default:
		if err := json.Unmarshal(data, &history); err != nil {
			return fmt.Errorf("parse learning history %s: %w", s.cfg.HistoryPath, err)
		}
	}
	history = append(history, ex)
	return atomicWriteJSON(s.cfg.HistoryPath, history)
}

// History returns all recorded learning examples.
func (s *Store) History() ([]Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.cfg.HistoryPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read learning history: %w", err)
	}
	var history []Example
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse learning history: %w", err)
	}
	return history, nil
}

// Export returns the raw pattern map for diagnostics.
func (s *Store) Export() map[string][]Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil
	}
	out := make(map[string][]Pattern, len(s.patterns))
	for label, ps := range s.patterns {
		cp := make([]Pattern, len(ps))
		copy(cp, ps)
		out[label] = cp
	}
	return out
}

func (s *Store) saveLocked() error {
	return atomicWriteJSON(s.cfg.Path, s.patterns)
}

// atomicWriteJSON writes v as indented JSON via a temp file and rename so a
// crash mid-write never leaves a truncated store behind.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
