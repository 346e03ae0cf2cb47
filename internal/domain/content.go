package domain

import (
	"errors"

	"github.com/google/uuid"
)

// ContentMetrics validation errors
var (
	ErrMetricsNoContent    = errors.New("content metrics content ID cannot be empty")
	ErrInvalidWordCount    = errors.New("word count must be positive")
	ErrInvalidReadingLevel = errors.New("reading level must be positive")
)

// ContentMetrics is the read-only input the content subsystem supplies for
// a piece of content: the canonical length metric (word count, never letter
// count) and the numeric reading-level complexity score. The economy engine
// consumes these values for reward calculation and never writes them.
type ContentMetrics struct {
	ContentID    uuid.UUID `json:"content_id"`
	WordCount    int       `json:"word_count"`
	ReadingLevel float64   `json:"reading_level"`
}

// Validate checks if the ContentMetrics has valid data.
// Returns an error if any field fails validation.
func (m *ContentMetrics) Validate() error {
	if m.ContentID == uuid.Nil {
		return ErrMetricsNoContent
	}

	if m.WordCount < 1 {
		return ErrInvalidWordCount
	}

	if m.ReadingLevel <= 0 {
		return ErrInvalidReadingLevel
	}

	return nil
}
