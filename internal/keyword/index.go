// Package keyword provides full-text search over saved profiles.
package keyword

import (
	"context"

	"github.com/hyperjump/vedika/internal/models"
)

// SearchOptions optional parameters for profile search. Nil means use defaults.
type SearchOptions struct {
	// NameBoost multiplies the score contribution from matches in the name field.
	// Values > 1 rank name matches above place and notes matches. Use 1.0 for no boost.
	NameBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits, for misspelled names.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default is 1.
	Fuzziness int
}

// Index defines profile search operations.
type Index interface {
	Index(ctx context.Context, p *models.Profile) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the number of indexed profiles.
	DocCount() (uint64, error)
	Close() error
}

// Result is a single search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
