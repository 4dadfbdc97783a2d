package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/vedika/internal/models"
)

// searchFields are the text fields of an indexed profile.
var searchFields = []string{"name", "place", "notes"}

// profileDoc is what gets indexed for a profile.
type profileDoc struct {
	Name  string `json:"name"`
	Place string `json:"place"`
	Notes string `json:"notes"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// No stemming, so personal and place names match as written.
	textFieldMapping.Analyzer = standard.Name
	for _, f := range searchFields {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	im.AddDocumentMapping("profile", docMapping)
	im.DefaultType = "profile"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path builds an in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces a profile.
func (b *BleveIndex) Index(ctx context.Context, p *models.Profile) error {
	return b.index.Index(p.ID, profileDoc{Name: p.Name, Place: p.Place, Notes: p.Notes})
}

// Search runs a match query over name, place and notes and returns up to limit results.
// When opts.NameBoost > 1, the name field is queried separately and its score added with
// the boost applied.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	nameBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 1
	if opts != nil {
		if opts.NameBoost > 0 {
			nameBoost = opts.NameBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	scores := make(map[string]float64)
	all, err := b.run(ctx, b.buildQuery(query, fuzzyEnabled, fuzziness, ""), reqSize)
	if err != nil {
		return nil, err
	}
	for id, s := range all {
		scores[id] = s
	}
	if nameBoost > 1 {
		names, err := b.run(ctx, b.buildQuery(query, fuzzyEnabled, fuzziness, "name"), reqSize)
		if err != nil {
			return nil, err
		}
		for id, s := range names {
			scores[id] += s * nameBoost
		}
	}

	merged := make([]*Result, 0, len(scores))
	for id, score := range scores {
		merged = append(merged, &Result{ID: id, Score: score})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (b *BleveIndex) run(ctx context.Context, q blevequery.Query, size int) (map[string]float64, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make(map[string]float64, len(results.Hits))
	for _, hit := range results.Hits {
		out[hit.ID] = hit.Score
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildQuery creates a match query, or a disjunction of fuzzy queries per term.
// If field is empty, every field is searched.
func (b *BleveIndex) buildQuery(queryStr string, fuzzy bool, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a profile from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the number of indexed profiles.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
