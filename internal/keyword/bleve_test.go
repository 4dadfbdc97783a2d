package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/vedika/internal/models"
)

func newTestIndex(t *testing.T, profiles ...*models.Profile) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	for _, p := range profiles {
		if err := idx.Index(context.Background(), p); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
	return idx
}

func TestBleveIndex_SearchFindsPlaceAndNotes(t *testing.T) {
	idx := newTestIndex(t,
		&models.Profile{ID: "p1", Name: "Ravi Shankar", Place: "Varanasi", Notes: "sitar"},
		&models.Profile{ID: "p2", Name: "Ada Lovelace", Place: "London"},
	)
	ctx := context.Background()

	results, err := idx.Search(ctx, "varanasi", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "p1" {
		t.Fatalf("place search = %+v, want p1", results)
	}

	results, err = idx.Search(ctx, "Sitar", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "p1" {
		t.Errorf("notes search = %+v, want p1", results)
	}
}

func TestBleveIndex_NameBoost(t *testing.T) {
	idx := newTestIndex(t,
		&models.Profile{ID: "note", Name: "Someone", Notes: "met london in passing london london"},
		&models.Profile{ID: "name", Name: "London"},
	)
	results, err := idx.Search(context.Background(), "london", 10, &SearchOptions{NameBoost: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "name" {
		t.Errorf("first result = %q, want name match first", results[0].ID)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t, &models.Profile{ID: "p1", Name: "Lovelace"})
	ctx := context.Background()

	results, err := idx.Search(ctx, "lovelase", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("exact search should miss a misspelling, got %d", len(results))
	}

	results, err = idx.Search(ctx, "lovelase", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("fuzzy search should match, got %d", len(results))
	}
}

func TestBleveIndex_OpenExisting(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx1, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx1.Index(ctx, &models.Profile{ID: "p1", Name: "uniquename"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex (open existing): %v", err)
	}
	defer func() {
		_ = idx2.Close()
	}()
	results, err := idx2.Search(ctx, "uniquename", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("reopened index should keep documents, got %d results", len(results))
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newTestIndex(t, &models.Profile{ID: "p1", Name: "onlyinp1"})
	ctx := context.Background()

	if err := idx.Delete(ctx, "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	results, err := idx.Search(ctx, "onlyinp1", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results after delete, got %d", len(results))
	}
	n, _ := idx.DocCount()
	if n != 0 {
		t.Errorf("DocCount = %d, want 0", n)
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer idx.Close()
	results, err := idx.Search(context.Background(), "   ", 10, nil)
	if err != nil || results != nil {
		t.Errorf("empty query = %v, %v", results, err)
	}
}

func TestNewBleveIndex_createsDir(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "sub", "bleve")

	idx, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	_ = idx.Close()

	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index path should exist: %v", err)
	}
}
