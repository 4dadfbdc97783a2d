// Package profiles keeps saved birth profiles in storage and the search index in step.
package profiles

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/keyword"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/storage"
	"github.com/hyperjump/vedika/pkg/utils"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

// Service creates, updates and searches profiles. The store is authoritative; the index
// only serves search and is rebuilt by Reindex.
type Service struct {
	store  storage.Storage
	index  keyword.Index
	logger *zap.Logger // optional; when set, logs debug events
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a service. index may be nil, in which case Search is unavailable.
func NewService(store storage.Storage, index keyword.Index, opts ...ServiceOption) *Service {
	s := &Service{store: store, index: index}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new profile, then indexes it.
func (s *Service) Create(ctx context.Context, in *models.ProfileInput) (*models.Profile, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	p := &models.Profile{}
	if err := in.Apply(p); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}
	if err := s.indexProfile(ctx, p); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("profile created", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return p, nil
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Profile, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of profiles ordered by name.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*models.Profile, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, offset, limit)
}

// Count returns the number of stored profiles.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Update replaces the editable fields of an existing profile.
func (s *Service) Update(ctx context.Context, id string, in *models.ProfileInput) (*models.Profile, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(p); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := s.indexProfile(ctx, p); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("profile updated", zap.String("id", p.ID))
	}
	return p, nil
}

// Delete removes a profile from storage and the index.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to remove profile from index: %w", err)
		}
	}
	if s.logger != nil {
		s.logger.Debug("profile deleted", zap.String("id", id))
	}
	return nil
}

// Hit is a profile matched by Search.
type Hit struct {
	Profile *models.Profile `json:"profile"`
	Score   float64         `json:"score"`
}

// Search runs a full-text query over name, place and notes. Index entries whose profile
// no longer exists are skipped.
func (s *Service) Search(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]Hit, error) {
	if s.index == nil {
		return nil, fmt.Errorf("profile search is not configured")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	results, err := s.index.Search(ctx, query, limit, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(results))
	scores := make(map[string]float64, len(results))
	for i, r := range results {
		ids[i] = r.ID
		scores[r.ID] = r.Score
	}
	found, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(found))
	for _, p := range found {
		hits = append(hits, Hit{Profile: p, Score: scores[p.ID]})
	}
	if s.logger != nil {
		s.logger.Debug("profile search", zap.String("query", query), zap.Int("hits", len(hits)))
	}
	return hits, nil
}

// Reindex re-adds every stored profile to the index and returns how many were indexed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	const page = 200
	n := 0
	for offset := 0; ; offset += page {
		batch, err := s.store.List(ctx, offset, page)
		if err != nil {
			return n, err
		}
		for _, p := range batch {
			if err := s.indexProfile(ctx, p); err != nil {
				return n, err
			}
			n++
		}
		if len(batch) < page {
			return n, nil
		}
	}
}

func (s *Service) indexProfile(ctx context.Context, p *models.Profile) error {
	if s.index == nil {
		return nil
	}
	if err := s.index.Index(ctx, p); err != nil {
		return fmt.Errorf("failed to index profile: %w", err)
	}
	return nil
}
