package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/unipublish/backend/internal/models"
)

// InMemoryPublicationRepository keeps publications in process memory. It is
// used when no database is configured and in tests.
type InMemoryPublicationRepository struct {
	mu           sync.RWMutex
	publications []models.Publication
	ids          map[string]struct{}
}

// NewInMemoryPublicationRepository returns an empty repository.
func NewInMemoryPublicationRepository() *InMemoryPublicationRepository {
	return &InMemoryPublicationRepository{ids: make(map[string]struct{})}
}

// RecordPublication stores a copy of publication.
func (r *InMemoryPublicationRepository) RecordPublication(_ context.Context, publication models.Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[publication.ID]; ok {
		return ErrConflict
	}
	r.ids[publication.ID] = struct{}{}
	r.publications = append(r.publications, clonePublication(publication))
	return nil
}

// FindByID fetches a single publication.
func (r *InMemoryPublicationRepository) FindByID(_ context.Context, id string) (models.Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.publications {
		if p.ID == id {
			return clonePublication(p), nil
		}
	}
	return models.Publication{}, ErrNotFound
}

// ListRecent returns the most recently published entries, newest first.
func (r *InMemoryPublicationRepository) ListRecent(_ context.Context, limit int) ([]models.Publication, error) {
	r.mu.RLock()
	out := make([]models.Publication, 0, len(r.publications))
	for _, p := range r.publications {
		out = append(out, clonePublication(p))
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clonePublication(p models.Publication) models.Publication {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	p.Tags = tags
	return p
}
