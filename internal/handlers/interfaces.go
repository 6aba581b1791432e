package handlers

import (
	"context"

	"github.com/unipublish/backend/internal/jobs"
	"github.com/unipublish/backend/internal/models"
	"github.com/unipublish/backend/internal/workflow"
)

// SessionRegistry creates and resolves dashboard sessions.
type SessionRegistry interface {
	Create() *workflow.Controller
	Get(id string) (*workflow.Controller, error)
	Delete(id string) error
}

// JobRunner executes workflows in the background.
type JobRunner interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

// VideoArchive stores a copy of uploaded source videos.
type VideoArchive interface {
	Save(ctx context.Context, sessionID, filename, mimeType string, data []byte) (string, error)
}

// PublicationLister reads the publication log.
type PublicationLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.Publication, error)
	FindByID(ctx context.Context, id string) (models.Publication, error)
}
