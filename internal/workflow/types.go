package workflow

import (
	"context"
	"time"

	"github.com/unipublish/backend/internal/models"
	"github.com/unipublish/backend/internal/platforms"
)

// Video is the uploaded source material.
type Video struct {
	Name     string
	MIMEType string
	Data     []byte
	// Location is set when the upload was archived to object storage.
	Location string
}

// VideoInfo describes the session video without its bytes.
type VideoInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
	Location string `json:"location,omitempty"`
}

// Transition records a single status change.
type Transition struct {
	SessionID string           `json:"sessionId"`
	Platform  platforms.ID     `json:"platform"`
	From      platforms.Status `json:"from"`
	To        platforms.Status `json:"to"`
	At        time.Time        `json:"at"`
}

// Listener observes status transitions. Listeners are invoked outside the
// controller lock and may be called from several goroutines at once.
type Listener func(Transition)

// NoticeLevel classifies a user-facing notification.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-facing notification raised by a workflow.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Confirmer is the synchronous yes/no gate consulted before publishing. It
// receives the number of platforms about to be published.
type Confirmer func(count int) bool

// PublicationRecorder persists successfully published metadata.
type PublicationRecorder interface {
	RecordPublication(ctx context.Context, publication models.Publication) error
}

// Snapshot is a deep copy of a session's state.
type Snapshot struct {
	SessionID  string               `json:"id"`
	Text       string               `json:"text"`
	Video      *VideoInfo           `json:"video,omitempty"`
	Platforms  []platforms.RunState `json:"platforms"`
	ReadyCount int                  `json:"readyCount"`
	Running    string               `json:"running,omitempty"`
	Notices    []Notice             `json:"notices"`
}
