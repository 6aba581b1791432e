package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/unipublish/backend/internal/jobs"
	"github.com/unipublish/backend/internal/logging"
	"github.com/unipublish/backend/internal/metadata"
	"github.com/unipublish/backend/internal/platforms"
	"github.com/unipublish/backend/internal/publish"
	"github.com/unipublish/backend/internal/sessions"
	"github.com/unipublish/backend/internal/workflow"
)

const (
	// multipartOverhead is allowed on top of the video limit for form framing.
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
	maxJSONBody       = 1 << 20
)

// SessionHandler exposes the dashboard commands for one session.
type SessionHandler struct {
	Sessions SessionRegistry
	Runner   JobRunner
	Archive  VideoArchive
	Limiter  RateLimiter
	// MaxUploadBytes caps the video upload. Zero means unlimited.
	MaxUploadBytes int64
}

type sessionCreatedResponse struct {
	ID      string            `json:"id"`
	Session workflow.Snapshot `json:"session"`
}

type setTextRequest struct {
	Text *string `json:"text"`
}

type publishRequest struct {
	Confirm bool `json:"confirm"`
}

type acceptedResponse struct {
	ID       string `json:"id"`
	Workflow string `json:"workflow"`
	Status   string `json:"status"`
	Count    int    `json:"count,omitempty"`
}

type confirmationResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	ReadyCount int    `json:"readyCount"`
}

type publishNoopResponse struct {
	Published int    `json:"published"`
	Message   string `json:"message"`
}

// Create handles POST /api/v1/sessions.
func (h SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Sessions == nil {
		logging.FromContext(ctx).Error("session registry unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "session services unavailable")
		return
	}

	ctrl := h.Sessions.Create()
	logging.FromContext(ctx).Info("session created", "session_id", ctrl.SessionID())
	respondJSON(ctx, w, http.StatusCreated, sessionCreatedResponse{ID: ctrl.SessionID(), Session: ctrl.Snapshot()})
}

// Get handles GET /api/v1/sessions/{id}.
func (h SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(ctx, w, http.StatusOK, ctrl.Snapshot())
}

// SetText handles PUT /api/v1/sessions/{id}/text.
func (h SessionHandler) SetText(w http.ResponseWriter, r *http.Request) {
	ctrl, ctx, ok := h.session(w, r)
	if !ok {
		return
	}

	var req setTextRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Text == nil {
		logging.FromContext(ctx).Warn("invalid text payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "request body must be {\"text\": string}")
		return
	}

	ctrl.SetText(*req.Text)
	respondJSON(ctx, w, http.StatusOK, ctrl.Snapshot())
}

// SetVideo handles PUT /api/v1/sessions/{id}/video with a multipart "video" field.
func (h SessionHandler) SetVideo(w http.ResponseWriter, r *http.Request) {
	ctrl, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := logging.FromContext(ctx)

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "video_too_large", workflow.ErrVideoTooLarge.Error())
			return
		}
		logger.Warn("invalid video upload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "expected multipart form with a \"video\" file")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("video")
	if err != nil {
		logger.Warn("video field missing", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "expected multipart form with a \"video\" file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("read uploaded video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "upload_failed", "failed to read uploaded video")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "video/") {
		respondError(ctx, w, http.StatusBadRequest, "invalid_video", fmt.Sprintf("unsupported media type %q", mimeType))
		return
	}

	video := workflow.Video{Name: header.Filename, MIMEType: mimeType, Data: data}
	if err := ctrl.SetVideo(video); err != nil {
		switch {
		case errors.Is(err, workflow.ErrVideoTooLarge):
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "video_too_large", err.Error())
		case errors.Is(err, workflow.ErrEmptyVideo):
			respondError(ctx, w, http.StatusBadRequest, "empty_video", err.Error())
		default:
			logger.Error("set video", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "upload_failed", "failed to store video")
		}
		return
	}

	if h.Archive != nil {
		location, err := h.Archive.Save(ctx, ctrl.SessionID(), header.Filename, mimeType, data)
		if err != nil {
			// The session keeps the in-memory copy; archiving is best effort.
			logger.Warn("archive video", "error", err)
		} else {
			ctrl.SetVideoLocation(location)
		}
	}

	logger.Info("video uploaded", "name", header.Filename, "mime_type", mimeType, "bytes", len(data))
	respondJSON(ctx, w, http.StatusOK, ctrl.Snapshot())
}

// ClearVideo handles DELETE /api/v1/sessions/{id}/video.
func (h SessionHandler) ClearVideo(w http.ResponseWriter, r *http.Request) {
	ctrl, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	ctrl.ClearVideo()
	respondJSON(ctx, w, http.StatusOK, ctrl.Snapshot())
}

// Generate handles POST /api/v1/sessions/{id}/generate. The session is
// reserved and every platform leaves Idle before the response is written; the
// AI calls run in the background and clients poll the snapshot for progress.
func (h SessionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctrl, ctx, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := ctrl.ValidateInput(); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "no_input", err.Error())
		return
	}
	if ctrl.Busy() {
		respondError(ctx, w, http.StatusConflict, "busy", workflow.ErrWorkflowInProgress.Error())
		return
	}
	if !allowRequest(h.Limiter, w, r, "generate") {
		respondError(ctx, w, http.StatusTooManyRequests, "rate_limited", "too many generate requests, try again later")
		return
	}

	reservation, err := ctrl.ReserveGenerate()
	if err != nil {
		respondReserveError(ctx, w, err)
		return
	}
	h.enqueue(ctx, w, ctrl, reservation)
}

// UpdatePlatform handles PATCH /api/v1/sessions/{id}/platforms/{platform}.
func (h SessionHandler) UpdatePlatform(w http.ResponseWriter, r *http.Request) {
	ctrl, ctx, ok := h.session(w, r)
	if !ok {
		return
	}

	id, err := platforms.Parse(mux.Vars(r)["platform"])
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "unknown_platform", err.Error())
		return
	}

	var patch platforms.MetadataPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		logging.FromContext(ctx).Warn("invalid platform patch", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if patch.Empty() {
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "at least one of title, description or tags is required")
		return
	}

	state, err := ctrl.UpdateField(id, patch)
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "unknown_platform", err.Error())
		return
	}
	respondJSON(ctx, w, http.StatusOK, state)
}

// Publish handles POST /api/v1/sessions/{id}/publish. Without {"confirm": true}
// it answers with the confirmation prompt and changes nothing.
func (h SessionHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctrl, ctx, ok := h.session(w, r)
	if !ok {
		return
	}

	var req publishRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			respondError(ctx, w, http.StatusBadRequest, "invalid_body", "invalid request body")
			return
		}
	}

	if !req.Confirm {
		if ctrl.Busy() {
			respondError(ctx, w, http.StatusConflict, "busy", workflow.ErrWorkflowInProgress.Error())
			return
		}
		ready := ctrl.ReadyPlatforms()
		if len(ready) == 0 {
			respondJSON(ctx, w, http.StatusOK, publishNoopResponse{Message: workflow.ErrNothingToPublish.Error()})
			return
		}
		respondJSON(ctx, w, http.StatusConflict, confirmationResponse{
			Error:      fmt.Sprintf("Ready to publish to %d platforms? This will simulate the upload process.", len(ready)),
			Code:       "confirmation_required",
			ReadyCount: len(ready),
		})
		return
	}

	reservation, err := ctrl.ReservePublish()
	if errors.Is(err, workflow.ErrNothingToPublish) {
		respondJSON(ctx, w, http.StatusOK, publishNoopResponse{Message: err.Error()})
		return
	}
	if err != nil {
		respondReserveError(ctx, w, err)
		return
	}
	h.enqueue(ctx, w, ctrl, reservation)
}

// Delete handles DELETE /api/v1/sessions/{id}. A session with a running
// workflow cannot be closed.
func (h SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Sessions == nil {
		logging.FromContext(ctx).Error("session registry unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "session services unavailable")
		return
	}

	id := mux.Vars(r)["id"]
	switch err := h.Sessions.Delete(id); {
	case err == nil:
		logging.FromContext(ctx).Info("session closed", "session_id", id)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, sessions.ErrSessionNotFound):
		respondError(ctx, w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, workflow.ErrWorkflowInProgress):
		respondError(ctx, w, http.StatusConflict, "busy", err.Error())
	default:
		logging.FromContext(ctx).Error("close session", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "failed to close session")
	}
}

// enqueue hands a reserved workflow to the runner. The reservation is released
// when the runner cannot take it.
func (h SessionHandler) enqueue(ctx context.Context, w http.ResponseWriter, ctrl *workflow.Controller, reservation *workflow.Reservation) {
	logger := logging.FromContext(ctx)
	name := reservation.Name()

	if h.Runner == nil {
		reservation.Abort(errors.New("workflow services unavailable"))
		logger.Error("job runner unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "workflow services unavailable")
		return
	}

	err := h.Runner.Enqueue(ctx, jobs.Job{Name: name, Run: reservation.Run})
	if err != nil {
		reservation.Abort(err)
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrRunnerClosed) {
			w.Header().Set("Retry-After", "5")
			respondError(ctx, w, http.StatusServiceUnavailable, "queue_full", "server is busy, try again shortly")
			return
		}
		logger.Error("enqueue workflow", "workflow", name, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "enqueue_failed", "failed to start workflow")
		return
	}

	logger.Info("workflow accepted", "workflow", name)
	respondJSON(ctx, w, http.StatusAccepted, acceptedResponse{ID: ctrl.SessionID(), Workflow: name, Status: "accepted", Count: reservation.Count()})
}

func respondReserveError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNoInputProvided):
		respondError(ctx, w, http.StatusBadRequest, "no_input", err.Error())
	case errors.Is(err, workflow.ErrWorkflowInProgress):
		respondError(ctx, w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, metadata.ErrClientUnavailable), errors.Is(err, publish.ErrPublisherUnavailable):
		logging.FromContext(ctx).Error("workflow collaborator unavailable", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "unavailable", "workflow services unavailable")
	default:
		logging.FromContext(ctx).Error("reserve workflow", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "failed to start workflow")
	}
}

// session resolves the {id} route variable and tags the request logger.
func (h SessionHandler) session(w http.ResponseWriter, r *http.Request) (*workflow.Controller, context.Context, bool) {
	ctx := r.Context()
	if h.Sessions == nil {
		logging.FromContext(ctx).Error("session registry unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "session services unavailable")
		return nil, ctx, false
	}

	id := mux.Vars(r)["id"]
	ctrl, err := h.Sessions.Get(id)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			respondError(ctx, w, http.StatusNotFound, "session_not_found", err.Error())
			return nil, ctx, false
		}
		logging.FromContext(ctx).Error("lookup session", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unavailable", "failed to load session")
		return nil, ctx, false
	}
	return ctrl, logging.WithSessionID(ctx, id), true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
