package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/unipublish/backend/internal/jobs"
	"github.com/unipublish/backend/internal/models"
	"github.com/unipublish/backend/internal/platforms"
	"github.com/unipublish/backend/internal/publish"
	"github.com/unipublish/backend/internal/repositories"
	"github.com/unipublish/backend/internal/sessions"
	"github.com/unipublish/backend/internal/workflow"
)

type metadataServiceStub struct{}

func (metadataServiceStub) AnalyzeVideoContext(context.Context, []byte, string) (string, error) {
	return "a sunset over the sea", nil
}

func (metadataServiceStub) GenerateMetadata(_ context.Context, platform platforms.ID, _ string) (platforms.Metadata, error) {
	return platforms.Metadata{Title: string(platform) + " title", Description: "desc", Tags: []string{"sunset"}}, nil
}

// inlineRunner runs jobs synchronously so tests can observe their effects.
// With hold set, jobs are queued until runHeld is called.
type inlineRunner struct {
	mu      sync.Mutex
	names   []string
	runErrs []error
	err     error
	hold    bool
	held    []jobs.Job
}

func (r *inlineRunner) Enqueue(ctx context.Context, job jobs.Job) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	if r.hold {
		r.held = append(r.held, job)
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	r.run(job)
	return nil
}

func (r *inlineRunner) run(job jobs.Job) {
	runErr := job.Run(context.Background())
	r.mu.Lock()
	r.names = append(r.names, job.Name)
	r.runErrs = append(r.runErrs, runErr)
	r.mu.Unlock()
}

func (r *inlineRunner) runHeld() {
	r.mu.Lock()
	held := r.held
	r.held = nil
	r.hold = false
	r.mu.Unlock()
	for _, job := range held {
		r.run(job)
	}
}

type limiterStub struct {
	allow bool
	keys  []string
}

func (l *limiterStub) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}

func (l *limiterStub) RetryAfter(string) time.Duration { return 30 * time.Second }

type archiveStub struct {
	saved map[string][]byte
	err   error
}

func (a *archiveStub) Save(_ context.Context, sessionID, filename, mimeType string, data []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.saved == nil {
		a.saved = make(map[string][]byte)
	}
	a.saved[sessionID+"/"+filename] = data
	return "https://cdn.example.com/videos/" + sessionID + "/" + filename, nil
}

type testEnv struct {
	router   *mux.Router
	registry *sessions.Registry
	runner   *inlineRunner
	limiter  *limiterStub
	archive  *archiveStub
	repo     *repositories.InMemoryPublicationRepository
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	env := &testEnv{
		runner:  &inlineRunner{},
		limiter: &limiterStub{allow: true},
		archive: &archiveStub{},
		repo:    repositories.NewInMemoryPublicationRepository(),
	}
	publisher := publish.PublisherFunc(func(context.Context, platforms.ID, platforms.Metadata) error { return nil })
	env.registry = sessions.NewRegistry(func(id string) *workflow.Controller {
		return workflow.New(workflow.Options{
			SessionID:     id,
			Service:       metadataServiceStub{},
			Publisher:     publisher,
			Recorder:      env.repo,
			MaxVideoBytes: maxUpload,
		})
	}, time.Hour)

	env.router = mux.NewRouter()
	RegisterRoutes(env.router, Dependencies{
		Sessions:       env.registry,
		Runner:         env.runner,
		Archive:        env.archive,
		Publications:   env.repo,
		GenerateLimit:  env.limiter,
		MaxUploadBytes: maxUpload,
	})
	return env
}

func (e *testEnv) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/sessions", nil, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", rec.Code)
	}
	var resp sessionCreatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.ID
}

func (e *testEnv) snapshot(t *testing.T, id string) workflow.Snapshot {
	t.Helper()
	ctrl, err := e.registry.Get(id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	return ctrl.Snapshot()
}

func (e *testEnv) setText(t *testing.T, id, text string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": text})
	rec := e.do(http.MethodPut, "/api/v1/sessions/"+id+"/text", body, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("set text: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestSessionCreateAndGet(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(http.MethodPost, "/api/v1/sessions", nil, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var created sessionCreatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || len(created.Session.Platforms) != 4 {
		t.Fatalf("unexpected session: %+v", created)
	}
	for _, p := range created.Session.Platforms {
		if p.Status != platforms.StatusIdle {
			t.Fatalf("expected idle platforms got %s", p.Status)
		}
	}

	rec = env.do(http.MethodGet, "/api/v1/sessions/"+created.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: unexpected status %d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/api/v1/sessions/does-not-exist", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestSetTextValidation(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)

	rec := env.do(http.MethodPut, "/api/v1/sessions/"+id+"/text", []byte(`{"txt":"x"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	env.setText(t, id, "sunset timelapse")
	if got := env.snapshot(t, id).Text; got != "sunset timelapse" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestGenerateWithoutInput(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)

	rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	var resp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error != workflow.ErrNoInputProvided.Error() {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
	if len(env.runner.names) != 0 {
		t.Fatal("expected no workflow to be enqueued")
	}
	for _, p := range env.snapshot(t, id).Platforms {
		if p.Status != platforms.StatusIdle {
			t.Fatalf("expected idle got %s", p.Status)
		}
	}
}

func TestGenerateAccepted(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)
	env.setText(t, id, "sunset timelapse")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d body %s", rec.Code, rec.Body.String())
	}
	if len(env.limiter.keys) != 1 || env.limiter.keys[0] != "generate:10.0.0.1" {
		t.Fatalf("unexpected limiter keys %v", env.limiter.keys)
	}
	if env.runner.runErrs[0] != nil {
		t.Fatalf("generate workflow failed: %v", env.runner.runErrs[0])
	}
	if got := env.snapshot(t, id).ReadyCount; got != 4 {
		t.Fatalf("expected 4 ready got %d", got)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	env := newTestEnv(t, 0)
	env.limiter.allow = false
	id := env.createSession(t)
	env.setText(t, id, "notes")

	rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After header got %q", rec.Header().Get("Retry-After"))
	}
}

func TestGenerateQueueFull(t *testing.T) {
	env := newTestEnv(t, 0)
	env.runner.err = jobs.ErrQueueFull
	id := env.createSession(t)
	env.setText(t, id, "notes")

	rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}

	snap := env.snapshot(t, id)
	if snap.Running != "" {
		t.Fatalf("expected session released after rejected enqueue, running %q", snap.Running)
	}
	for _, p := range snap.Platforms {
		if p.Status != platforms.StatusIdle {
			t.Fatalf("expected %s restored to idle got %s", p.Platform, p.Status)
		}
	}
	if len(snap.Notices) != 1 || snap.Notices[0].Level != workflow.NoticeError {
		t.Fatalf("expected an error notice got %+v", snap.Notices)
	}

	env.runner.err = errors.New("boom")
	rec = env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

func TestGenerateRejectsSecondRequestWhileQueued(t *testing.T) {
	env := newTestEnv(t, 0)
	env.runner.hold = true
	id := env.createSession(t)
	env.setText(t, id, "sunset timelapse")

	rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d body %s", rec.Code, rec.Body.String())
	}
	snap := env.snapshot(t, id)
	if snap.Running != "generate" {
		t.Fatalf("expected generate to hold the session, running %q", snap.Running)
	}
	for _, p := range snap.Platforms {
		if p.Status != platforms.StatusGenerating {
			t.Fatalf("expected %s generating before the job runs got %s", p.Platform, p.Status)
		}
	}

	rec = env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var resp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "busy" {
		t.Fatalf("expected busy code got %q", resp.Code)
	}
	if len(env.runner.held) != 1 {
		t.Fatalf("expected one queued job got %d", len(env.runner.held))
	}

	env.runner.runHeld()
	if env.runner.runErrs[0] != nil {
		t.Fatalf("generate workflow failed: %v", env.runner.runErrs[0])
	}
	snap = env.snapshot(t, id)
	if snap.ReadyCount != 4 || snap.Running != "" {
		t.Fatalf("expected 4 ready and released session got %d/%q", snap.ReadyCount, snap.Running)
	}
	for _, n := range snap.Notices {
		if n.Level != workflow.NoticeInfo {
			t.Fatalf("unexpected notice %+v", n)
		}
	}
}

func TestPublishRejectsSecondRequestWhileQueued(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)
	env.setText(t, id, "sunset timelapse")
	if rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, ""); rec.Code != http.StatusAccepted {
		t.Fatalf("generate: %d", rec.Code)
	}

	env.runner.hold = true
	confirm := []byte(`{"confirm":true}`)
	rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/publish", confirm, "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", rec.Code)
	}
	var accepted acceptedResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &accepted)
	if accepted.Workflow != "publish" || accepted.Count != 4 {
		t.Fatalf("unexpected accepted response %+v", accepted)
	}

	for _, body := range [][]byte{confirm, nil} {
		rec = env.do(http.MethodPost, "/api/v1/sessions/"+id+"/publish", body, "application/json")
		if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), `"busy"`) {
			t.Fatalf("expected 409 busy got %d %s", rec.Code, rec.Body.String())
		}
	}
	if rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected generate rejected while publish is queued, got %d", rec.Code)
	}

	env.runner.runHeld()
	for _, p := range env.snapshot(t, id).Platforms {
		if p.Status != platforms.StatusPublished {
			t.Fatalf("expected %s published got %s", p.Platform, p.Status)
		}
	}
	if len(env.runner.held) != 0 || len(env.runner.names) != 2 {
		t.Fatalf("expected exactly one generate and one publish job, ran %v", env.runner.names)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)

	if rec := env.do(http.MethodDelete, "/api/v1/sessions/"+id, nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/v1/sessions/"+id, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete got %d", rec.Code)
	}
	if rec := env.do(http.MethodDelete, "/api/v1/sessions/"+id, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session got %d", rec.Code)
	}

	busy := env.createSession(t)
	env.setText(t, busy, "notes")
	env.runner.hold = true
	if rec := env.do(http.MethodPost, "/api/v1/sessions/"+busy+"/generate", nil, ""); rec.Code != http.StatusAccepted {
		t.Fatalf("generate: %d", rec.Code)
	}
	if rec := env.do(http.MethodDelete, "/api/v1/sessions/"+busy, nil, ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for busy session got %d", rec.Code)
	}
	env.runner.runHeld()
	if rec := env.do(http.MethodDelete, "/api/v1/sessions/"+busy, nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 once idle got %d", rec.Code)
	}
}

func TestPublishFlow(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)

	rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/publish", []byte(`{"confirm":true}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected no-op 200 got %d", rec.Code)
	}

	env.setText(t, id, "sunset timelapse")
	if rec := env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, ""); rec.Code != http.StatusAccepted {
		t.Fatalf("generate: %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/v1/sessions/"+id+"/publish", nil, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected confirmation required 409 got %d", rec.Code)
	}
	var prompt confirmationResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &prompt)
	if prompt.ReadyCount != 4 || !strings.Contains(prompt.Error, "Ready to publish to 4 platforms?") {
		t.Fatalf("unexpected prompt %+v", prompt)
	}
	if env.snapshot(t, id).ReadyCount != 4 {
		t.Fatal("expected statuses unchanged without confirmation")
	}

	rec = env.do(http.MethodPost, "/api/v1/sessions/"+id+"/publish", []byte(`{"confirm":true}`), "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", rec.Code)
	}
	for _, p := range env.snapshot(t, id).Platforms {
		if p.Status != platforms.StatusPublished {
			t.Fatalf("expected %s published got %s", p.Platform, p.Status)
		}
	}

	rec = env.do(http.MethodGet, "/api/v1/publications?limit=10", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list publications: %d", rec.Code)
	}
	var list struct {
		Publications []models.Publication `json:"publications"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Publications) != 4 || list.Publications[0].SessionID != id {
		t.Fatalf("unexpected publications %+v", list.Publications)
	}

	first := list.Publications[0]
	rec = env.do(http.MethodGet, "/api/v1/publications/"+first.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get publication: %d", rec.Code)
	}
	var fetched models.Publication
	_ = json.Unmarshal(rec.Body.Bytes(), &fetched)
	if fetched.ID != first.ID || fetched.Title != first.Title {
		t.Fatalf("unexpected publication %+v", fetched)
	}
	if rec := env.do(http.MethodGet, "/api/v1/publications/missing", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestUpdatePlatform(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)
	env.setText(t, id, "notes")
	env.do(http.MethodPost, "/api/v1/sessions/"+id+"/generate", nil, "")

	rec := env.do(http.MethodPatch, "/api/v1/sessions/"+id+"/platforms/bilibili", []byte(`{"tags":["x"]}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", rec.Code, rec.Body.String())
	}
	var state platforms.RunState
	_ = json.Unmarshal(rec.Body.Bytes(), &state)
	if state.Data.Title != "bilibili title" || len(state.Data.Tags) != 1 || state.Data.Tags[0] != "x" {
		t.Fatalf("unexpected state %+v", state)
	}

	rec = env.do(http.MethodPatch, "/api/v1/sessions/"+id+"/platforms/youtube", []byte(`{"title":"x"}`), "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}

	rec = env.do(http.MethodPatch, "/api/v1/sessions/"+id+"/platforms/douyin", []byte(`{}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func multipartVideo(t *testing.T, filename, contentType string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="video"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf.Bytes(), w.FormDataContentType()
}

func TestSetVideo(t *testing.T) {
	env := newTestEnv(t, 0)
	id := env.createSession(t)

	body, contentType := multipartVideo(t, "clip.mp4", "video/mp4", []byte("video-bytes"))
	rec := env.do(http.MethodPut, "/api/v1/sessions/"+id+"/video", body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", rec.Code, rec.Body.String())
	}

	snap := env.snapshot(t, id)
	if snap.Video == nil || snap.Video.Name != "clip.mp4" || snap.Video.MIMEType != "video/mp4" || snap.Video.Size != len("video-bytes") {
		t.Fatalf("unexpected video %+v", snap.Video)
	}
	if snap.Video.Location != "https://cdn.example.com/videos/"+id+"/clip.mp4" {
		t.Fatalf("expected archived location got %q", snap.Video.Location)
	}
	if _, ok := env.archive.saved[id+"/clip.mp4"]; !ok {
		t.Fatal("expected video to be archived")
	}

	rec = env.do(http.MethodDelete, "/api/v1/sessions/"+id+"/video", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear video: %d", rec.Code)
	}
	if env.snapshot(t, id).Video != nil {
		t.Fatal("expected video cleared")
	}
}

func TestSetVideoArchiveFailureIsTolerated(t *testing.T) {
	env := newTestEnv(t, 0)
	env.archive.err = errors.New("bucket unavailable")
	id := env.createSession(t)

	body, contentType := multipartVideo(t, "clip.mp4", "video/mp4", []byte("video-bytes"))
	rec := env.do(http.MethodPut, "/api/v1/sessions/"+id+"/video", body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if snap := env.snapshot(t, id); snap.Video == nil || snap.Video.Location != "" {
		t.Fatalf("unexpected video %+v", snap.Video)
	}
}

func TestSetVideoRejections(t *testing.T) {
	env := newTestEnv(t, 8)
	id := env.createSession(t)

	body, contentType := multipartVideo(t, "notes.txt", "text/plain", []byte("hello"))
	if rec := env.do(http.MethodPut, "/api/v1/sessions/"+id+"/video", body, contentType); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-video got %d", rec.Code)
	}

	body, contentType = multipartVideo(t, "big.mp4", "video/mp4", []byte("more than eight bytes"))
	if rec := env.do(http.MethodPut, "/api/v1/sessions/"+id+"/video", body, contentType); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", rec.Code)
	}

	body, contentType = multipartVideo(t, "empty.mp4", "video/mp4", nil)
	if rec := env.do(http.MethodPut, "/api/v1/sessions/"+id+"/video", body, contentType); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty video got %d", rec.Code)
	}

	if rec := env.do(http.MethodPut, "/api/v1/sessions/"+id+"/video", []byte(`{}`), "application/json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart got %d", rec.Code)
	}
}

func TestPublicationsInvalidLimit(t *testing.T) {
	env := newTestEnv(t, 0)
	if rec := env.do(http.MethodGet, "/api/v1/publications?limit=abc", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	rec := env.do(http.MethodGet, "/api/v1/publications", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"publications":[]`) {
		t.Fatalf("expected empty list got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, 0)
	handler := CORS([]string{"http://localhost:5173"})(env.router)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin header got %q", got)
	}
}

func TestHandlersWithoutDependencies(t *testing.T) {
	router := mux.NewRouter()
	RegisterRoutes(router, Dependencies{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/publications", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
