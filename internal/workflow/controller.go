package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unipublish/backend/internal/logging"
	"github.com/unipublish/backend/internal/metadata"
	"github.com/unipublish/backend/internal/models"
	"github.com/unipublish/backend/internal/platforms"
	"github.com/unipublish/backend/internal/publish"
)

const (
	workflowGenerate = "generate"
	workflowPublish  = "publish"

	maxNotices = 20
)

// Options configures a Controller.
type Options struct {
	SessionID string
	Service   metadata.Service
	Publisher publish.Publisher
	Recorder  PublicationRecorder
	// MaxVideoBytes rejects larger uploads. Zero means unlimited.
	MaxVideoBytes int64
	Listeners     []Listener
	Now           func() time.Time
}

// Controller owns the state of one dashboard session: the source input and
// one RunState per platform. All mutations replace the platform slice as a
// whole under mu.
type Controller struct {
	sessionID     string
	service       metadata.Service
	publisher     publish.Publisher
	recorder      PublicationRecorder
	maxVideoBytes int64
	listeners     []Listener
	now           func() time.Time

	mu      sync.Mutex
	text    string
	video   *Video
	states  []platforms.RunState
	running string
	notices []Notice
}

// New constructs a Controller with every platform Idle.
func New(opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	listeners := make([]Listener, 0, len(opts.Listeners))
	for _, l := range opts.Listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}
	return &Controller{
		sessionID:     opts.SessionID,
		service:       opts.Service,
		publisher:     opts.Publisher,
		recorder:      opts.Recorder,
		maxVideoBytes: opts.MaxVideoBytes,
		listeners:     listeners,
		now:           now,
		states:        platforms.InitialStates(),
	}
}

// SessionID returns the identifier the controller was created with.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// SetText replaces the user's notes.
func (c *Controller) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

// SetVideo replaces the source video. Every platform returns to Idle; generated
// data and edits are kept.
func (c *Controller) SetVideo(video Video) error {
	if len(video.Data) == 0 {
		return ErrEmptyVideo
	}
	if c.maxVideoBytes > 0 && int64(len(video.Data)) > c.maxVideoBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrVideoTooLarge, len(video.Data), c.maxVideoBytes)
	}

	c.mutate(func(states []platforms.RunState) {
		c.video = &video
		for i := range states {
			states[i].Status = platforms.StatusIdle
		}
	})
	return nil
}

// ClearVideo removes the source video without touching platform statuses.
func (c *Controller) ClearVideo() {
	c.mu.Lock()
	c.video = nil
	c.mu.Unlock()
}

// SetVideoLocation records where the current video was archived.
func (c *Controller) SetVideoLocation(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.video == nil {
		return
	}
	video := *c.video
	video.Location = location
	c.video = &video
}

// ValidateInput reports ErrNoInputProvided when there is neither text nor video.
func (c *Controller) ValidateInput() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateInputLocked()
}

func (c *Controller) validateInputLocked() error {
	if c.text == "" && c.video == nil {
		return ErrNoInputProvided
	}
	return nil
}

// UpdateField merges the patch into the platform's metadata regardless of its
// status.
func (c *Controller) UpdateField(id platforms.ID, patch platforms.MetadataPatch) (platforms.RunState, error) {
	idx := platforms.Index(id)
	if idx < 0 {
		return platforms.RunState{}, fmt.Errorf("%w: %q", platforms.ErrUnknownPlatform, string(id))
	}

	var updated platforms.RunState
	c.mutate(func(states []platforms.RunState) {
		states[idx].Data = patch.Apply(states[idx].Data)
		updated = states[idx].Clone()
	})
	return updated, nil
}

// State returns a copy of a single platform's state.
func (c *Controller) State(id platforms.ID) (platforms.RunState, error) {
	idx := platforms.Index(id)
	if idx < 0 {
		return platforms.RunState{}, fmt.Errorf("%w: %q", platforms.ErrUnknownPlatform, string(id))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[idx].Clone(), nil
}

// ReadyPlatforms lists platforms currently Ready, in catalogue order.
func (c *Controller) ReadyPlatforms() []platforms.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withStatusLocked(platforms.StatusReady)
}

// Snapshot returns a deep copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		SessionID: c.sessionID,
		Text:      c.text,
		Platforms: make([]platforms.RunState, len(c.states)),
		Running:   c.running,
		Notices:   make([]Notice, len(c.notices)),
	}
	for i, s := range c.states {
		snap.Platforms[i] = s.Clone()
		if s.Status == platforms.StatusReady {
			snap.ReadyCount++
		}
	}
	copy(snap.Notices, c.notices)
	if c.video != nil {
		snap.Video = &VideoInfo{
			Name:     c.video.Name,
			MIMEType: c.video.MIMEType,
			Size:     len(c.video.Data),
			Location: c.video.Location,
		}
	}
	return snap
}

// Busy reports whether a generate or publish workflow holds the session.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running != ""
}

// Generate runs one generate workflow: an optional video analysis followed by
// one concurrent metadata request per platform. It returns once every platform
// has settled. Per-platform failures are recorded on the platform and are not
// returned.
func (c *Controller) Generate(ctx context.Context) error {
	r, err := c.ReserveGenerate()
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// ReserveGenerate claims the session for a generate workflow and moves every
// platform to AnalyzingVideo, or straight to Generating when there is no
// video. The input is captured at this point. The returned reservation must be
// run or aborted.
func (c *Controller) ReserveGenerate() (*Reservation, error) {
	if c.service == nil {
		return nil, metadata.ErrClientUnavailable
	}

	c.mu.Lock()
	if c.running != "" {
		c.mu.Unlock()
		return nil, ErrWorkflowInProgress
	}
	if err := c.validateInputLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	text, video := c.text, c.video
	c.running = workflowGenerate
	c.mu.Unlock()

	first := platforms.StatusGenerating
	if video != nil {
		first = platforms.StatusAnalyzingVideo
	}
	previous := make([]platforms.RunState, 0, len(platforms.All()))
	c.mutate(func(states []platforms.RunState) {
		for i := range states {
			previous = append(previous, states[i].Clone())
			states[i].Status = first
			states[i].Error = ""
		}
	})

	return &Reservation{
		c:     c,
		name:  workflowGenerate,
		count: len(previous),
		exec: func(ctx context.Context) (int, error) {
			return c.generate(ctx, text, video)
		},
		undo: func() {
			c.mutate(func(states []platforms.RunState) {
				for i := range states {
					if states[i].Status == first {
						states[i].Status = previous[i].Status
						states[i].Error = previous[i].Error
					}
				}
			})
		},
	}, nil
}

func (c *Controller) generate(ctx context.Context, text string, video *Video) (int, error) {
	ctx, span := logging.StartSpan(ctx, "generate", slog.Bool("has_video", video != nil))
	logger := logging.FromContext(ctx)

	sourceContext := text
	if video != nil {
		summary, err := c.analyze(ctx, video)
		if err != nil {
			if !errors.Is(err, ErrAnalysisFailed) {
				err = fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
			}
			c.setAll(platforms.StatusError, err.Error())
			c.notify(NoticeError, "An error occurred during generation. Please check your API key or connection.")
			span.End(err)
			return 0, err
		}
		sourceContext = fmt.Sprintf("User Notes: %s\n\nVideo Visual Analysis: %s", text, summary)
	}

	ids := c.setAll(platforms.StatusGenerating, "")

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			c.generateOne(ctx, id, sourceContext)
			return nil
		})
	}
	_ = g.Wait()

	ready := len(c.ReadyPlatforms())
	logger.Info("generation settled", "ready", ready, "platforms", len(ids))
	if ready == len(ids) {
		c.notify(NoticeInfo, fmt.Sprintf("Metadata generated for all %d platforms.", ready))
	} else {
		c.notify(NoticeError, fmt.Sprintf("Metadata generated for %d of %d platforms.", ready, len(ids)))
	}
	span.End(nil)
	return ready, nil
}

func (c *Controller) analyze(ctx context.Context, video *Video) (string, error) {
	ctx, span := logging.StartSpan(ctx, "analyze_video",
		slog.String("mime_type", video.MIMEType),
		slog.Int("bytes", len(video.Data)),
	)
	summary, err := c.service.AnalyzeVideoContext(ctx, video.Data, video.MIMEType)
	span.End(err)
	return summary, err
}

func (c *Controller) generateOne(ctx context.Context, id platforms.ID, sourceContext string) {
	ctx, span := logging.StartSpan(ctx, "generate_platform", slog.String("platform", string(id)))
	idx := platforms.Index(id)

	data, err := c.service.GenerateMetadata(ctx, id, sourceContext)
	if err != nil {
		c.mutate(func(states []platforms.RunState) {
			states[idx].Status = platforms.StatusError
			states[idx].Error = err.Error()
		})
		span.End(err)
		return
	}

	c.mutate(func(states []platforms.RunState) {
		states[idx].Status = platforms.StatusReady
		states[idx].Data = data.Clone()
		states[idx].Error = ""
	})
	span.End(nil)
}

// Publish publishes every Ready platform, one at a time in catalogue order,
// after confirm approves. It returns the number of platforms published. With
// no Ready platform it does nothing.
func (c *Controller) Publish(ctx context.Context, confirm Confirmer) (int, error) {
	r, err := c.ReservePublish()
	if errors.Is(err, ErrNothingToPublish) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if confirm == nil || !confirm(r.Count()) {
		r.Abort(nil)
		return 0, ErrPublishNotConfirmed
	}

	if err := r.Run(ctx); err != nil {
		return 0, err
	}
	return r.result, nil
}

// ReservePublish claims the session for publishing the platforms that are
// Ready now. It returns ErrNothingToPublish when none is. Statuses are left
// alone until the reservation runs, since each platform moves to Publishing
// only when its turn comes.
func (c *Controller) ReservePublish() (*Reservation, error) {
	if c.publisher == nil {
		return nil, publish.ErrPublisherUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running != "" {
		return nil, ErrWorkflowInProgress
	}
	ready := c.withStatusLocked(platforms.StatusReady)
	if len(ready) == 0 {
		return nil, ErrNothingToPublish
	}
	c.running = workflowPublish

	return &Reservation{
		c:     c,
		name:  workflowPublish,
		count: len(ready),
		exec: func(ctx context.Context) (int, error) {
			return c.publishReady(ctx, ready), nil
		},
	}, nil
}

func (c *Controller) publishReady(ctx context.Context, ready []platforms.ID) int {
	ctx, span := logging.StartSpan(ctx, "publish", slog.Int("platforms", len(ready)))
	logger := logging.FromContext(ctx)

	published := 0
	for _, id := range ready {
		if c.publishOne(ctx, id) {
			published++
		}
	}

	logger.Info("publish finished", "published", published, "requested", len(ready))
	if published == len(ready) {
		c.notify(NoticeInfo, "All videos published successfully!")
	} else {
		c.notify(NoticeError, fmt.Sprintf("Published %d of %d platforms.", published, len(ready)))
	}
	span.End(nil)
	return published
}

func (c *Controller) publishOne(ctx context.Context, id platforms.ID) bool {
	idx := platforms.Index(id)

	var (
		data    platforms.Metadata
		started bool
	)
	c.mutate(func(states []platforms.RunState) {
		// The video may have been replaced since the Ready set was collected.
		if states[idx].Status != platforms.StatusReady {
			return
		}
		states[idx].Status = platforms.StatusPublishing
		data = states[idx].Data.Clone()
		started = true
	})
	if !started {
		return false
	}

	ctx, span := logging.StartSpan(ctx, "publish_platform", slog.String("platform", string(id)))

	if err := c.publisher.Publish(ctx, id, data); err != nil {
		c.mutate(func(states []platforms.RunState) {
			states[idx].Status = platforms.StatusError
			states[idx].Error = err.Error()
		})
		span.End(err)
		return false
	}

	c.mutate(func(states []platforms.RunState) {
		states[idx].Status = platforms.StatusPublished
		states[idx].Error = ""
	})
	c.record(ctx, id, data)
	span.End(nil)
	return true
}

func (c *Controller) record(ctx context.Context, id platforms.ID, data platforms.Metadata) {
	if c.recorder == nil {
		return
	}
	publication := models.Publication{
		ID:          uuid.NewString(),
		SessionID:   c.sessionID,
		Platform:    string(id),
		Title:       data.Title,
		Description: data.Description,
		Tags:        data.Tags,
		PublishedAt: c.now(),
	}
	if err := c.recorder.RecordPublication(ctx, publication); err != nil {
		logging.FromContext(ctx).Error("record publication", "platform", id, "error", err)
	}
}

func (c *Controller) finish() {
	c.mu.Lock()
	c.running = ""
	c.mu.Unlock()
}

func (c *Controller) notify(level NoticeLevel, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, Notice{Level: level, Message: message, At: c.now()})
	if len(c.notices) > maxNotices {
		c.notices = append([]Notice(nil), c.notices[len(c.notices)-maxNotices:]...)
	}
}

// setAll moves every platform to status and returns the platform ids in order.
func (c *Controller) setAll(status platforms.Status, errMessage string) []platforms.ID {
	ids := make([]platforms.ID, 0, len(platforms.All()))
	c.mutate(func(states []platforms.RunState) {
		for i := range states {
			states[i].Status = status
			states[i].Error = errMessage
			ids = append(ids, states[i].Platform)
		}
	})
	return ids
}

func (c *Controller) withStatusLocked(status platforms.Status) []platforms.ID {
	var out []platforms.ID
	for _, s := range c.states {
		if s.Status == status {
			out = append(out, s.Platform)
		}
	}
	return out
}

// mutate applies fn to a copy of the platform states, swaps the copy in, and
// notifies listeners of any status changes once the lock is released.
func (c *Controller) mutate(fn func(states []platforms.RunState)) {
	c.mu.Lock()
	next := make([]platforms.RunState, len(c.states))
	for i, s := range c.states {
		next[i] = s.Clone()
	}
	fn(next)

	var transitions []Transition
	if len(c.listeners) > 0 {
		at := c.now()
		for i := range next {
			if next[i].Status != c.states[i].Status {
				transitions = append(transitions, Transition{
					SessionID: c.sessionID,
					Platform:  next[i].Platform,
					From:      c.states[i].Status,
					To:        next[i].Status,
					At:        at,
				})
			}
		}
	}
	c.states = next
	c.mu.Unlock()

	for _, t := range transitions {
		for _, l := range c.listeners {
			l(t)
		}
	}
}
