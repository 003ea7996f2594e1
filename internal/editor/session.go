// Package editor holds the client-side editing session: local draft fields,
// debounced autosave and publishing.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/klass-lk/inkpost/internal/client"
	"github.com/klass-lk/inkpost/internal/model"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 5 * time.Second

var (
	// ErrSaveInFlight is returned for a save requested while another is running.
	// The request is dropped, not queued.
	ErrSaveInFlight = errors.New("save already in flight")
	// ErrAlreadyPublished is returned by Save once the post is published; a
	// draft save would move it back to draft.
	ErrAlreadyPublished = errors.New("post is already published")
)

type State int

const (
	StateEmpty State = iota
	StateEditing
	StateSaving
	StateSaved
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	case StatePublished:
		return "published"
	}
	return "unknown"
}

// API is the part of the blog API a session needs. *client.Client implements it.
type API interface {
	SaveDraft(ctx context.Context, payload client.DraftPayload) (model.Post, error)
	Publish(ctx context.Context, payload client.PublishPayload) (model.Post, error)
	GetPost(ctx context.Context, id string) (model.Post, error)
}

type Option func(*Session)

func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

func WithClock(clock Clock) Option {
	return func(s *Session) { s.clock = clock }
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Session) { s.notifier = notifier }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is safe for concurrent use; the autosave timer fires on its own
// goroutine. Network calls are made without holding the lock.
type Session struct {
	api      API
	clock    Clock
	notifier Notifier
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	id      string
	title   string
	content string
	tagsRaw string
	status  model.Status
	state   State

	timer    Timer
	timerGen uint64
	// edits that arrived while a save was in flight
	dirtyDuringSave bool
	justPublished   bool

	done     chan struct{}
	doneOnce sync.Once
}

func NewSession(api API, opts ...Option) *Session {
	s := &Session{
		api:      api,
		clock:    RealClock(),
		notifier: NopNotifier{},
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		ctx:      context.Background(),
		status:   model.StatusDraft,
		state:    StateEmpty,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the session to ctx, which autosaves run under. With a non-empty
// id the existing post is fetched and seeds the fields; on failure the session
// stays a new, empty draft and the error is returned.
func (s *Session) Start(ctx context.Context, id string) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if id == "" {
		return nil
	}

	post, err := s.api.GetPost(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Str("post_id", id).Msg("Could not load post")
		s.notifier.Notify(Notice{Kind: NoticeError, Message: "Failed to load blog for editing"})
		return err
	}

	s.mu.Lock()
	s.id = post.ID
	s.title = post.Title
	s.content = post.Content
	s.tagsRaw = strings.Join(post.Tags, ", ")
	s.status = post.Status
	if post.Status == model.StatusPublished {
		s.setStateLocked(StatePublished)
	} else {
		s.setStateLocked(StateSaved)
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) SetTitle(title string) {
	s.edit(func() { s.title = title })
}

func (s *Session) SetContent(content string) {
	s.edit(func() { s.content = content })
}

// SetTags takes the comma-separated form the author types.
func (s *Session) SetTags(raw string) {
	s.edit(func() { s.tagsRaw = raw })
}

func (s *Session) edit(apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply()

	if s.title == "" && s.content == "" {
		s.stopTimerLocked()
		return
	}
	if s.justPublished {
		s.justPublished = false
		return
	}
	if s.status == model.StatusPublished {
		return
	}

	if s.state == StateSaving {
		s.dirtyDuringSave = true
	} else {
		s.setStateLocked(StateEditing)
	}
	s.armTimerLocked()
}

// Save saves immediately, cancelling any pending autosave.
func (s *Session) Save(ctx context.Context) error {
	return s.save(ctx, false)
}

func (s *Session) save(ctx context.Context, auto bool) error {
	s.mu.Lock()
	if s.state == StateSaving {
		s.mu.Unlock()
		s.logger.Debug().Bool("auto", auto).Msg("Save dropped, another save is in flight")
		return ErrSaveInFlight
	}
	if s.status == model.StatusPublished {
		s.mu.Unlock()
		if !auto {
			s.notifier.Notify(Notice{Kind: NoticeInfo, Message: "Already published, use publish to update"})
		}
		return ErrAlreadyPublished
	}
	s.stopTimerLocked()
	prev := s.state
	s.dirtyDuringSave = false
	s.setStateLocked(StateSaving)
	draft := model.StatusDraft
	payload := client.DraftPayload{
		ID:      s.id,
		Title:   s.title,
		Content: s.content,
		Tags:    splitTags(s.tagsRaw),
		Status:  &draft,
	}
	s.mu.Unlock()

	post, err := s.api.SaveDraft(ctx, payload)

	s.mu.Lock()
	// Publish may have finished while this save was in flight.
	stillSaving := s.state == StateSaving
	if err != nil {
		// a failure only releases the guard; edits made meanwhile keep their timer
		if stillSaving {
			s.setStateLocked(prev)
		}
		s.mu.Unlock()
		s.logger.Debug().Err(err).Bool("auto", auto).Msg("Save failed")
		s.notifier.Notify(Notice{Kind: NoticeError, Message: "Failed to save draft"})
		return err
	}
	if s.id == "" {
		s.id = post.ID
	}
	if stillSaving {
		if s.dirtyDuringSave {
			s.setStateLocked(StateEditing)
		} else {
			s.setStateLocked(StateSaved)
		}
	}
	s.mu.Unlock()

	message := "Draft saved"
	if auto {
		message = "Auto-saved draft"
	}
	s.notifier.Notify(Notice{Kind: NoticeSuccess, Message: message})
	return nil
}

// Publish cancels any pending autosave and publishes the current fields. It
// does not wait for an in-flight save. On success Done is closed.
func (s *Session) Publish(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimerLocked()
	payload := client.PublishPayload{
		ID:      s.id,
		Title:   s.title,
		Content: s.content,
		Tags:    splitTags(s.tagsRaw),
	}
	s.mu.Unlock()

	post, err := s.api.Publish(ctx, payload)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Publish failed")
		s.notifier.Notify(Notice{Kind: NoticeError, Message: "Failed to publish"})
		return err
	}

	s.mu.Lock()
	// edits made while the publish was in flight must not autosave a draft
	s.stopTimerLocked()
	if s.id == "" {
		s.id = post.ID
	}
	s.status = model.StatusPublished
	s.justPublished = true
	s.setStateLocked(StatePublished)
	s.mu.Unlock()

	s.notifier.Notify(Notice{Kind: NoticeSuccess, Message: "Blog published"})
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

// Done is closed once the post is published.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close cancels a pending autosave.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Status() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) JustPublished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.justPublished
}

func (s *Session) AutosavePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Snapshot returns the local fields, tags split as they would be sent.
func (s *Session) Snapshot() model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Post{
		ID:      s.id,
		Title:   s.title,
		Content: s.content,
		Tags:    splitTags(s.tagsRaw),
		Status:  s.status,
	}
}

func (s *Session) armTimerLocked() {
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(gen) })
}

// stopTimerLocked also invalidates a callback that already started.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ctx := s.ctx
	s.mu.Unlock()

	_ = s.save(ctx, true)
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug().Str("from", s.state.String()).Str("to", state.String()).Msg("Editor state changed")
	s.state = state
}

// splitTags splits on commas and trims each part. Empty input yields [""].
func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
