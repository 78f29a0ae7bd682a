// Package console owns the per-operator working copy of the deployment history and the
// workflows that mutate it.
package console

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

// Recorder receives console level counters.
type Recorder interface {
	RecordFallback(operation string)
	RecordValidationFailure(field string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFallback(string)          {}
func (nopRecorder) RecordValidationFailure(string) {}

// Site names the environments a publish promotes between.
type Site struct {
	StagingURL    string
	ProductionURL string
}

// Option customises a Workspace.
type Option func(*Workspace)

// WithOfflineFallback toggles local fallback data and local mutation when the deployment
// API is unreachable.
func WithOfflineFallback(enabled bool) Option {
	return func(w *Workspace) {
		w.fallback = enabled
	}
}

// WithSite sets the staging and production URLs sent with each publish.
func WithSite(site Site) Option {
	return func(w *Workspace) {
		w.site = site
	}
}

// WithRecorder reports fallback activations and validation failures.
func WithRecorder(r Recorder) Option {
	return func(w *Workspace) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithLogger sets the logger used for workflow diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) {
		if now != nil {
			w.now = now
		}
	}
}

// Workspace is one operator's view of the deployment history. All mutation goes through
// its workflow methods. Network calls are made without holding the lock.
type Workspace struct {
	svc      deployapi.Service
	fallback bool
	site     Site
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	list        []versions.Record
	loaded      bool
	loading     bool
	syncErr     string
	offline     bool
	unconfirmed bool
	lastSynced  time.Time
	issued      uint64
	publish     ModalState
	revert      ModalState
}

// New constructs a Workspace backed by svc. Offline fallback is enabled by default.
func New(svc deployapi.Service, opts ...Option) *Workspace {
	w := &Workspace{
		svc:      svc,
		fallback: true,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		now:      time.Now,
		publish:  ModalState{Kind: ModalPublish},
		revert:   ModalState{Kind: ModalRevert},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// State is a point in time copy of a workspace used for rendering.
type State struct {
	Versions    []versions.Record
	Loaded      bool
	Loading     bool
	Error       string
	Offline     bool
	Unconfirmed bool
	LastSynced  time.Time
	Publish     ModalState
	Revert      ModalState
	Site        Site
}

// Active returns the live record, if any.
func (s State) Active() (versions.Record, bool) {
	return versions.Active(s.Versions)
}

// Snapshot returns the current state.
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() State {
	return State{
		Versions:    versions.Clone(w.list),
		Loaded:      w.loaded,
		Loading:     w.loading,
		Error:       w.syncErr,
		Offline:     w.offline,
		Unconfirmed: w.unconfirmed,
		LastSynced:  w.lastSynced,
		Publish:     w.publish.clone(),
		Revert:      w.revert.clone(),
		Site:        w.site,
	}
}

// OfflineFallback reports whether local fallback is enabled.
func (w *Workspace) OfflineFallback() bool {
	return w.fallback
}
