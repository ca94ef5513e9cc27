/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ThemeSource supplies the word pairs a group may play with: global pairs
// plus the group's own.
type ThemeSource interface {
	FetchThemePairs(ctx context.Context, groupID string) ([]WordPair, error)
}

var ErrSourceUnavailable = errors.New("theme source unavailable")

type registryOptions struct {
	presenter Presenter
	muter     MuteController
	tick      time.Duration
	rand      Rand
	logf      func(format string, args ...any)
}

type Option func(*registryOptions) error

func WithPresenter(p Presenter) Option {
	return func(o *registryOptions) error {
		if p == nil {
			return errors.New("nil presenter")
		}
		o.presenter = p
		return nil
	}
}

func WithMuteController(m MuteController) Option {
	return func(o *registryOptions) error {
		if m == nil {
			return errors.New("nil mute controller")
		}
		o.muter = m
		return nil
	}
}

// WithTick sets how long one countdown second lasts. Tests shorten it.
func WithTick(d time.Duration) Option {
	return func(o *registryOptions) error {
		if d <= 0 {
			return errors.New("tick must be positive")
		}
		o.tick = d
		return nil
	}
}

func WithRand(r Rand) Option {
	return func(o *registryOptions) error {
		if r == nil {
			return errors.New("nil rand")
		}
		o.rand = r
		return nil
	}
}

func WithLogger(logf func(format string, args ...any)) Option {
	return func(o *registryOptions) error {
		if logf == nil {
			return errors.New("nil logger")
		}
		o.logf = logf
		return nil
	}
}

// Registry holds at most one live session per group.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	creating map[string]bool

	themes ThemeSource
	opts   registryOptions
}

func NewRegistry(themes ThemeSource, opts ...Option) (*Registry, error) {
	if themes == nil {
		return nil, errors.New("nil theme source")
	}

	o := registryOptions{
		presenter: nopPresenter{},
		muter:     nopMuter{},
		tick:      time.Second,
		rand:      globalRand{},
		logf:      func(string, ...any) {},
	}

	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	return &Registry{
		sessions: make(map[string]*Session),
		creating: make(map[string]bool),
		themes:   themes,
		opts:     o,
	}, nil
}

// Create fetches the group's themes and opens a new session owned by ownerID.
// It fails with KindSessionConflict if the group already has one.
func (r *Registry) Create(ctx context.Context, groupID, ownerID string) (*Session, error) {
	if groupID == "" || ownerID == "" {
		return nil, failure(KindInvalidInput, "group and owner are required")
	}

	r.mu.Lock()
	if _, ok := r.sessions[groupID]; ok || r.creating[groupID] {
		r.mu.Unlock()
		return nil, failure(KindSessionConflict, groupID)
	}
	r.creating[groupID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.creating, groupID)
		r.mu.Unlock()
	}()

	pairs, err := r.themes.FetchThemePairs(ctx, groupID)
	if err != nil {
		return nil, &GameError{Kind: KindNoThemesAvailable, Err: err}
	}

	if len(pairs) == 0 {
		return nil, failure(KindNoThemesAvailable, "add a theme first")
	}

	sess := newSession(groupID, ownerID, shuffleThemes(r.opts.rand, pairs), &r.opts)

	r.mu.Lock()
	r.sessions[groupID] = sess
	r.mu.Unlock()

	r.opts.presenter.AnnouncePhase(groupID, PhaseEvent{Cue: CueJoin})
	r.opts.logf("GAMES: Session %s created by %s with %d themes", groupID, ownerID, len(pairs))

	return sess, nil
}

func (r *Registry) Get(groupID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sessions[groupID]
}

// Remove tears down the group's session, if any, and reports whether one existed.
func (r *Registry) Remove(groupID string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[groupID]
	delete(r.sessions, groupID)
	r.mu.Unlock()

	if !ok {
		return false
	}

	sess.destroy()
	r.opts.logf("GAMES: Session %s removed", groupID)

	return true
}

// removeIf drops sess only if it is still the group's live session.
func (r *Registry) removeIf(groupID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[groupID] == sess {
		delete(r.sessions, groupID)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}
