/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"slices"
	"sync"
	"time"
)

// WordPair is one theme: two related but distinct words.
type WordPair [2]string

// roundState holds everything that is thrown away when a round ends.
type roundState struct {
	roster    []string       // participant ids, fixed for the round
	slots     map[string]int // participant id -> word slot (0 or 1)
	wolfSlot  int
	pair      WordPair
	remaining int // seconds left in the debate

	questions     map[string]string // author id -> question text
	questionOrder []string
	accepted      map[string]bool                    // ids allowed to type their question
	answers       map[string]map[string]AnswerChoice // author id -> respondent id -> choice
	votes         map[string]string                  // voter id -> target id
}

func newRoundState(roster []string, pair WordPair, wolfSlot, wolfIndex, seconds int) *roundState {
	r := &roundState{
		roster:    slices.Clone(roster),
		slots:     make(map[string]int, len(roster)),
		wolfSlot:  wolfSlot,
		pair:      pair,
		remaining: seconds,
		questions: make(map[string]string),
		accepted:  make(map[string]bool),
		answers:   make(map[string]map[string]AnswerChoice),
		votes:     make(map[string]string, len(roster)),
	}

	for i, id := range r.roster {
		if i == wolfIndex {
			r.slots[id] = wolfSlot
		} else {
			r.slots[id] = 1 - wolfSlot
		}
	}

	return r
}

// Session is one group's game, from creation until finish or abandon.
// Every exported method takes the session lock, which also guards the
// countdown goroutine.
type Session struct {
	mu sync.Mutex

	groupID string
	ownerID string
	phase   Phase

	deck       []WordPair
	themeIndex int

	// nil outside Debating, Voting and Result
	round *roundState

	// survives every round reset
	wins     map[string]int
	winOrder []string

	epoch         int
	stopCountdown context.CancelFunc
	destroyed     bool

	presenter Presenter
	muter     MuteController
	tick      time.Duration
	rand      Rand
	logf      func(format string, args ...any)
}

func newSession(groupID, ownerID string, deck []WordPair, o *registryOptions) *Session {
	return &Session{
		groupID:   groupID,
		ownerID:   ownerID,
		phase:     PhaseBeforeDebate,
		deck:      deck,
		wins:      make(map[string]int),
		presenter: o.presenter,
		muter:     o.muter,
		tick:      o.tick,
		rand:      o.rand,
		logf:      o.logf,
	}
}

func (s *Session) GroupID() string {
	return s.groupID
}

func (s *Session) OwnerID() string {
	return s.ownerID
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase
}

// Remaining returns the seconds left in the current debate, or 0 outside it.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseDebating {
		return 0
	}

	return s.round.remaining
}

// SessionState is a public view of a session; it never reveals words or vote targets.
type SessionState struct {
	GroupID   string
	OwnerID   string
	Phase     Phase
	Played    int // rounds resolved so far
	DeckSize  int
	Remaining int
	Roster    []string
	Voted     []string
	Questions []QuestionView
	Scores    []Score
}

func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		GroupID:  s.groupID,
		OwnerID:  s.ownerID,
		Phase:    s.phase,
		Played:   s.themeIndex,
		DeckSize: len(s.deck),
		Scores:   s.scoresLocked(),
	}

	if s.round == nil {
		return st
	}

	r := s.round

	st.Roster = slices.Clone(r.roster)
	if s.phase == PhaseDebating {
		st.Remaining = r.remaining
	}

	for _, id := range r.roster {
		if _, ok := r.votes[id]; ok {
			st.Voted = append(st.Voted, id)
		}
	}

	for _, id := range r.questionOrder {
		st.Questions = append(st.Questions, QuestionView{Author: id, Text: r.questions[id]})
	}

	return st
}

// checkLocked is the common preamble of every command: the session must still
// be live, the caller must be the owner when ownerOnly is set, and the phase
// must be one of phases.
func (s *Session) checkLocked(callerID string, ownerOnly bool, phases ...Phase) error {
	if s.destroyed {
		return failure(KindSessionNotFound, s.groupID)
	}

	if ownerOnly && callerID != s.ownerID {
		return failure(KindNotOwner, "only the session owner can do that")
	}

	if !s.phase.in(phases...) {
		return wrongPhase(s.phase, phases...)
	}

	return nil
}

func (s *Session) isParticipantLocked(id string) bool {
	if s.round == nil {
		return false
	}

	_, ok := s.round.slots[id]

	return ok
}

func (s *Session) setMutedLocked(muted bool) {
	if s.round == nil {
		return
	}

	if err := s.muter.SetMuted(s.groupID, slices.Clone(s.round.roster), muted); err != nil {
		s.logf("GAMES: Unable to set mute=%t in %s: %v", muted, s.groupID, err)
	}
}

// destroy stops the countdown and releases voice; later commands fail with
// KindSessionNotFound.
func (s *Session) destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}

	s.destroyed = true
	s.stopCountdownLocked()
	s.setMutedLocked(false)
}
