/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

// ============================================================================
// Test Helpers
// ============================================================================

const testGroup = "group-1"

var (
	testPairs  = []WordPair{{"cat", "dog"}, {"coffee", "tea"}, {"train", "bus"}}
	testRoster = []string{"owner", "p2", "p3", "p4"}
)

// fakeThemes is an in-memory theme catalog.
type fakeThemes struct {
	mu    sync.Mutex
	pairs []WordPair
	added map[string][]WordPair
	err   error
	calls int
}

func (f *fakeThemes) FetchThemePairs(ctx context.Context, groupID string) ([]WordPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return append(slices.Clone(f.pairs), f.added[groupID]...), nil
}

func (f *fakeThemes) AddTheme(ctx context.Context, groupID, authorID, text string) (WordPair, error) {
	pair, err := parseThemeWords(text)
	if err != nil {
		return WordPair{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.added == nil {
		f.added = make(map[string][]WordPair)
	}
	f.added[groupID] = append(f.added[groupID], pair)

	return pair, nil
}

// queueRand hands out queued values first. Once empty it returns n-1, which
// leaves a Fisher-Yates shuffle in its original order.
type queueRand struct {
	mu   sync.Mutex
	next []int
}

func (q *queueRand) IntN(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.next) == 0 {
		return n - 1
	}

	v := q.next[0]
	q.next = q.next[1:]

	return v % n
}

func (q *queueRand) push(vals ...int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.next = append(q.next, vals...)
}

type muteCall struct {
	groupID string
	players []string
	muted   bool
}

// recorder is a Presenter and MuteController that remembers every call.
type recorder struct {
	mu         sync.Mutex
	cues       []PhaseEvent
	countdowns []int
	questions  []QuestionView
	results    []*RoundResult
	finals     [][]Score
	mutes      []muteCall
}

func (r *recorder) AnnouncePhase(groupID string, ev PhaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, ev)
}

func (r *recorder) RenderCountdown(groupID string, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countdowns = append(r.countdowns, remaining)
}

func (r *recorder) RenderQuestion(groupID string, q QuestionView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, q)
}

func (r *recorder) RenderResult(groupID string, res *RoundResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) RenderFinalScores(groupID string, scores []Score) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals = append(r.finals, scores)
}

func (r *recorder) SetMuted(groupID string, players []string, muted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutes = append(r.mutes, muteCall{groupID: groupID, players: players, muted: muted})
	return nil
}

func (r *recorder) cueList() []Cue {
	r.mu.Lock()
	defer r.mu.Unlock()

	cues := make([]Cue, 0, len(r.cues))
	for _, ev := range r.cues {
		cues = append(cues, ev.Cue)
	}
	return cues
}

func (r *recorder) countdownCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.countdowns)
}

func (r *recorder) lastMute() (muteCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.mutes) == 0 {
		return muteCall{}, false
	}
	return r.mutes[len(r.mutes)-1], true
}

type harness struct {
	t      *testing.T
	reg    *Registry
	themes *fakeThemes
	rec    *recorder
	rnd    *queueRand
}

// newHarness builds a registry whose countdown never fires on its own;
// tests drive it with tickCountdown unless they pass a shorter WithTick.
func newHarness(t *testing.T, pairs []WordPair, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		t:      t,
		themes: &fakeThemes{pairs: pairs},
		rec:    &recorder{},
		rnd:    &queueRand{},
	}

	opts = append([]Option{
		WithPresenter(h.rec),
		WithMuteController(h.rec),
		WithRand(h.rnd),
		WithTick(time.Hour),
	}, opts...)

	reg, err := NewRegistry(h.themes, opts...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	h.reg = reg

	t.Cleanup(func() { h.reg.Remove(testGroup) })

	return h
}

func (h *harness) create() *Session {
	h.t.Helper()

	sess, err := h.reg.Create(context.Background(), testGroup, "owner")
	if err != nil {
		h.t.Fatalf("Create: %v", err)
	}
	return sess
}

// start deals the next theme to roster with roster[wolfIndex] holding
// pair[wolfSlot].
func (h *harness) start(sess *Session, seconds int, roster []string, wolfSlot, wolfIndex int) *RoundStart {
	h.t.Helper()

	h.rnd.push(wolfSlot, wolfIndex)

	rs, err := sess.Start("owner", seconds, roster)
	if err != nil {
		h.t.Fatalf("Start: %v", err)
	}
	return rs
}

func epochOf(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// forceVoting runs the countdown down to zero.
func forceVoting(t *testing.T, s *Session) {
	t.Helper()

	for range 10000 {
		if s.tickCountdown(epochOf(s)) {
			break
		}
	}

	if got := s.Phase(); got != PhaseVoting {
		t.Fatalf("phase after countdown = %s, want %s", got, PhaseVoting)
	}
}

func voteAll(t *testing.T, s *Session, votes map[string]string) {
	t.Helper()

	for voter, target := range votes {
		if _, err := s.Vote(voter, target); err != nil {
			t.Fatalf("Vote(%s, %s): %v", voter, target, err)
		}
	}
}

func waitForPhase(t *testing.T, s *Session, want Phase, within time.Duration) {
	t.Helper()

	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if s.Phase() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}

	t.Fatalf("phase = %s after %s, want %s", s.Phase(), within, want)
}

// ============================================================================
// Session Tests
// ============================================================================

func TestNewSessionStartsBeforeDebate(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()

	if sess.Phase() != PhaseBeforeDebate {
		t.Errorf("phase = %s, want %s", sess.Phase(), PhaseBeforeDebate)
	}
	if sess.OwnerID() != "owner" || sess.GroupID() != testGroup {
		t.Errorf("owner/group = %s/%s", sess.OwnerID(), sess.GroupID())
	}
	if sess.Remaining() != 0 {
		t.Errorf("remaining before start = %d, want 0", sess.Remaining())
	}

	st := sess.Snapshot()
	if st.DeckSize != len(testPairs) || st.Played != 0 || st.Roster != nil {
		t.Errorf("unexpected snapshot: %+v", st)
	}
}

func TestSnapshotHidesSecrets(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()
	h.start(sess, 30, testRoster, 0, 1)
	forceVoting(t, sess)

	voteAll(t, sess, map[string]string{"owner": "p2", "p3": "p2"})

	st := sess.Snapshot()
	if !slices.Equal(st.Roster, testRoster) {
		t.Errorf("roster = %v, want %v", st.Roster, testRoster)
	}
	if !slices.Equal(st.Voted, []string{"owner", "p3"}) {
		t.Errorf("voted = %v, want [owner p3]", st.Voted)
	}
	if st.Remaining != 0 {
		t.Errorf("remaining while voting = %d, want 0", st.Remaining)
	}
}

func TestCommandsAfterDestroyFail(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()
	h.start(sess, 30, testRoster, 0, 0)

	h.reg.Remove(testGroup)

	if _, err := sess.CheckWord("p2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("CheckWord after destroy: %v, want session not found", err)
	}
	if err := sess.PrepareQuestion("p2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("PrepareQuestion after destroy: %v, want session not found", err)
	}

	m, ok := h.rec.lastMute()
	if !ok || m.muted {
		t.Errorf("expected an unmute on destroy, got %+v", m)
	}
}

func TestConcurrentCommandsAreSerialized(t *testing.T) {
	h := newHarness(t, testPairs, WithTick(time.Millisecond))
	sess := h.create()
	h.start(sess, 1, testRoster, 0, 0)

	waitForPhase(t, sess, PhaseVoting, 5*time.Second)
	voteAll(t, sess, map[string]string{"owner": "p2", "p2": "p3", "p3": "p2", "p4": "p2"})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	epoch := epochOf(sess)

	for range 16 {
		wg.Add(4)

		go func() {
			defer wg.Done()

			if _, err := sess.GoToResult("owner"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()

		go func() {
			defer wg.Done()
			_, _ = sess.Vote("p3", "p4")
		}()

		go func() {
			defer wg.Done()
			_ = sess.Snapshot()
		}()

		go func() {
			defer wg.Done()
			sess.tickCountdown(epoch)
		}()
	}

	wg.Wait()

	if successes != 1 {
		t.Errorf("GoToResult succeeded %d times, want 1", successes)
	}

	st := sess.Snapshot()
	if st.Played != 1 {
		t.Errorf("played = %d, want 1", st.Played)
	}
	if sess.Phase() != PhaseResult {
		t.Errorf("phase = %s, want result", sess.Phase())
	}
}
