/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"slices"
	"time"
)

// startCountdownLocked launches the debate timer for the current round.
// Each run is tagged with an epoch so a stale timer can never touch a later round.
func (s *Session) startCountdownLocked() {
	s.stopCountdownLocked()

	s.epoch++

	ctx, cancel := context.WithCancel(context.Background())
	s.stopCountdown = cancel

	go s.runCountdown(ctx, s.epoch)
}

func (s *Session) stopCountdownLocked() {
	if s.stopCountdown != nil {
		s.stopCountdown()
		s.stopCountdown = nil
	}
}

func (s *Session) runCountdown(ctx context.Context, epoch int) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.tickCountdown(epoch) {
				return
			}
		}
	}
}

// tickCountdown takes one second off the debate and reports whether the
// countdown is over, either because it hit zero or because the round it
// belongs to is gone.
func (s *Session) tickCountdown(epoch int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || epoch != s.epoch || s.phase != PhaseDebating {
		return true
	}

	r := s.round
	r.remaining--

	s.presenter.RenderCountdown(s.groupID, r.remaining)

	if slices.Contains(milestones, r.remaining) {
		s.presenter.AnnouncePhase(s.groupID, PhaseEvent{Cue: CueMilestone, Seconds: r.remaining})
	}

	if r.remaining > 0 {
		return false
	}

	s.beginVotingLocked()

	return true
}

func (s *Session) beginVotingLocked() {
	s.phase = PhaseVoting
	s.stopCountdownLocked()

	// pending askers lose their chance once the debate ends
	clear(s.round.accepted)

	s.presenter.AnnouncePhase(s.groupID, PhaseEvent{Cue: CueDebateFinish})
	s.setMutedLocked(true)

	s.logf("GAMES: Voting opened in %s", s.groupID)
}
