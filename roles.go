/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Rand is the source of every random choice a session makes.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// shuffleThemes returns a Fisher-Yates shuffled copy of pairs.
func shuffleThemes(r Rand, pairs []WordPair) []WordPair {
	deck := slices.Clone(pairs)

	for i := len(deck) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}

	return deck
}

// uniqueRoster drops empty and repeated ids, keeping first occurrences.
func uniqueRoster(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	roster := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		roster = append(roster, id)
	}

	return roster
}

// RoundStart describes a freshly started round.
type RoundStart struct {
	Round   int // 1-based
	Seconds int
	Roster  []string
}

// Start deals the next theme to roster and opens the debate for seconds.
// The roster is a fresh membership snapshot and may differ between rounds.
func (s *Session) Start(callerID string, seconds int, roster []string) (*RoundStart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(callerID, true, PhaseBeforeDebate); err != nil {
		return nil, err
	}

	if seconds <= 0 {
		return nil, failure(KindInvalidInput, fmt.Sprintf("debate time must be positive, got %d", seconds))
	}

	if s.themeIndex >= len(s.deck) {
		return nil, failure(KindDeckExhausted, "no themes left")
	}

	roster = uniqueRoster(roster)

	switch {
	case len(roster) < minPlayers:
		s.presenter.AnnouncePhase(s.groupID, PhaseEvent{Cue: CueTooFew})
		return nil, &GameError{Kind: KindRosterInvalid, Roster: RosterTooFew}
	case len(roster) > maxPlayers:
		s.presenter.AnnouncePhase(s.groupID, PhaseEvent{Cue: CueTooMany})
		return nil, &GameError{Kind: KindRosterInvalid, Roster: RosterTooMany}
	}

	wolfSlot := s.rand.IntN(2)
	wolfIndex := s.rand.IntN(len(roster))

	s.round = newRoundState(roster, s.deck[s.themeIndex], wolfSlot, wolfIndex, seconds)
	s.phase = PhaseDebating

	s.setMutedLocked(false)
	s.presenter.AnnouncePhase(s.groupID, PhaseEvent{Cue: CueStart, Seconds: seconds})
	s.presenter.RenderCountdown(s.groupID, seconds)
	s.startCountdownLocked()

	s.logf("GAMES: Round %d started in %s with %d players for %ds", s.themeIndex+1, s.groupID, len(roster), seconds)

	return &RoundStart{
		Round:   s.themeIndex + 1,
		Seconds: seconds,
		Roster:  slices.Clone(roster),
	}, nil
}

type RosterWord struct {
	ID   string
	Word string
	Wolf bool
}

// WordCheck is a private answer to "what is my word?". Participants get their
// own word only; anyone else has no secret to protect and sees every word.
type WordCheck struct {
	Participant bool
	Word        string
	Roster      []RosterWord
}

func (s *Session) CheckWord(callerID string) (*WordCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(callerID, false, PhaseDebating, PhaseVoting, PhaseResult); err != nil {
		return nil, err
	}

	r := s.round

	if slot, ok := r.slots[callerID]; ok {
		return &WordCheck{Participant: true, Word: r.pair[slot]}, nil
	}

	words := make([]RosterWord, 0, len(r.roster))
	for _, id := range r.roster {
		slot := r.slots[id]
		words = append(words, RosterWord{
			ID:   id,
			Word: r.pair[slot],
			Wolf: slot == r.wolfSlot,
		})
	}

	return &WordCheck{Roster: words}, nil
}
