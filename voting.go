/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"cmp"
	"slices"
)

type VoteAck struct {
	Voter  string
	Target string
	Owner  bool // the owner may reveal the result next
}

type TallyEntry struct {
	ID    string
	Word  string
	Wolf  bool
	Votes int
}

type Score struct {
	ID   string
	Wins int
}

// RoundResult is everything shown when a round resolves.
type RoundResult struct {
	Round         int
	WolfWin       bool
	Pair          WordPair
	WolfWord      string
	Tally         []TallyEntry // roster order
	Questions     []QuestionResult
	Scores        []Score
	DeckExhausted bool
}

// Vote records voterID's suspect. Voters may change their mind until the
// result is revealed.
func (s *Session) Vote(voterID, targetID string) (*VoteAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil, failure(KindSessionNotFound, s.groupID)
	}

	if s.round == nil {
		return nil, wrongPhase(s.phase, PhaseVoting)
	}

	if !s.isParticipantLocked(voterID) {
		return nil, failure(KindNotParticipant, "only players in this round can vote")
	}

	if s.phase != PhaseVoting {
		return nil, wrongPhase(s.phase, PhaseVoting)
	}

	if !s.isParticipantLocked(targetID) {
		return nil, failure(KindInvalidInput, "vote for a player in this round")
	}

	s.round.votes[voterID] = targetID

	return &VoteAck{Voter: voterID, Target: targetID, Owner: voterID == s.ownerID}, nil
}

// tallyVotes counts votes per roster member and decides the round. The wolf
// side wins when the top count is shared, or when the single most-voted
// player is not the wolf.
func tallyVotes(roster []string, slots map[string]int, wolfSlot int, votes map[string]string) ([]int, bool) {
	index := make(map[string]int, len(roster))
	for i, id := range roster {
		index[id] = i
	}

	counts := make([]int, len(roster))
	for _, target := range votes {
		if i, ok := index[target]; ok {
			counts[i]++
		}
	}

	maxVotes := slices.Max(counts)

	top, ties := -1, 0
	for i, c := range counts {
		if c != maxVotes {
			continue
		}
		ties++
		if top < 0 {
			top = i
		}
	}

	if ties > 1 {
		return counts, true
	}

	return counts, slots[roster[top]] != wolfSlot
}

// GoToResult closes voting once every participant has voted and scores the round.
func (s *Session) GoToResult(callerID string) (*RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(callerID, true, PhaseVoting); err != nil {
		return nil, err
	}

	r := s.round

	var missing []string
	for _, id := range r.roster {
		if _, ok := r.votes[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		return nil, &GameError{Kind: KindIncompleteVotes, Missing: missing}
	}

	counts, wolfWin := tallyVotes(r.roster, r.slots, r.wolfSlot, r.votes)

	s.awardWinsLocked(wolfWin)

	res := &RoundResult{
		Round:    s.themeIndex + 1,
		WolfWin:  wolfWin,
		Pair:     r.pair,
		WolfWord: r.pair[r.wolfSlot],
		Tally:    make([]TallyEntry, 0, len(r.roster)),
	}

	for i, id := range r.roster {
		slot := r.slots[id]
		res.Tally = append(res.Tally, TallyEntry{
			ID:    id,
			Word:  r.pair[slot],
			Wolf:  slot == r.wolfSlot,
			Votes: counts[i],
		})
	}

	for _, author := range r.questionOrder {
		res.Questions = append(res.Questions, *s.questionResultLocked(author))
	}

	s.phase = PhaseResult
	s.themeIndex++

	res.Scores = s.scoresLocked()
	res.DeckExhausted = s.themeIndex >= len(s.deck)

	s.setMutedLocked(false)
	s.presenter.AnnouncePhase(s.groupID, PhaseEvent{Cue: CueResult})
	s.presenter.RenderResult(s.groupID, res)

	s.logf("GAMES: Round %d resolved in %s (wolf win: %t)", res.Round, s.groupID, wolfWin)

	return res, nil
}

// awardWinsLocked credits every participant on the winning side.
func (s *Session) awardWinsLocked(wolfWin bool) {
	r := s.round

	winning := 1 - r.wolfSlot
	if wolfWin {
		winning = r.wolfSlot
	}

	for _, id := range r.roster {
		if _, ok := s.wins[id]; !ok {
			s.wins[id] = 0
			s.winOrder = append(s.winOrder, id)
		}

		if r.slots[id] == winning {
			s.wins[id]++
		}
	}
}

func (s *Session) scoresLocked() []Score {
	scores := make([]Score, 0, len(s.winOrder))
	for _, id := range s.winOrder {
		scores = append(scores, Score{ID: id, Wins: s.wins[id]})
	}

	return scores
}

// leaderboard sorts scores by wins, highest first; equal scores keep the
// order players first scored in.
func leaderboard(scores []Score) []Score {
	board := slices.Clone(scores)

	slices.SortStableFunc(board, func(a, b Score) int {
		return cmp.Compare(b.Wins, a.Wins)
	})

	return board
}

// ContinueRound returns to BeforeDebate for the next theme.
func (s *Session) ContinueRound(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(callerID, true, PhaseResult); err != nil {
		return err
	}

	if s.themeIndex >= len(s.deck) {
		return failure(KindDeckExhausted, "no themes left, finish the game")
	}

	s.phase = PhaseBeforeDebate
	s.round = nil

	return nil
}

// Finish ends the session and returns the final leaderboard. The caller is
// responsible for dropping the session from its registry.
func (s *Session) Finish(callerID string) ([]Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(callerID, true, PhaseResult); err != nil {
		return nil, err
	}

	board := leaderboard(s.scoresLocked())

	s.presenter.RenderFinalScores(s.groupID, board)

	s.destroyed = true
	s.stopCountdownLocked()
	s.setMutedLocked(false)

	s.logf("GAMES: Session %s finished after %d rounds", s.groupID, s.themeIndex)

	return board, nil
}
