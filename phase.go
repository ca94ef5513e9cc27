/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "slices"

// Phase is the stage a session is in during a round.
type Phase string

const (
	PhaseBeforeDebate Phase = "before_debate" // waiting for the owner to start a round
	PhaseDebating     Phase = "debating"      // countdown running, questions open
	PhaseVoting       Phase = "voting"        // everyone picks a suspect
	PhaseResult       Phase = "result"        // tally shown, continue or finish
)

func (p Phase) String() string {
	return string(p)
}

func (p Phase) in(phases ...Phase) bool {
	return slices.Contains(phases, p)
}

const (
	minPlayers = 3
	maxPlayers = 8
)

// Remaining-second marks that get a narration cue during the debate.
var milestones = []int{10, 30, 60, 120, 180, 300}

// Cue names a narration event; the browser maps each one to an audio clip.
type Cue string

const (
	CueJoin         Cue = "join"
	CueStart        Cue = "start"
	CueMilestone    Cue = "milestone"
	CueDebateFinish Cue = "debateFinish"
	CueResult       Cue = "result"
	CueTooMany      Cue = "tooMany"
	CueTooFew       Cue = "tooFew"
)

type PhaseEvent struct {
	Cue     Cue `json:"cue"`
	Seconds int `json:"seconds,omitempty"` // start: debate length, milestone: seconds left
}
