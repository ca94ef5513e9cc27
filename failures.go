/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"
)

// Kind classifies a failed game command.
type Kind int

const (
	KindNotParticipant Kind = iota + 1
	KindWrongPhase
	KindNotOwner
	KindRosterInvalid
	KindAlreadyAsked
	KindAlreadyPending
	KindNotPending
	KindNoSuchQuestion
	KindMustAnswerFirst
	KindIncompleteVotes
	KindDeckExhausted
	KindNoThemesAvailable
	KindSessionConflict
	KindSessionNotFound
	KindInvalidInput
)

var kindNames = map[Kind]string{
	KindNotParticipant:    "not_participant",
	KindWrongPhase:        "wrong_phase",
	KindNotOwner:          "not_owner",
	KindRosterInvalid:     "roster_invalid",
	KindAlreadyAsked:      "already_asked",
	KindAlreadyPending:    "already_pending",
	KindNotPending:        "not_pending",
	KindNoSuchQuestion:    "no_such_question",
	KindMustAnswerFirst:   "must_answer_first",
	KindIncompleteVotes:   "incomplete_votes",
	KindDeckExhausted:     "deck_exhausted",
	KindNoThemesAvailable: "no_themes_available",
	KindSessionConflict:   "session_conflict",
	KindSessionNotFound:   "session_not_found",
	KindInvalidInput:      "invalid_input",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type RosterProblem string

const (
	RosterTooFew  RosterProblem = "too_few"
	RosterTooMany RosterProblem = "too_many"
)

// GameError is returned by every engine command that is refused. The session
// is left exactly as it was before the command.
type GameError struct {
	Kind Kind

	Expected []Phase       // KindWrongPhase
	Actual   Phase         // KindWrongPhase
	Roster   RosterProblem // KindRosterInvalid
	Missing  []string      // KindIncompleteVotes, in roster order

	Detail string
	Err    error
}

func (e *GameError) Error() string {
	var b strings.Builder

	b.WriteString(strings.ReplaceAll(e.Kind.String(), "_", " "))

	switch e.Kind {
	case KindWrongPhase:
		names := make([]string, len(e.Expected))
		for i, p := range e.Expected {
			names[i] = p.String()
		}
		fmt.Fprintf(&b, ": expected %s, got %s", strings.Join(names, " or "), e.Actual)
	case KindRosterInvalid:
		fmt.Fprintf(&b, ": %s (need %d-%d players)", strings.ReplaceAll(string(e.Roster), "_", " "), minPlayers, maxPlayers)
	case KindIncompleteVotes:
		fmt.Fprintf(&b, ": waiting on %s", strings.Join(e.Missing, ", "))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *GameError) Unwrap() error {
	return e.Err
}

// Is matches any GameError of the same kind, so the sentinels below work with
// errors.Is regardless of details.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)

	return ok && t.Kind == e.Kind
}

var (
	ErrNotParticipant    = &GameError{Kind: KindNotParticipant}
	ErrWrongPhase        = &GameError{Kind: KindWrongPhase}
	ErrNotOwner          = &GameError{Kind: KindNotOwner}
	ErrRosterInvalid     = &GameError{Kind: KindRosterInvalid}
	ErrAlreadyAsked      = &GameError{Kind: KindAlreadyAsked}
	ErrAlreadyPending    = &GameError{Kind: KindAlreadyPending}
	ErrNotPending        = &GameError{Kind: KindNotPending}
	ErrNoSuchQuestion    = &GameError{Kind: KindNoSuchQuestion}
	ErrMustAnswerFirst   = &GameError{Kind: KindMustAnswerFirst}
	ErrIncompleteVotes   = &GameError{Kind: KindIncompleteVotes}
	ErrDeckExhausted     = &GameError{Kind: KindDeckExhausted}
	ErrNoThemesAvailable = &GameError{Kind: KindNoThemesAvailable}
	ErrSessionConflict   = &GameError{Kind: KindSessionConflict}
	ErrSessionNotFound   = &GameError{Kind: KindSessionNotFound}
	ErrInvalidInput      = &GameError{Kind: KindInvalidInput}
)

func failure(kind Kind, detail string) *GameError {
	return &GameError{Kind: kind, Detail: detail}
}

func wrongPhase(actual Phase, expected ...Phase) *GameError {
	return &GameError{Kind: KindWrongPhase, Actual: actual, Expected: expected}
}
