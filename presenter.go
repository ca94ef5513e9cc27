/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Presenter renders session changes that nobody asked for directly: narration
// cues, countdown ticks, published questions and round results. Calls are
// made while the session is locked, so implementations must not block and
// must not call back into the session.
type Presenter interface {
	AnnouncePhase(groupID string, ev PhaseEvent)
	RenderCountdown(groupID string, remaining int)
	RenderQuestion(groupID string, q QuestionView)
	RenderResult(groupID string, r *RoundResult)
	RenderFinalScores(groupID string, scores []Score)
}

// MuteController toggles voice for the listed players. Failures are logged
// and otherwise ignored.
type MuteController interface {
	SetMuted(groupID string, playerIDs []string, muted bool) error
}

type nopPresenter struct{}

func (nopPresenter) AnnouncePhase(string, PhaseEvent) {}
func (nopPresenter) RenderCountdown(string, int) {}
func (nopPresenter) RenderQuestion(string, QuestionView) {}
func (nopPresenter) RenderResult(string, *RoundResult) {}
func (nopPresenter) RenderFinalScores(string, []Score) {}

type nopMuter struct{}

func (nopMuter) SetMuted(string, []string, bool) error { return nil }
