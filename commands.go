/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
)

// Command is one user action against a group's session. The set of commands
// is closed; Dispatch handles each of them.
type Command interface {
	command()
}

type (
	CreateSession struct {
		OwnerID string
	}
	StartRound struct {
		CallerID string
		Seconds  int
		Roster   []string
	}
	CheckWord struct {
		CallerID string
	}
	PrepareQuestion struct {
		CallerID string
	}
	SubmitQuestion struct {
		CallerID string
		Text     string
	}
	AnswerQuestion struct {
		CallerID string
		AuthorID string
		Choice   AnswerChoice
	}
	ShowQuestionResult struct {
		CallerID string
		AuthorID string
	}
	CastVote struct {
		CallerID string
		TargetID string
	}
	GoToResult struct {
		CallerID string
	}
	ContinueRound struct {
		CallerID string
	}
	FinishSession struct {
		CallerID string
	}
	DestroySession struct{}
)

func (CreateSession) command()      {}
func (StartRound) command()         {}
func (CheckWord) command()          {}
func (PrepareQuestion) command()    {}
func (SubmitQuestion) command()     {}
func (AnswerQuestion) command()     {}
func (ShowQuestionResult) command() {}
func (CastVote) command()           {}
func (GoToResult) command()         {}
func (ContinueRound) command()      {}
func (FinishSession) command()      {}
func (DestroySession) command()     {}

// Dispatch runs cmd against groupID's session. The payload type depends on
// the command:
//
//	CreateSession      *Session
//	StartRound         *RoundStart
//	CheckWord          *WordCheck
//	PrepareQuestion    nil
//	SubmitQuestion     *QuestionView
//	AnswerQuestion     nil
//	ShowQuestionResult *QuestionResult
//	CastVote           *VoteAck
//	GoToResult         *RoundResult
//	ContinueRound      nil
//	FinishSession      []Score
//	DestroySession     nil
func (r *Registry) Dispatch(ctx context.Context, groupID string, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case CreateSession:
		return reply(r.Create(ctx, groupID, c.OwnerID))
	case DestroySession:
		if !r.Remove(groupID) {
			return nil, failure(KindSessionNotFound, groupID)
		}
		return nil, nil
	}

	sess := r.Get(groupID)
	if sess == nil {
		return nil, failure(KindSessionNotFound, groupID)
	}

	switch c := cmd.(type) {
	case StartRound:
		return reply(sess.Start(c.CallerID, c.Seconds, c.Roster))
	case CheckWord:
		return reply(sess.CheckWord(c.CallerID))
	case PrepareQuestion:
		return nil, sess.PrepareQuestion(c.CallerID)
	case SubmitQuestion:
		return reply(sess.SubmitQuestion(c.CallerID, c.Text))
	case AnswerQuestion:
		return nil, sess.Answer(c.CallerID, c.AuthorID, c.Choice)
	case ShowQuestionResult:
		return reply(sess.ShowQuestionResult(c.CallerID, c.AuthorID))
	case CastVote:
		return reply(sess.Vote(c.CallerID, c.TargetID))
	case GoToResult:
		return reply(sess.GoToResult(c.CallerID))
	case ContinueRound:
		return nil, sess.ContinueRound(c.CallerID)
	case FinishSession:
		scores, err := sess.Finish(c.CallerID)
		if err != nil {
			return nil, err
		}
		r.removeIf(groupID, sess)
		return scores, nil
	}

	return nil, failure(KindInvalidInput, fmt.Sprintf("unknown command %T", cmd))
}

// reply keeps a failed command's payload an untyped nil.
func reply[T any](payload *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}

	return payload, nil
}
