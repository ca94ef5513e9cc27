/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"
)

type AnswerChoice int

const (
	AnswerYes AnswerChoice = iota
	AnswerNo
	AnswerUnsure
)

var answerNames = [...]string{"yes", "no", "unsure"}

func (c AnswerChoice) valid() bool {
	return c >= AnswerYes && c <= AnswerUnsure
}

func (c AnswerChoice) String() string {
	if !c.valid() {
		return fmt.Sprintf("answer(%d)", int(c))
	}
	return answerNames[c]
}

func parseAnswerChoice(s string) (AnswerChoice, error) {
	for i, name := range answerNames {
		if strings.EqualFold(s, name) {
			return AnswerChoice(i), nil
		}
	}

	return 0, failure(KindInvalidInput, fmt.Sprintf("unknown answer %q", s))
}

type QuestionView struct {
	Author string
	Text   string
}

type AnswerEntry struct {
	ID       string
	Choice   AnswerChoice
	Answered bool
}

type QuestionResult struct {
	Author  string
	Text    string
	Answers []AnswerEntry // one per participant, roster order
}

// PrepareQuestion lets a participant type their one question for the round.
func (s *Session) PrepareQuestion(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return failure(KindSessionNotFound, s.groupID)
	}

	if s.round == nil {
		return wrongPhase(s.phase, PhaseDebating)
	}

	if !s.isParticipantLocked(callerID) {
		return failure(KindNotParticipant, "only players in this round can ask")
	}

	if s.phase != PhaseDebating {
		return wrongPhase(s.phase, PhaseDebating)
	}

	r := s.round

	if _, ok := r.questions[callerID]; ok {
		return failure(KindAlreadyAsked, "one question per round")
	}

	if r.accepted[callerID] {
		return failure(KindAlreadyPending, "type your question to send it")
	}

	r.accepted[callerID] = true

	return nil
}

// IsQuestionReady reports whether the next text from id should be taken as
// their question.
func (s *Session) IsQuestionReady(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || s.phase != PhaseDebating {
		return false
	}

	_, asked := s.round.questions[id]

	return s.round.accepted[id] && !asked
}

// SubmitQuestion records the text of a prepared question and publishes it
// for everyone to answer.
func (s *Session) SubmitQuestion(callerID, text string) (*QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(callerID, false, PhaseDebating); err != nil {
		return nil, err
	}

	r := s.round

	if !s.isParticipantLocked(callerID) {
		return nil, failure(KindNotParticipant, "only players in this round can ask")
	}

	if _, ok := r.questions[callerID]; ok {
		return nil, failure(KindAlreadyAsked, "one question per round")
	}

	if !r.accepted[callerID] {
		return nil, failure(KindNotPending, "press ask first")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, failure(KindInvalidInput, "question is empty")
	}

	delete(r.accepted, callerID)
	r.questions[callerID] = text
	r.questionOrder = append(r.questionOrder, callerID)

	q := QuestionView{Author: callerID, Text: text}
	s.presenter.RenderQuestion(s.groupID, q)

	return &q, nil
}

// Answer records the caller's reply to authorID's question. A later answer
// to the same question replaces the earlier one.
func (s *Session) Answer(callerID, authorID string, choice AnswerChoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return failure(KindSessionNotFound, s.groupID)
	}

	if s.round == nil {
		return wrongPhase(s.phase, PhaseDebating)
	}

	if !s.isParticipantLocked(callerID) {
		return failure(KindNotParticipant, "only players in this round can answer")
	}

	if s.phase != PhaseDebating {
		return wrongPhase(s.phase, PhaseDebating)
	}

	if !choice.valid() {
		return failure(KindInvalidInput, choice.String())
	}

	r := s.round

	if _, ok := r.questions[authorID]; !ok {
		return failure(KindNoSuchQuestion, authorID)
	}

	if r.answers[authorID] == nil {
		r.answers[authorID] = make(map[string]AnswerChoice)
	}
	r.answers[authorID][callerID] = choice

	return nil
}

// ShowQuestionResult lists every participant's answer to authorID's question.
// Participants must answer before they may look; spectators may always look.
func (s *Session) ShowQuestionResult(requesterID, authorID string) (*QuestionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(requesterID, false, PhaseDebating, PhaseVoting, PhaseResult); err != nil {
		return nil, err
	}

	if _, ok := s.round.questions[authorID]; !ok {
		return nil, failure(KindNoSuchQuestion, authorID)
	}

	if s.isParticipantLocked(requesterID) {
		if _, ok := s.round.answers[authorID][requesterID]; !ok {
			return nil, failure(KindMustAnswerFirst, "answer the question to see the results")
		}
	}

	return s.questionResultLocked(authorID), nil
}

func (s *Session) questionResultLocked(authorID string) *QuestionResult {
	r := s.round

	res := &QuestionResult{
		Author:  authorID,
		Text:    r.questions[authorID],
		Answers: make([]AnswerEntry, 0, len(r.roster)),
	}

	for _, id := range r.roster {
		choice, ok := r.answers[authorID][id]
		res.Answers = append(res.Answers, AnswerEntry{ID: id, Choice: choice, Answered: ok})
	}

	return res
}
