/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"testing"
	"testing/quick"
)

// ============================================================================
// Question Tests
// ============================================================================

func TestQuestionFlow(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()
	h.start(sess, 60, testRoster, 0, 0)

	if sess.IsQuestionReady("p2") {
		t.Fatal("p2 ready before asking")
	}

	if err := sess.PrepareQuestion("p2"); err != nil {
		t.Fatalf("PrepareQuestion: %v", err)
	}
	if err := sess.PrepareQuestion("p2"); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("second PrepareQuestion = %v, want already pending", err)
	}
	if !sess.IsQuestionReady("p2") {
		t.Fatal("p2 not ready after PrepareQuestion")
	}

	q, err := sess.SubmitQuestion("p2", "  is it an animal?  ")
	if err != nil {
		t.Fatalf("SubmitQuestion: %v", err)
	}
	if q.Author != "p2" || q.Text != "is it an animal?" {
		t.Errorf("question = %+v", q)
	}

	if sess.IsQuestionReady("p2") {
		t.Error("p2 still ready after submitting")
	}
	if err := sess.PrepareQuestion("p2"); !errors.Is(err, ErrAlreadyAsked) {
		t.Errorf("PrepareQuestion after asking = %v, want already asked", err)
	}

	h.rec.mu.Lock()
	rendered := len(h.rec.questions)
	h.rec.mu.Unlock()
	if rendered != 1 {
		t.Errorf("rendered %d questions, want 1", rendered)
	}

	st := sess.Snapshot()
	if len(st.Questions) != 1 || st.Questions[0] != *q {
		t.Errorf("snapshot questions = %+v", st.Questions)
	}
}

func TestSubmitQuestionChecks(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()
	h.start(sess, 60, testRoster, 0, 0)

	if _, err := sess.SubmitQuestion("p3", "hello?"); !errors.Is(err, ErrNotPending) {
		t.Errorf("submit without asking = %v, want not pending", err)
	}

	if err := sess.PrepareQuestion("spectator"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("spectator ask = %v, want not participant", err)
	}

	if err := sess.PrepareQuestion("p3"); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.SubmitQuestion("p3", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank question = %v, want invalid input", err)
	}
	if !sess.IsQuestionReady("p3") {
		t.Error("blank question should leave the grant in place")
	}
}

func TestPendingQuestionDroppedAtVoting(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()
	h.start(sess, 5, testRoster, 0, 0)

	if err := sess.PrepareQuestion("p4"); err != nil {
		t.Fatal(err)
	}

	forceVoting(t, sess)

	if sess.IsQuestionReady("p4") {
		t.Error("grant survived into voting")
	}
	if err := sess.PrepareQuestion("p4"); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("ask during voting = %v, want wrong phase", err)
	}
}

func askQuestion(t *testing.T, sess *Session, author, text string) {
	t.Helper()

	if err := sess.PrepareQuestion(author); err != nil {
		t.Fatalf("PrepareQuestion(%s): %v", author, err)
	}
	if _, err := sess.SubmitQuestion(author, text); err != nil {
		t.Fatalf("SubmitQuestion(%s): %v", author, err)
	}
}

func TestAnswerLastWriteWins(t *testing.T) {
	f := func(choices []uint8) bool {
		h := newHarness(t, testPairs)
		sess := h.create()
		h.start(sess, 60, testRoster, 0, 0)
		askQuestion(t, sess, "owner", "is it furry?")

		if len(choices) == 0 {
			choices = []uint8{0}
		}

		var last AnswerChoice
		for _, c := range choices {
			last = AnswerChoice(int(c) % 3)
			if err := sess.Answer("p2", "owner", last); err != nil {
				return false
			}
		}

		res, err := sess.ShowQuestionResult("p2", "owner")
		if err != nil {
			return false
		}

		for _, a := range res.Answers {
			if a.ID == "p2" {
				return a.Answered && a.Choice == last
			}
		}
		return false
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func TestAnswerChecks(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()
	h.start(sess, 5, testRoster, 0, 0)
	askQuestion(t, sess, "owner", "is it furry?")

	if err := sess.Answer("p2", "p3", AnswerYes); !errors.Is(err, ErrNoSuchQuestion) {
		t.Errorf("answer to missing question = %v, want no such question", err)
	}
	if err := sess.Answer("spectator", "owner", AnswerYes); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("spectator answer = %v, want not participant", err)
	}
	if err := sess.Answer("p2", "owner", AnswerChoice(7)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad choice = %v, want invalid input", err)
	}

	forceVoting(t, sess)

	if err := sess.Answer("p2", "owner", AnswerNo); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("answer during voting = %v, want wrong phase", err)
	}
}

func TestShowQuestionResult(t *testing.T) {
	h := newHarness(t, testPairs)
	sess := h.create()
	h.start(sess, 5, testRoster, 0, 0)
	askQuestion(t, sess, "p3", "can you eat it?")

	if _, err := sess.ShowQuestionResult("p2", "p3"); !errors.Is(err, ErrMustAnswerFirst) {
		t.Errorf("unanswered participant = %v, want must answer first", err)
	}
	if _, err := sess.ShowQuestionResult("p2", "p4"); !errors.Is(err, ErrNoSuchQuestion) {
		t.Errorf("missing question = %v, want no such question", err)
	}

	if err := sess.Answer("p2", "p3", AnswerUnsure); err != nil {
		t.Fatal(err)
	}

	res, err := sess.ShowQuestionResult("spectator", "p3")
	if err != nil {
		t.Fatalf("spectator view: %v", err)
	}

	if res.Author != "p3" || res.Text != "can you eat it?" || len(res.Answers) != len(testRoster) {
		t.Fatalf("result = %+v", res)
	}

	for i, a := range res.Answers {
		if a.ID != testRoster[i] {
			t.Errorf("answers[%d] = %s, want %s", i, a.ID, testRoster[i])
		}
		if a.Answered != (a.ID == "p2") {
			t.Errorf("%s answered = %t", a.ID, a.Answered)
		}
	}

	// still visible once the debate is over
	forceVoting(t, sess)
	if _, err := sess.ShowQuestionResult("p2", "p3"); err != nil {
		t.Errorf("result during voting: %v", err)
	}
}

func TestParseAnswerChoice(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want AnswerChoice
		ok   bool
	}{
		{"yes", AnswerYes, true},
		{"NO", AnswerNo, true},
		{"Unsure", AnswerUnsure, true},
		{"maybe", 0, false},
		{"", 0, false},
	} {
		got, err := parseAnswerChoice(tc.in)
		if (err == nil) != tc.ok || (tc.ok && got != tc.want) {
			t.Errorf("parseAnswerChoice(%q) = %v, %v", tc.in, got, err)
		}
	}
}
