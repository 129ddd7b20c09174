package domain

import (
	"sync/atomic"
	"testing"
	"time"
)

func multipleChoiceQuestion() *Question {
	body := NewMultipleChoiceBody([]Choice{
		{Text: "c1", Points: 200},
		{Text: "c2", Points: 200},
	}, 1)
	return NewQuestion("Q", 60*time.Second, 400, body)
}

func fillInQuestion() *Question {
	body := NewFillInBody([]Answer{{Text: "Paris", Points: 100}})
	return NewQuestion("Capital of France?", 60*time.Second, 100, body)
}

func TestQuestionAddResponseRequiresStarted(t *testing.T) {
	q := multipleChoiceQuestion()
	_, err := q.AddResponse(Response{Submitter: "b", Kind: ResponseMultipleChoice, Answer: 1})
	if err != ErrNotStarted {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestQuestionAddResponseRejectsEnded(t *testing.T) {
	q := multipleChoiceQuestion()
	q.Start()
	q.End()
	_, err := q.AddResponse(Response{Submitter: "b", Kind: ResponseMultipleChoice, Answer: 1})
	if err != ErrAlreadyEnded {
		t.Fatalf("expected ErrAlreadyEnded, got %v", err)
	}
}

func TestQuestionAddResponseRejectsDuplicate(t *testing.T) {
	q := multipleChoiceQuestion()
	q.Start()
	if _, err := q.AddResponse(Response{Submitter: "b", Kind: ResponseMultipleChoice, Answer: 1}); err != nil {
		t.Fatalf("first response: %v", err)
	}
	if _, err := q.AddResponse(Response{Submitter: "b", Kind: ResponseMultipleChoice, Answer: 0}); err != ErrDuplicateResponse {
		t.Fatalf("expected ErrDuplicateResponse, got %v", err)
	}
}

func TestQuestionGradingAndFirstCorrect(t *testing.T) {
	q := multipleChoiceQuestion()
	q.Start()

	points, err := q.AddResponse(Response{Submitter: "a", Kind: ResponseMultipleChoice, Answer: 0})
	if err != nil || points != 0 {
		t.Fatalf("expected 0 points for wrong answer, got %d err=%v", points, err)
	}
	points, err = q.AddResponse(Response{Submitter: "b", Kind: ResponseMultipleChoice, Answer: 1})
	if err != nil || points != 200 {
		t.Fatalf("expected 200 points for correct answer, got %d err=%v", points, err)
	}
	if q.FirstCorrect() != "b" {
		t.Fatalf("expected firstCorrect=b, got %q", q.FirstCorrect())
	}

	// A later correct responder never overwrites firstCorrect.
	q2 := multipleChoiceQuestion()
	q2.Start()
	_, _ = q2.AddResponse(Response{Submitter: "x", Kind: ResponseMultipleChoice, Answer: 1})
	_, _ = q2.AddResponse(Response{Submitter: "y", Kind: ResponseMultipleChoice, Answer: 1})
	if q2.FirstCorrect() != "x" {
		t.Fatalf("firstCorrect should stay at first winner, got %q", q2.FirstCorrect())
	}
}

func TestQuestionFillInCaseInsensitive(t *testing.T) {
	q := fillInQuestion()
	q.Start()

	points, err := q.AddResponse(Response{Submitter: "b", Kind: ResponseFillIn, Text: "pArIs"})
	if err != nil || points != 100 {
		t.Fatalf("expected 100 points for case-insensitive match, got %d err=%v", points, err)
	}
	points, err = q.AddResponse(Response{Submitter: "c", Kind: ResponseFillIn, Text: "London"})
	if err != nil || points != 0 {
		t.Fatalf("expected 0 points for wrong answer, got %d err=%v", points, err)
	}

	if f := q.FrequencyOf(Response{Kind: ResponseFillIn, Text: "paris"}); f != 1 {
		t.Fatalf("expected frequency 1 for paris, got %d", f)
	}
	if f := q.FrequencyOf(Response{Kind: ResponseFillIn, Text: "london"}); f != 1 {
		t.Fatalf("expected frequency 1 for london (added lazily), got %d", f)
	}
}

func TestQuestionFrequencyPreseededForKnownAnswers(t *testing.T) {
	q := multipleChoiceQuestion()
	if f := q.FrequencyOf(Response{Kind: ResponseMultipleChoice, Answer: 0}); f != 0 {
		t.Fatalf("expected preseeded 0, got %d", f)
	}
	if f := q.FrequencyOf(Response{Kind: ResponseMultipleChoice, Answer: 1}); f != 0 {
		t.Fatalf("expected preseeded 0, got %d", f)
	}
}

func TestQuestionRelativeFrequency(t *testing.T) {
	q := multipleChoiceQuestion()
	q.Start()
	_, _ = q.AddResponse(Response{Submitter: "a", Kind: ResponseMultipleChoice, Answer: 1})
	_, _ = q.AddResponse(Response{Submitter: "b", Kind: ResponseMultipleChoice, Answer: 0})
	if rf := q.RelativeFrequencyOf(Response{Kind: ResponseMultipleChoice, Answer: 1}); rf != 0.5 {
		t.Fatalf("expected relative frequency 0.5, got %v", rf)
	}
}

func TestQuestionStartIdempotent(t *testing.T) {
	q := multipleChoiceQuestion()
	q.Start()
	firstTimer := q.timer
	q.Start()
	if q.timer != firstTimer {
		t.Fatalf("expected second Start to be a no-op")
	}
}

func TestQuestionEndIdempotent(t *testing.T) {
	q := multipleChoiceQuestion()
	q.Start()
	q.End()
	if !q.HasEnded() {
		t.Fatalf("expected question ended")
	}
	q.End() // no panic, no state change
	if !q.HasEnded() {
		t.Fatalf("expected question to remain ended")
	}
}

func TestQuestionTimerFiresOnce(t *testing.T) {
	body := NewMultipleChoiceBody([]Choice{{Text: "a", Points: 100}, {Text: "b", Points: 100}}, 0)
	q := NewQuestion("Q", 10*time.Millisecond, 200, body)

	var fired int32
	q.SetOnTimeout(func() { atomic.AddInt32(&fired, 1) })
	q.Start()

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected onTimeout exactly once, got %d", fired)
	}
	if !q.HasEnded() {
		t.Fatalf("expected question ended after timer fire")
	}
}

func TestQuestionManualEndSuppressesTimer(t *testing.T) {
	body := NewMultipleChoiceBody([]Choice{{Text: "a", Points: 100}, {Text: "b", Points: 100}}, 0)
	q := NewQuestion("Q", 20*time.Millisecond, 200, body)

	var fired int32
	q.SetOnTimeout(func() { atomic.AddInt32(&fired, 1) })
	q.Start()
	q.End()

	time.Sleep(50 * time.Millisecond)

	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("expected onTimeout not fired after manual end, got %d", fired)
	}
}

func TestQuestionAddFeedbackRejectsDuplicate(t *testing.T) {
	q := multipleChoiceQuestion()
	if !q.AddFeedback("a", Feedback{Rating: 3, Message: "good"}) {
		t.Fatalf("expected first feedback to succeed")
	}
	if q.AddFeedback("a", Feedback{Rating: 1, Message: "changed my mind"}) {
		t.Fatalf("expected duplicate feedback to be rejected")
	}
}
