package domain

import "time"

const (
	MinTimeLimitSeconds = 60
	MaxTimeLimitSeconds = 300
	MinTotalPoints      = 100
	MaxTotalPoints      = 1000
	MinChoices          = 2
	MaxChoices          = 4
	MinAnswers          = 1
	MaxAnswers          = 3
)

// ChoiceSubmission is one raw multiple-choice option as submitted by a
// client.
type ChoiceSubmission struct {
	Text   string
	Points int
}

// AnswerSubmission is one raw fill-in accepted answer as submitted by a
// client.
type AnswerSubmission struct {
	Text   string
	Points int
}

// BodySubmission is the raw, possibly-invalid question body as submitted
// by a client. Kind selects which of Choices/Answer or Answers applies.
type BodySubmission struct {
	Kind    BodyKind
	Choices []ChoiceSubmission
	Answer  int
	Answers []AnswerSubmission
}

// QuestionSubmission is the raw add-question argument: every field is
// potentially absent or out of range.
type QuestionSubmission struct {
	Text      string
	TimeLimit int // seconds
	Body      *BodySubmission
}

// nestedFieldError describes a rejected field inside a repeated body
// element (a choice or an answer), matching the wire shape
// {index, field, value}.
type nestedFieldError struct {
	Index int    `json:"index"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ParseQuestion converts a raw QuestionSubmission into a valid Question or
// a collected list of field errors. Every rule is checked and collected
// together; the single exception is a missing body, which short-circuits
// because the body-kind-specific rules have nothing to validate.
func ParseQuestion(sub QuestionSubmission) (*Question, ErrorList) {
	var errs ErrorList

	if sub.Text == "" {
		errs = errs.Add("text", sub.Text)
	}
	if sub.TimeLimit < MinTimeLimitSeconds || sub.TimeLimit > MaxTimeLimitSeconds {
		errs = errs.Add("timeLimit", sub.TimeLimit)
	}

	if sub.Body == nil {
		errs = errs.Add("body", nil)
		return nil, errs
	}

	var body Body
	switch sub.Body.Kind {
	case MultipleChoice:
		body, errs = parseMultipleChoice(*sub.Body, errs)
	case FillIn:
		body, errs = parseFillIn(*sub.Body, errs)
	default:
		errs = errs.Add("body", sub.Body.Kind)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return NewQuestion(sub.Text, time.Duration(sub.TimeLimit)*time.Second, body.totalPoints(), body), nil
}

func parseMultipleChoice(sub BodySubmission, errs ErrorList) (Body, ErrorList) {
	if len(sub.Choices) < MinChoices || len(sub.Choices) > MaxChoices {
		errs = errs.Add("choices", len(sub.Choices))
	}

	total := 0
	choices := make([]Choice, len(sub.Choices))
	for i, c := range sub.Choices {
		if c.Text == "" {
			errs = errs.Add("choices", nestedFieldError{Index: i, Field: "text", Value: c.Text})
		}
		if c.Points < 0 {
			errs = errs.Add("choices", nestedFieldError{Index: i, Field: "points", Value: c.Points})
		}
		total += c.Points
		choices[i] = Choice{Text: c.Text, Points: c.Points}
	}

	if sub.Answer < 0 || sub.Answer >= len(sub.Choices) {
		errs = errs.Add("answer", sub.Answer)
	}
	if total < MinTotalPoints || total > MaxTotalPoints {
		errs = errs.Add("totalPoints", total)
	}

	return NewMultipleChoiceBody(choices, sub.Answer), errs
}

func parseFillIn(sub BodySubmission, errs ErrorList) (Body, ErrorList) {
	if len(sub.Answers) < MinAnswers || len(sub.Answers) > MaxAnswers {
		errs = errs.Add("answers", len(sub.Answers))
	}

	total := 0
	answers := make([]Answer, len(sub.Answers))
	for i, a := range sub.Answers {
		if a.Text == "" {
			errs = errs.Add("answers", nestedFieldError{Index: i, Field: "text", Value: a.Text})
		}
		if a.Points < 0 {
			errs = errs.Add("answers", nestedFieldError{Index: i, Field: "points", Value: a.Points})
		}
		total += a.Points
		answers[i] = Answer{Text: a.Text, Points: a.Points}
	}

	if total < MinTotalPoints || total > MaxTotalPoints {
		errs = errs.Add("totalPoints", total)
	}

	return NewFillInBody(answers), errs
}

// totalPoints sums the configured points across whichever body kind is set.
func (b Body) totalPoints() int {
	total := 0
	switch b.Kind {
	case MultipleChoice:
		for _, c := range b.Choices {
			total += c.Points
		}
	case FillIn:
		for _, a := range b.Answers {
			total += a.Points
		}
	}
	return total
}
