package app

import (
	"strconv"

	"quizroom/internal/domain"
)

// ToSubmission exposes toSubmission for the HTTP question-bank routes,
// which accept the same wire shape as add-question but over REST rather
// than the websocket.
func ToSubmission(q QuestionPayload) domain.QuestionSubmission {
	return toSubmission(q)
}

func toSubmission(q QuestionPayload) domain.QuestionSubmission {
	sub := domain.QuestionSubmission{
		Text:      q.Text,
		TimeLimit: q.TimeLimit,
	}
	if q.Body == nil {
		return sub
	}
	body := &domain.BodySubmission{
		Kind:   domain.BodyKind(q.Body.Kind),
		Answer: q.Body.Answer,
	}
	for _, c := range q.Body.Choices {
		body.Choices = append(body.Choices, domain.ChoiceSubmission{Text: c.Text, Points: c.Points})
	}
	for _, a := range q.Body.Answers {
		body.Answers = append(body.Answers, domain.AnswerSubmission{Text: a.Text, Points: a.Points})
	}
	sub.Body = body
	return sub
}

// QuestionPayloadFromSubmission renders a raw QuestionSubmission back into the
// wire QuestionPayload shape, the inverse of ToSubmission, for serving
// saved questions back out of the question bank.
func QuestionPayloadFromSubmission(sub domain.QuestionSubmission) QuestionPayload {
	out := QuestionPayload{Text: sub.Text, TimeLimit: sub.TimeLimit}
	if sub.Body == nil {
		return out
	}
	body := &BodyPayload{Kind: string(sub.Body.Kind), Answer: sub.Body.Answer}
	for _, c := range sub.Body.Choices {
		body.Choices = append(body.Choices, ChoicePayload{Text: c.Text, Points: c.Points})
	}
	for _, a := range sub.Body.Answers {
		body.Answers = append(body.Answers, AnswerPayload{Text: a.Text, Points: a.Points})
	}
	out.Body = body
	return out
}

func toFieldErrs(errs domain.ErrorList) []FieldErr {
	out := make([]FieldErr, 0, len(errs))
	for _, e := range errs {
		out = append(out, FieldErr{Field: e.Field, Value: e.Value})
	}
	return out
}

func toQuestionOut(q *domain.Question) QuestionOut {
	out := QuestionOut{
		Index:     q.Index,
		Text:      q.Text,
		TimeLimit: int(q.TimeLimit.Seconds()),
	}
	body := &BodyPayload{Kind: string(q.Body.Kind), Answer: q.Body.Correct}
	for _, c := range q.Body.Choices {
		body.Choices = append(body.Choices, ChoicePayload{Text: c.Text, Points: c.Points})
	}
	for _, a := range q.Body.Answers {
		body.Answers = append(body.Answers, AnswerPayload{Text: a.Text, Points: a.Points})
	}
	out.Body = body
	return out
}

// toResponse converts the wire response payload into a domain.Response,
// reporting false if the kind is unrecognized.
func toResponse(p ResponsePayload) (domain.Response, bool) {
	switch domain.ResponseKind(p.Kind) {
	case domain.ResponseMultipleChoice:
		return domain.Response{Submitter: p.Submitter, Kind: domain.ResponseMultipleChoice, Answer: p.Answer}, true
	case domain.ResponseFillIn:
		return domain.Response{Submitter: p.Submitter, Kind: domain.ResponseFillIn, Text: p.Text}, true
	default:
		return domain.Response{}, false
	}
}

// responseString renders a response's answer as the string the broadcast
// payload carries (spec.md 4.4.9: "response (as string)").
func responseString(r domain.Response) string {
	switch r.Kind {
	case domain.ResponseMultipleChoice:
		return strconv.Itoa(r.Answer)
	case domain.ResponseFillIn:
		return r.Text
	default:
		return ""
	}
}
