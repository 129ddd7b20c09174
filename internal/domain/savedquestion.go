package domain

// SavedQuestion is a reusable question template an owner persisted to the
// question bank (SPEC_FULL.md 5), keyed by a stable id independent of any
// one Session's Quiz. It carries exactly the fields the Submission Parser
// consumes, so fetching one from the bank and feeding it to ParseQuestion
// is indistinguishable from a client submitting it fresh.
type SavedQuestion struct {
	ID        string
	OwnerName string
	Text      string
	TimeLimit int
	Body      BodySubmission
}

// ToSubmission converts the saved template back into the raw submission
// shape the parser accepts.
func (sq SavedQuestion) ToSubmission() QuestionSubmission {
	body := sq.Body
	return QuestionSubmission{
		Text:      sq.Text,
		TimeLimit: sq.TimeLimit,
		Body:      &body,
	}
}
