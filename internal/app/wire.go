package app

import "encoding/json"

// Event names for incoming requests (spec.md 6).
const (
	EventCreateSession   = "create session"
	EventJoinSession     = "join session"
	EventAddQuestion     = "add question"
	EventEditQuestion    = "edit question"
	EventRemoveQuestion  = "remove question"
	EventKickUser        = "kick"
	EventStartSession    = "start session"
	EventEndSession      = "end session"
	EventNextQuestion    = "next question"
	EventQuestionResp    = "question response"
	EventEndQuestion     = "end question"
	EventSubmitFeedback  = "submit feedback"
	EventSendHint        = "send hint"
	EventDisconnect      = "disconnect"
)

// Event names for room/private broadcasts derived from a request (spec.md 6).
const (
	BroadcastUserJoined           = "user joined"
	BroadcastUserKicked           = "user kicked"
	BroadcastSessionStarted       = "session started"
	BroadcastSessionEnded         = "session ended"
	BroadcastNextQuestion         = "next question"
	BroadcastQuestionResponseAdd  = "question response added"
	BroadcastQuestionEnded        = "question ended"
	BroadcastFeedbackSubmitted    = "feedback submitted"
	BroadcastHintReceived         = "hint received"
	BroadcastUserDisconnected     = "user disconnected"
)

const (
	StatusOK         = 200
	StatusBadRequest = 400
)

// Envelope is the shape of every acknowledgement and broadcast (spec.md 6).
type Envelope struct {
	Status  int
	Event   string
	Session *string
	Data    any
	Errors  []FieldErr
}

// MarshalJSON renders the wire contract from spec.md 6: "data" is present
// iff status is 200 and "errors" is present iff status is 400, regardless
// of whether the underlying Go value is itself nil (an ok() with no
// payload still owes the client a "data" key; a fail() with no per-field
// errors still owes it an "errors" key).
func (e Envelope) MarshalJSON() ([]byte, error) {
	fields := map[string]any{
		"status":  e.Status,
		"event":   e.Event,
		"session": e.Session,
	}
	switch e.Status {
	case StatusOK:
		fields["data"] = e.Data
	case StatusBadRequest:
		fields["errors"] = e.Errors
	}
	return json.Marshal(fields)
}

// FieldErr is the wire error descriptor: {field, value}.
type FieldErr struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func ok(event, session string, data any) Envelope {
	s := session
	return Envelope{Status: StatusOK, Event: event, Session: &s, Data: data}
}

func fail(event string, session *string, errs []FieldErr) Envelope {
	return Envelope{Status: StatusBadRequest, Event: event, Session: session, Errors: errs}
}

func failField(event, field string, value any) Envelope {
	return fail(event, nil, []FieldErr{{Field: field, Value: value}})
}

func failEmpty(event string) Envelope {
	return fail(event, nil, nil)
}

// --- Request argument shapes -------------------------------------------------

// JoinArgs is the join-session request payload.
type JoinArgs struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionArgs is the shape shared by every owner operation that only names
// the session.
type SessionArgs struct {
	Session string `json:"session"`
}

// AddQuestionArgs is the add-question request payload.
type AddQuestionArgs struct {
	Session  string              `json:"session"`
	Question QuestionPayload     `json:"question"`
}

// QuestionPayload is the raw wire shape of a submitted question, mirroring
// domain.QuestionSubmission before validation.
type QuestionPayload struct {
	Text      string       `json:"text"`
	TimeLimit int          `json:"timeLimit"`
	Body      *BodyPayload `json:"body"`
}

// BodyPayload is the raw wire shape of a submitted question body.
type BodyPayload struct {
	Kind    string            `json:"kind"`
	Choices []ChoicePayload   `json:"choices"`
	Answer  int               `json:"answer"`
	Answers []AnswerPayload   `json:"answers"`
}

type ChoicePayload struct {
	Text   string `json:"text"`
	Points int    `json:"points"`
}

type AnswerPayload struct {
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// EditQuestionArgs is the edit-question request payload.
type EditQuestionArgs struct {
	Session  string          `json:"session"`
	Index    int             `json:"index"`
	Question QuestionPayload `json:"question"`
}

// RemoveQuestionArgs is the remove-question request payload.
type RemoveQuestionArgs struct {
	Session string `json:"session"`
	Index   int    `json:"index"`
}

// KickArgs is the kick-user request payload.
type KickArgs struct {
	Session string `json:"session"`
	Name    string `json:"name"`
}

// QuestionResponseArgs is the question-response request payload.
type QuestionResponseArgs struct {
	Session  string          `json:"session"`
	Name     string          `json:"name"`
	Index    int             `json:"index"`
	Response ResponsePayload `json:"response"`
}

// ResponsePayload is the raw wire shape of a submitted response.
type ResponsePayload struct {
	Kind      string `json:"kind"`
	Answer    int    `json:"answer"`
	Text      string `json:"text"`
	Submitter string `json:"submitter"`
}

// EndQuestionArgs is the end-question request payload.
type EndQuestionArgs struct {
	Session  string `json:"session"`
	Question int    `json:"question"`
}

// SubmitFeedbackArgs is the submit-feedback request payload.
type SubmitFeedbackArgs struct {
	Session  string          `json:"session"`
	Name     string          `json:"name"`
	Question int             `json:"question"`
	Feedback FeedbackPayload `json:"feedback"`
}

type FeedbackPayload struct {
	Rating  int    `json:"rating"`
	Message string `json:"message"`
}

// SendHintArgs is the send-hint request payload.
type SendHintArgs struct {
	Session  string `json:"session"`
	Question int    `json:"question"`
	Hint     string `json:"hint"`
}

// --- Response / broadcast data shapes ---------------------------------------

type userNamePayload struct {
	Name string `json:"name"`
}

type nextQuestionPayload struct {
	Index    int         `json:"index"`
	Question QuestionOut `json:"question"`
}

// QuestionOut is the read-only wire view of a Question sent to clients.
type QuestionOut struct {
	Index     int          `json:"index"`
	Text      string       `json:"text"`
	TimeLimit int          `json:"timeLimit"`
	Body      *BodyPayload `json:"body"`
}

type nextQuestionFailurePayload struct {
	NumQuestions   int `json:"numQuestions"`
	CurrentIndex   int `json:"currentQuestion"`
}

type questionResponseAddedPayload struct {
	Index             int     `json:"index"`
	User              string  `json:"user"`
	Response          string  `json:"response"`
	Points            int     `json:"points"`
	FirstCorrect      string  `json:"firstCorrect"`
	Frequency         int     `json:"frequency"`
	RelativeFrequency float64 `json:"relativeFrequency"`
}

type questionResponseAckPayload struct {
	Index        int  `json:"index"`
	FirstCorrect bool `json:"firstCorrect"`
	Points       int  `json:"points"`
}

type questionEndedPayload struct {
	Question int `json:"question"`
}

type feedbackSubmittedPayload struct {
	User     string          `json:"user"`
	Question int             `json:"question"`
	Feedback FeedbackPayload `json:"feedback"`
}

type hintReceivedPayload struct {
	Question int    `json:"question"`
	Hint     string `json:"hint"`
}

type kickAckPayload struct {
	Name string `json:"name"`
}
