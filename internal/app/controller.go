package app

import (
	"math/rand"
	"sync"
	"time"

	"quizroom/internal/domain"
)

const sessionIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const sessionIDLength = 8

// Broadcaster is the narrow interface the Session Controller consumes from
// the transport (spec.md 5): per-connection identity is the string id
// passed into every Controller method; rooms are named by session id.
type Broadcaster interface {
	JoinRoom(connID, room string)
	LeaveRoom(connID, room string)
	ForceAllLeave(room string)
	ForceLeave(connID, room string)
	EmitToOne(connID, event string, data any)
	EmitToRoom(room, event string, data any)
	EmitToRoomExcept(room, exceptConnID, event string, data any)
}

// SessionEntry pairs a live Session with the mutex that serializes every
// operation touching it.
type SessionEntry struct {
	mu      sync.Mutex // serializes every operation touching this Session
	Session *domain.Session
}

// SessionRegistry abstracts where live Sessions are stored (spec.md 5):
// in-memory by default, Redis-mirrored for cross-instance liveness in
// production (mirroring the teacher's SessionRepository seam).
type SessionRegistry interface {
	// TryCreate stores entry under id iff id is not already taken, reporting
	// whether the store succeeded.
	TryCreate(id string, entry *SessionEntry) bool
	Get(id string) (*SessionEntry, bool)
	Delete(id string)
}

// Controller is the Session Controller: the event-dispatching façade that
// holds the live Session registry and routes each request to a handler.
type Controller struct {
	transport Broadcaster
	registry  SessionRegistry

	rnd   *rand.Rand
	rndMu sync.Mutex
}

// NewController builds a Controller around the given transport, backed by
// a plain in-process registry.
func NewController(transport Broadcaster) *Controller {
	return NewControllerWithRegistry(transport, newMemoryRegistry())
}

// NewControllerWithRegistry builds a Controller around the given transport
// and an explicit SessionRegistry, for production wiring that needs a
// Redis-mirrored registry instead of the bare in-process one.
func NewControllerWithRegistry(transport Broadcaster, registry SessionRegistry) *Controller {
	return &Controller{
		transport: transport,
		registry:  registry,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// lookup returns the live entry for a session id, if any.
func (c *Controller) lookup(id string) (*SessionEntry, bool) {
	return c.registry.Get(id)
}

func (c *Controller) newSessionID() string {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	buf := make([]byte, sessionIDLength)
	for i := range buf {
		buf[i] = sessionIDAlphabet[c.rnd.Intn(len(sessionIDAlphabet))]
	}
	return string(buf)
}

// --- 4.4.1 Create Session ----------------------------------------------------

// CreateSession allocates a new Session owned by callerID.
func (c *Controller) CreateSession(callerID string) Envelope {
	var id string
	var entry *SessionEntry
	for {
		id = c.newSessionID()
		entry = &SessionEntry{Session: domain.NewSession(id, callerID)}
		if c.registry.TryCreate(id, entry) {
			break
		}
	}

	c.transport.JoinRoom(callerID, id)
	return ok(EventCreateSession, id, id)
}

// --- 4.4.2 Join Session -------------------------------------------------------

// JoinSession adds callerID (named args.Name) to the Session args.ID.
func (c *Controller) JoinSession(callerID string, args JoinArgs) Envelope {
	if args.ID == "" {
		return failField(EventJoinSession, "id", args.ID)
	}
	entry, found := c.registry.Get(args.ID)
	if !found {
		return failField(EventJoinSession, "id", args.ID)
	}
	if args.Name == "" {
		return failField(EventJoinSession, "name", nil)
	}

	entry.mu.Lock()
	added := entry.Session.AddUser(domain.User{Name: args.Name, ConnectionID: callerID})
	entry.mu.Unlock()
	if !added {
		return failField(EventJoinSession, "name", args.Name)
	}

	c.transport.JoinRoom(callerID, args.ID)
	c.transport.EmitToRoomExcept(args.ID, callerID, BroadcastUserJoined, userNamePayload{Name: args.Name})
	return ok(EventJoinSession, args.ID, nil)
}

// authorizeOwner looks up the session and verifies callerID is its owner,
// returning the common failure shape otherwise (spec.md 4.4 authorization
// pattern).
func (c *Controller) authorizeOwner(event, callerID, sessionID string) (*SessionEntry, Envelope, bool) {
	entry, found := c.registry.Get(sessionID)
	if !found || entry.Session.Owner != callerID {
		var v any
		if found {
			v = nil
		} else {
			v = sessionID
		}
		return nil, failField(event, "session", v), false
	}
	return entry, Envelope{}, true
}

// --- 4.4.3 Add Question -------------------------------------------------------

// AddQuestion parses and appends a Question to the owner's Quiz.
func (c *Controller) AddQuestion(callerID string, args AddQuestionArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventAddQuestion, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	question, errs := domain.ParseQuestion(toSubmission(args.Question))
	if errs != nil {
		return fail(EventAddQuestion, &args.Session, toFieldErrs(errs))
	}

	sessionID := args.Session
	index := entry.Session.Quiz.AddQuestion(question)
	question.SetOnTimeout(func() {
		c.transport.EmitToRoom(sessionID, BroadcastQuestionEnded, questionEndedPayload{Question: index})
	})

	return ok(EventAddQuestion, args.Session, nil)
}

// --- 4.4.4 Edit / Remove Question --------------------------------------------

// EditQuestion replaces the Question at args.Index provided the body kinds
// match and the target is not the active index of a started Session.
func (c *Controller) EditQuestion(callerID string, args EditQuestionArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventEditQuestion, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.Session.IsStarted() && args.Index == entry.Session.Quiz.CurrentIndex() {
		return failField(EventEditQuestion, "index", args.Index)
	}

	question, errs := domain.ParseQuestion(toSubmission(args.Question))
	if errs != nil {
		return fail(EventEditQuestion, &args.Session, toFieldErrs(errs))
	}

	if err := entry.Session.Quiz.ReplaceQuestion(args.Index, question); err != nil {
		return failField(EventEditQuestion, "index", args.Index)
	}
	return ok(EventEditQuestion, args.Session, nil)
}

// RemoveQuestion removes the Question at args.Index under the same
// active-index restriction as EditQuestion.
func (c *Controller) RemoveQuestion(callerID string, args RemoveQuestionArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventRemoveQuestion, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.Session.IsStarted() && args.Index == entry.Session.Quiz.CurrentIndex() {
		return failField(EventRemoveQuestion, "index", args.Index)
	}
	if err := entry.Session.Quiz.RemoveQuestion(args.Index); err != nil {
		return failField(EventRemoveQuestion, "index", args.Index)
	}
	return ok(EventRemoveQuestion, args.Session, nil)
}

// --- 4.4.5 Kick User ----------------------------------------------------------

// KickUser removes args.Name from the Session and forces their connection
// to leave the room.
func (c *Controller) KickUser(callerID string, args KickArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventKickUser, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	user, removed := entry.Session.RemoveUser(args.Name)
	entry.mu.Unlock()
	if !removed {
		return failField(EventKickUser, "name", args.Name)
	}

	c.transport.EmitToRoomExcept(args.Session, callerID, BroadcastUserKicked, userNamePayload{Name: args.Name})
	c.transport.ForceLeave(user.ConnectionID, args.Session)
	return ok(EventKickUser, args.Session, kickAckPayload{Name: args.Name})
}

// --- 4.4.6 Start Session ------------------------------------------------------

// StartSession marks the Session started.
func (c *Controller) StartSession(callerID string, args SessionArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventStartSession, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	started := entry.Session.Start()
	entry.mu.Unlock()
	if !started {
		return failEmpty(EventStartSession)
	}

	c.transport.EmitToRoomExcept(args.Session, callerID, BroadcastSessionStarted, nil)
	return ok(EventStartSession, args.Session, nil)
}

// --- 4.4.7 End Session --------------------------------------------------------

// EndSession marks the Session ended, broadcasts, and forces every
// non-owner connection out of the room.
func (c *Controller) EndSession(callerID string, args SessionArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventEndSession, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	ended := entry.Session.End()
	entry.mu.Unlock()
	if !ended {
		return failEmpty(EventEndSession)
	}

	c.transport.EmitToRoom(args.Session, BroadcastSessionEnded, nil)
	c.forceNonOwnerLeave(entry.Session, args.Session)
	return ok(EventEndSession, args.Session, nil)
}

func (c *Controller) forceNonOwnerLeave(session *domain.Session, room string) {
	for _, name := range session.UserNames() {
		if user, found := session.FindUserByName(name); found {
			c.transport.ForceLeave(user.ConnectionID, room)
		}
	}
}

// --- 4.4.8 Next Question -------------------------------------------------------

// NextQuestion advances the Quiz's current index.
func (c *Controller) NextQuestion(callerID string, args SessionArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventNextQuestion, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.Session.IsStarted() {
		return failEmpty(EventNextQuestion)
	}

	question, advanced := entry.Session.Quiz.AdvanceToNextQuestion()
	if !advanced {
		return fail(EventNextQuestion, &args.Session, []FieldErr{{
			Field: "index",
			Value: nextQuestionFailurePayload{
				NumQuestions: entry.Session.Quiz.Len(),
				CurrentIndex: entry.Session.Quiz.CurrentIndex(),
			},
		}})
	}

	payload := nextQuestionPayload{Index: question.Index, Question: toQuestionOut(question)}
	c.transport.EmitToRoomExcept(args.Session, callerID, BroadcastNextQuestion, payload)
	return ok(EventNextQuestion, args.Session, payload)
}

// --- 4.4.9 Question Response --------------------------------------------------

// QuestionResponse records a participant's answer to the current Question.
func (c *Controller) QuestionResponse(callerID string, args QuestionResponseArgs) Envelope {
	entry, found := c.registry.Get(args.Session)
	if !found {
		return failField(EventQuestionResp, "session", args.Session)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	user, found := entry.Session.FindUserByName(args.Name)
	if !found || user.ConnectionID != callerID {
		return failField(EventQuestionResp, "name", args.Name)
	}

	current, hasCurrent := entry.Session.Quiz.CurrentQuestion()
	if !hasCurrent {
		return failField(EventQuestionResp, "index", args.Index)
	}
	if args.Index != entry.Session.Quiz.CurrentIndex() {
		return failField(EventQuestionResp, "index", args.Index)
	}

	response, validKind := toResponse(args.Response)
	if !validKind {
		return failField(EventQuestionResp, "response", nil)
	}
	response.Submitter = args.Name

	points, err := current.AddResponse(response)
	if err != nil {
		return failField(EventQuestionResp, "response", nil)
	}

	firstCorrect := current.FirstCorrect()
	frequency := current.FrequencyOf(response)
	relFrequency := current.RelativeFrequencyOf(response)

	c.transport.EmitToOne(entry.Session.Owner, BroadcastQuestionResponseAdd, questionResponseAddedPayload{
		Index:             args.Index,
		User:              args.Name,
		Response:          responseString(response),
		Points:            points,
		FirstCorrect:      firstCorrect,
		Frequency:         frequency,
		RelativeFrequency: relFrequency,
	})

	return ok(EventQuestionResp, args.Session, questionResponseAckPayload{
		Index:        args.Index,
		FirstCorrect: firstCorrect == args.Name,
		Points:       points,
	})
}

// --- 4.4.10 End Question -------------------------------------------------------

// EndQuestion manually ends the current Question.
func (c *Controller) EndQuestion(callerID string, args EndQuestionArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventEndQuestion, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.Session.IsStarted() {
		return failEmpty(EventEndQuestion)
	}
	current, hasCurrent := entry.Session.Quiz.CurrentQuestion()
	if !hasCurrent || current.HasEnded() {
		return failEmpty(EventEndQuestion)
	}
	if args.Question != entry.Session.Quiz.CurrentIndex() {
		return failField(EventEndQuestion, "question", args.Question)
	}

	current.End()
	c.transport.EmitToRoomExcept(args.Session, callerID, BroadcastQuestionEnded, questionEndedPayload{Question: args.Question})
	return ok(EventEndQuestion, args.Session, nil)
}

// --- 4.4.11 Submit Feedback -----------------------------------------------------

// SubmitFeedback records feedback for an already-revealed Question.
func (c *Controller) SubmitFeedback(callerID string, args SubmitFeedbackArgs) Envelope {
	entry, found := c.registry.Get(args.Session)
	if !found {
		return failField(EventSubmitFeedback, "session", args.Session)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	user, found := entry.Session.FindUserByName(args.Name)
	if !found || user.ConnectionID != callerID {
		return failField(EventSubmitFeedback, "name", args.Name)
	}

	if args.Question < 0 || args.Question > entry.Session.Quiz.CurrentIndex() {
		return failField(EventSubmitFeedback, "question", args.Question)
	}
	target, found := entry.Session.Quiz.QuestionAt(args.Question)
	if !found {
		return failField(EventSubmitFeedback, "question", args.Question)
	}

	feedback, errs := domain.ValidateFeedback(args.Feedback.Rating, args.Feedback.Message)
	if errs != nil {
		return fail(EventSubmitFeedback, &args.Session, toFieldErrs(errs))
	}

	if !target.AddFeedback(args.Name, feedback) {
		return failField(EventSubmitFeedback, "feedback", "duplicate")
	}

	c.transport.EmitToOne(entry.Session.Owner, BroadcastFeedbackSubmitted, feedbackSubmittedPayload{
		User:     args.Name,
		Question: args.Question,
		Feedback: args.Feedback,
	})
	return ok(EventSubmitFeedback, args.Session, nil)
}

// --- 4.4.12 Send Hint -----------------------------------------------------------

// SendHint broadcasts a hint for the current Question.
func (c *Controller) SendHint(callerID string, args SendHintArgs) Envelope {
	entry, failEnv, okAuth := c.authorizeOwner(EventSendHint, callerID, args.Session)
	if !okAuth {
		return failEnv
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if args.Hint == "" {
		return failField(EventSendHint, "hint", args.Hint)
	}
	if !entry.Session.IsStarted() || entry.Session.HasEnded() {
		return failEmpty(EventSendHint)
	}
	if args.Question != entry.Session.Quiz.CurrentIndex() {
		return failField(EventSendHint, "question", args.Question)
	}

	c.transport.EmitToRoomExcept(args.Session, callerID, BroadcastHintReceived, hintReceivedPayload{
		Question: args.Question,
		Hint:     args.Hint,
	})
	return ok(EventSendHint, args.Session, nil)
}

// --- 4.4.13 Disconnect -----------------------------------------------------------

// Disconnect handles a dropped connection. rooms lists every room the
// transport had the connection joined to at the moment of disconnect.
func (c *Controller) Disconnect(callerID string, rooms []string) {
	for _, room := range rooms {
		entry, found := c.registry.Get(room)
		if !found {
			continue
		}

		entry.mu.Lock()
		if entry.Session.Owner == callerID {
			entry.Session.ForceEnd()
			entry.mu.Unlock()

			c.registry.Delete(room)
			c.transport.EmitToRoom(room, BroadcastSessionEnded, nil)
			c.forceNonOwnerLeave(entry.Session, room)
			continue
		}

		user, removed := entry.Session.RemoveUserByID(callerID)
		entry.mu.Unlock()
		if removed {
			c.transport.EmitToRoomExcept(room, callerID, BroadcastUserDisconnected, userNamePayload{Name: user.Name})
		}
	}
}

// memoryRegistry is the bare in-process SessionRegistry NewController uses
// by default.
type memoryRegistry struct {
	mu      sync.Mutex
	entries map[string]*SessionEntry
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{entries: make(map[string]*SessionEntry)}
}

func (r *memoryRegistry) TryCreate(id string, entry *SessionEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return false
	}
	r.entries[id] = entry
	return true
}

func (r *memoryRegistry) Get(id string) (*SessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *memoryRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}
