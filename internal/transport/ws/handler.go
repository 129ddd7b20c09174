// Package ws upgrades HTTP requests to websockets and dispatches the named
// wire events (spec.md 6) into the Session Controller, mirroring the
// teacher's ws_handler.go request loop.
package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quizroom/internal/app"
	"quizroom/internal/transport/rooms"
)

// Handler upgrades connections and routes inbound events to a Controller.
type Handler struct {
	controller *app.Controller
	rooms      *rooms.Manager
	upgrader   websocket.Upgrader
}

// NewHandler builds a Handler around the given Controller and room
// registry.
func NewHandler(controller *app.Controller, manager *rooms.Manager) *Handler {
	return &Handler{
		controller: controller,
		rooms:      manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// inboundMessage is the shape of every client-to-server frame: an event
// name, its raw argument payload, and an optional ack id the server echoes
// back on the matching response (spec.md 6's ack contract).
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	AckID string          `json:"ackId,omitempty"`
}

// ackMessage is the server-to-client frame wrapping an Envelope with the
// ack id it answers, when the inbound message asked for one. Envelope is a
// named (not embedded) field: Envelope defines its own MarshalJSON for the
// data/errors wire contract, and embedding it here would let that method
// get promoted onto ackMessage itself, silently dropping AckID from every
// encoded frame.
type ackMessage struct {
	AckID    string
	Envelope app.Envelope
}

// MarshalJSON flattens ackId onto the Envelope's own rendered fields.
func (a ackMessage) MarshalJSON() ([]byte, error) {
	envJSON, err := json.Marshal(a.Envelope)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(envJSON, &fields); err != nil {
		return nil, err
	}
	if a.AckID != "" {
		raw, err := json.Marshal(a.AckID)
		if err != nil {
			return nil, err
		}
		fields["ackId"] = raw
	}
	return json.Marshal(fields)
}

// ServeWS upgrades the HTTP request and runs the connection's read loop
// until it disconnects, at which point the disconnect cascade fires.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	c := h.rooms.Register(conn)
	defer func() {
		joined := h.rooms.Unregister(c.ID)
		h.controller.Disconnect(c.ID, joined)
	}()

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			return
		}
		env := h.dispatch(c.ID, msg)
		if msg.AckID == "" {
			continue
		}
		c.Send(ackMessage{AckID: msg.AckID, Envelope: env})
	}
}

func (h *Handler) dispatch(connID string, msg inboundMessage) app.Envelope {
	switch msg.Event {
	case app.EventCreateSession:
		return h.controller.CreateSession(connID)
	case app.EventJoinSession:
		var args app.JoinArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.JoinSession(connID, args)
	case app.EventAddQuestion:
		var args app.AddQuestionArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.AddQuestion(connID, args)
	case app.EventEditQuestion:
		var args app.EditQuestionArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.EditQuestion(connID, args)
	case app.EventRemoveQuestion:
		var args app.RemoveQuestionArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.RemoveQuestion(connID, args)
	case app.EventKickUser:
		var args app.KickArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.KickUser(connID, args)
	case app.EventStartSession:
		var args app.SessionArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.StartSession(connID, args)
	case app.EventEndSession:
		var args app.SessionArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.EndSession(connID, args)
	case app.EventNextQuestion:
		var args app.SessionArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.NextQuestion(connID, args)
	case app.EventQuestionResp:
		var args app.QuestionResponseArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.QuestionResponse(connID, args)
	case app.EventEndQuestion:
		var args app.EndQuestionArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.EndQuestion(connID, args)
	case app.EventSubmitFeedback:
		var args app.SubmitFeedbackArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.SubmitFeedback(connID, args)
	case app.EventSendHint:
		var args app.SendHintArgs
		if err := json.Unmarshal(msg.Data, &args); err != nil {
			return badRequest(msg.Event)
		}
		return h.controller.SendHint(connID, args)
	default:
		return badRequest(msg.Event)
	}
}

func badRequest(event string) app.Envelope {
	return app.Envelope{Status: app.StatusBadRequest, Event: event, Errors: []app.FieldErr{{Field: "event", Value: event}}}
}
