// Package http wires the server's routes with github.com/gorilla/mux, the
// router choice the other quiz repo in the retrieval pack uses, replacing
// the teacher's bare http.ServeMux now that the question bank needs
// path-parameterized REST routes alongside the websocket endpoint.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"quizroom/internal/app"
	"quizroom/internal/domain"
	"quizroom/internal/infra/postgres"
	"quizroom/internal/transport/ws"
)

// NewRouter builds the server's top-level router. bank may be nil when no
// Postgres URL is configured, in which case the question-bank routes
// answer 503.
func NewRouter(wsHandler *ws.Handler, bank *postgres.QuestionBank) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", wsHandler.ServeWS)

	bankHandler := &questionBankHandler{bank: bank}
	r.HandleFunc("/owners/{owner}/questions", bankHandler.list).Methods(http.MethodGet)
	r.HandleFunc("/owners/{owner}/questions", bankHandler.save).Methods(http.MethodPost)
	r.HandleFunc("/owners/{owner}/questions/{id}", bankHandler.delete).Methods(http.MethodDelete)

	return r
}

// questionBankHandler exposes the supplemented question-bank feature
// (SPEC_FULL.md 5) over REST: it sits beside the websocket Session
// Controller rather than inside it, since the bank operates over an
// owner's reusable templates, independent of any one live Session.
type questionBankHandler struct {
	bank *postgres.QuestionBank
}

type savedQuestionRequest struct {
	ID       string             `json:"id"`
	Question app.QuestionPayload `json:"question"`
}

type savedQuestionResponse struct {
	ID       string             `json:"id"`
	Owner    string             `json:"owner"`
	Question app.QuestionPayload `json:"question"`
}

func (h *questionBankHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.bank == nil {
		http.Error(w, "question bank not configured", http.StatusServiceUnavailable)
		return
	}
	owner := mux.Vars(r)["owner"]
	saved, err := h.bank.ListByOwner(r.Context(), owner)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]savedQuestionResponse, 0, len(saved))
	for _, sq := range saved {
		out = append(out, toSavedQuestionResponse(sq))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *questionBankHandler) save(w http.ResponseWriter, r *http.Request) {
	if h.bank == nil {
		http.Error(w, "question bank not configured", http.StatusServiceUnavailable)
		return
	}
	owner := mux.Vars(r)["owner"]

	var req savedQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	sub := app.ToSubmission(req.Question)
	if _, errs := domain.ParseQuestion(sub); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	saved := domain.SavedQuestion{
		ID:        req.ID,
		OwnerName: owner,
		Text:      sub.Text,
		TimeLimit: sub.TimeLimit,
		Body:      *sub.Body,
	}
	if err := h.bank.Save(r.Context(), saved); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toSavedQuestionResponse(saved))
}

func (h *questionBankHandler) delete(w http.ResponseWriter, r *http.Request) {
	if h.bank == nil {
		http.Error(w, "question bank not configured", http.StatusServiceUnavailable)
		return
	}
	vars := mux.Vars(r)
	if err := h.bank.Delete(r.Context(), vars["owner"], vars["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSavedQuestionResponse(sq domain.SavedQuestion) savedQuestionResponse {
	return savedQuestionResponse{
		ID:       sq.ID,
		Owner:    sq.OwnerName,
		Question: app.QuestionPayloadFromSubmission(sq.ToSubmission()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
