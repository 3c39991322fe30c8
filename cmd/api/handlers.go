package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/pkg/metrics"
)

// chatMachine is the dialogue entry point used by the chat handler.
type chatMachine interface {
	Respond(ctx context.Context, sessionID, message string) (string, domain.Reply)
}

// leadService accepts submitted forms.
type leadService interface {
	SubmitContact(ctx context.Context, s domain.ContactSubmission) error
	SubmitMeeting(ctx context.Context, s domain.MeetingSubmission) error
}

// reindexer runs a synchronous full reindex.
type reindexer interface {
	Reindex(ctx context.Context, dir string) (domain.IngestReport, error)
}

type app struct {
	machine   chatMachine
	leads     leadService
	pipeline  reindexer
	corpusDir string
	registry  *metrics.Registry
	logger    *slog.Logger
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("POST /api/chat", a.handleChat)
	mux.HandleFunc("POST /api/initialize", a.handleInitialize)
	mux.HandleFunc("POST /api/leads/contact", a.handleContact)
	mux.HandleFunc("POST /api/leads/meeting", a.handleMeeting)
	mux.Handle("GET /metrics", a.registry.Handler())
	return mux
}

func (a *app) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ChatRequest is the JSON body for POST /api/chat. SessionID is optional; a
// missing one is minted and echoed back.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the JSON response for POST /api/chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	domain.Reply
}

func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID, reply := a.machine.Respond(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, ChatResponse{SessionID: sessionID, Reply: reply})
}

func (a *app) handleInitialize(w http.ResponseWriter, r *http.Request) {
	report, err := a.pipeline.Reindex(r.Context(), a.corpusDir)
	if err != nil {
		a.logger.Error("initialize failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"report": report,
		})
		return
	}

	a.registry.Gauge("corpus_documents_indexed", "Documents in the current index").Set(int64(report.DocumentsIndexed))
	a.registry.Gauge("corpus_chunks_indexed", "Chunks in the current index").Set(int64(report.ChunksIndexed))
	writeJSON(w, http.StatusOK, report)
}

func (a *app) handleContact(w http.ResponseWriter, r *http.Request) {
	var sub domain.ContactSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.leads.SubmitContact(r.Context(), sub); err != nil {
		a.writeLeadError(w, err)
		return
	}
	a.registry.Counter(metrics.WithLabels("leads_total", "kind", "contact"), "Accepted lead submissions").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contact request sent successfully"})
}

func (a *app) handleMeeting(w http.ResponseWriter, r *http.Request) {
	var sub domain.MeetingSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.leads.SubmitMeeting(r.Context(), sub); err != nil {
		a.writeLeadError(w, err)
		return
	}
	a.registry.Counter(metrics.WithLabels("leads_total", "kind", "meeting"), "Accepted lead submissions").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Meeting request sent successfully"})
}

func (a *app) writeLeadError(w http.ResponseWriter, err error) {
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		writeError(w, http.StatusBadRequest, subErr.Error())
		return
	}
	a.logger.Error("lead handoff failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
