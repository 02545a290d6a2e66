package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gwi.com/prompt-relay/internal/core"
	"gwi.com/prompt-relay/internal/llm"
	"gwi.com/prompt-relay/internal/logging"
)

type APIHandler struct {
	relay       *core.RelayService
	auth        *core.AuthService
	sessions    *SessionManager
	pages       *Pages
	authEnabled bool
	logger      logging.Logger
}

// NewAPIHandler wires the HTTP surface. authSvc and sessions may be nil when
// authEnabled is false.
func NewAPIHandler(relay *core.RelayService, authSvc *core.AuthService, sessions *SessionManager, pages *Pages, authEnabled bool, logger logging.Logger) *APIHandler {
	return &APIHandler{
		relay:       relay,
		auth:        authSvc,
		sessions:    sessions,
		pages:       pages,
		authEnabled: authEnabled,
		logger:      logger,
	}
}

// ownerID is nil when identity is disabled, so history stays process-wide.
func (h *APIHandler) ownerID(r *http.Request) *int64 {
	if !h.authEnabled {
		return nil
	}
	id := SessionFromContext(r.Context()).UserID
	return &id
}

func (h *APIHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	records, err := h.relay.History(r.Context(), h.ownerID(r))
	if err != nil {
		h.logger.Error(r.Context(), "failed to list history", "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	session := SessionFromContext(r.Context())
	h.pages.Render(w, r, "index", pageData{
		Title:       "Prompt Relay",
		Flash:       popFlash(w, r),
		Username:    session.Username,
		AuthEnabled: h.authEnabled,
		Records:     h.pages.historyViews(records),
	})
}

const maxStreamBody = 1 << 20

type streamRequest struct {
	History []llm.Message `json:"history"`
	HFModel string        `json:"hf_model,omitempty"`
}

// StreamHandler relays one turn as server-sent events. GET takes ?prompt=;
// POST takes a JSON chat history whose last entry is the new prompt.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStreamBody)
	turn, problem := h.parseTurn(r)
	if problem != "" {
		http.Error(w, problem, http.StatusBadRequest)
		return
	}
	turn.OwnerID = h.ownerID(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for event := range h.relay.Stream(r.Context(), turn).All() {
		if err := writeEvent(w, event); err != nil {
			h.logger.Warn(r.Context(), "failed to write event", "error", err)
			return
		}
		if err := rc.Flush(); err != nil {
			h.logger.Warn(r.Context(), "failed to flush event", "error", err)
			return
		}
	}
}

func (h *APIHandler) parseTurn(r *http.Request) (core.Turn, string) {
	models := map[string]string{}
	if m := strings.TrimSpace(r.URL.Query().Get("hf_model")); m != "" {
		models[llm.ProviderHuggingFace] = m
	}

	if r.Method == http.MethodGet {
		prompt := r.URL.Query().Get("prompt")
		if prompt == "" {
			return core.Turn{}, "Prompt is required"
		}
		return core.Turn{Prompt: prompt, Models: models}, ""
	}

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.Turn{}, "Invalid request body"
	}
	if len(req.History) == 0 {
		return core.Turn{}, "History is required"
	}
	last := req.History[len(req.History)-1]
	if last.Content == "" {
		return core.Turn{}, "Prompt is required"
	}
	if m := strings.TrimSpace(req.HFModel); m != "" {
		models[llm.ProviderHuggingFace] = m
	}

	past := make([]llm.Message, 0, len(req.History)-1)
	for _, m := range req.History[:len(req.History)-1] {
		// a failed turn leaves an empty reply behind in the browser
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		past = append(past, llm.Message{Role: normalizeRole(m.Role), Content: m.Content})
	}
	return core.Turn{Prompt: last.Content, History: past, Models: models}, ""
}

// normalizeRole accepts the browser's "ai" label for assistant turns.
func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "ai", llm.RoleAssistant, "model":
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}

func writeEvent(w http.ResponseWriter, event core.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
