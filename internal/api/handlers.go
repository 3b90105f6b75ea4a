package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/service"
)

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

type wikipediaRequest struct {
	Title     string `json:"title" validate:"required"`
	Summary   bool   `json:"summary"`
	Sentences int    `json:"sentences" validate:"gte=0,lte=10"`
}

type notionRequest struct {
	URL    string `json:"url" validate:"required,url"`
	APIKey string `json:"api_key"`
}

type askRequest struct {
	Question string `json:"question"`
}

type turnResponse struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

type historyResponse struct {
	Turns []turnResponse `json:"turns"`
}

type statsResponse struct {
	Collection   string   `json:"collection"`
	Count        int      `json:"count"`
	LastEmbedded int      `json:"last_embedded"`
	Sample       []string `json:"sample"`
	Summary      string   `json:"summary,omitempty"`
}

// Handler serves the session API.
type Handler struct {
	sessions    *Registry
	validate    *validator.Validate
	maxUpload   int64
	logger      *zap.Logger
	metricsHTTP http.Handler
}

func NewHandler(sessions *Registry, maxUploadBytes int64, metricsHandler http.Handler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metricsHandler == nil {
		metricsHandler = http.NotFoundHandler()
	}
	return &Handler{
		sessions:    sessions,
		validate:    validator.New(),
		maxUpload:   maxUploadBytes,
		logger:      logger,
		metricsHTTP: metricsHandler,
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.sessions.Len()})
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		sendJSON(w, http.StatusInternalServerError, messageResponse{Message: "Failed to create session: " + err.Error()})
		return
	}
	sendJSON(w, http.StatusCreated, sessionResponse{ID: id})
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandlePDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		sendJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid upload: " + err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		sendJSON(w, http.StatusBadRequest, messageResponse{Message: service.MsgNoPDF})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid upload: " + err.Error()})
		return
	}
	h.withSession(w, r, func(s *service.Session) string {
		return s.IngestPDF(r.Context(), header.Filename, bytes.NewReader(data))
	})
}

func (h *Handler) HandleWikipedia(w http.ResponseWriter, r *http.Request) {
	var req wikipediaRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(s *service.Session) string {
		return s.IngestWikipedia(r.Context(), req.Title, service.WikiOptions{Summary: req.Summary, Sentences: req.Sentences})
	})
}

func (h *Handler) HandleNotion(w http.ResponseWriter, r *http.Request) {
	var req notionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(s *service.Session) string {
		return s.IngestNotion(r.Context(), req.URL, req.APIKey)
	})
}

func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withSession(w, r, func(s *service.Session) string {
		return s.Ask(r.Context(), req.Question)
	})
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	var resp historyResponse
	err := h.sessions.With(mux.Vars(r)["id"], func(s *service.Session) {
		resp.Turns = make([]turnResponse, 0)
		for _, t := range s.History() {
			resp.Turns = append(resp.Turns, turnResponse{Role: t.Role, Content: t.Content})
		}
	})
	if err != nil {
		h.sessionError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *service.Session) string {
		s.ClearHistory()
		return "History cleared."
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	var (
		st      service.Stats
		statErr error
	)
	err := h.sessions.With(mux.Vars(r)["id"], func(s *service.Session) {
		st, statErr = s.Stats(r.Context())
	})
	if err != nil {
		h.sessionError(w, err)
		return
	}
	if statErr != nil {
		sendJSON(w, http.StatusBadGateway, messageResponse{Message: "Failed to read collection: " + statErr.Error()})
		return
	}
	sendJSON(w, http.StatusOK, statsResponse{
		Collection:   st.Collection,
		Count:        st.Count,
		LastEmbedded: st.LastEmbedded,
		Sample:       st.Sample,
		Summary:      st.Summary,
	})
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*service.Session) string) {
	var msg string
	err := h.sessions.With(mux.Vars(r)["id"], func(s *service.Session) { msg = fn(s) })
	if err != nil {
		h.sessionError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid JSON: " + err.Error()})
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		sendJSON(w, http.StatusBadRequest, messageResponse{Message: fmt.Sprintf("Invalid request: %v", err)})
		return false
	}
	return true
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, errSessionNotFound) {
		sendJSON(w, http.StatusNotFound, messageResponse{Message: "Session not found."})
		return
	}
	sendJSON(w, http.StatusInternalServerError, messageResponse{Message: err.Error()})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
