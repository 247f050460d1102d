package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"landmarks/internal/domain"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

type researchHandler struct {
	service Researcher
	logger  *zap.Logger
}

// Generate handles POST /api/research/generate
func (h *researchHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.ResearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.LandmarkID != "" && !domain.IsLandmarkID(req.LandmarkID) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: landmark_id %q is not a landmark id", req.LandmarkID))
		return
	}

	resp, err := h.service.GenerateReport(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Error generating research")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// History handles GET /api/research/conversations/{conversationID}
func (h *researchHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	history, err := h.service.ConversationHistory(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Error retrieving conversation")
		return
	}
	if len(history) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Conversation %s not found", id))
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Delete handles DELETE /api/research/conversations/{conversationID}
func (h *researchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if !h.service.DeleteConversation(r.Context(), id) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Conversation %s not found", id))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Conversation %s deleted", id),
	})
}

func (h *researchHandler) fail(w http.ResponseWriter, err error, prefix string) {
	status := domain.HTTPStatus(err)
	detail := prefix + ": " + err.Error()
	var appErr *domain.AppError
	if errors.As(err, &appErr) && status == http.StatusBadRequest {
		detail = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	} else {
		h.logger.Warn("request rejected", zap.Error(err))
	}
	respondError(w, status, detail)
}

type landmarkHandler struct {
	gateway domain.LandmarkGateway
	logger  *zap.Logger
}

// Search handles GET /api/landmarks
func (h *landmarkHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1, 1, 1_000_000)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: page "+err.Error())
		return
	}
	size, err := intParam(q.Get("page_size"), 10, 1, 100)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: page_size "+err.Error())
		return
	}
	result, err := h.gateway.SearchLandmarks(r.Context(), domain.LandmarkFilter{
		Query:        q.Get("q"),
		Borough:      q.Get("borough"),
		Neighborhood: q.Get("neighborhood"),
		Style:        q.Get("style"),
		Page:         page,
		PageSize:     size,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// FindByName handles GET /api/landmarks/find?name=...&exact=true
func (h *landmarkHandler) FindByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "Validation error: name is required")
		return
	}
	exact, _ := strconv.ParseBool(r.URL.Query().Get("exact"))
	summary, err := h.gateway.FindLandmarkByName(r.Context(), name, exact)
	if err != nil {
		h.fail(w, err)
		return
	}
	if summary == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Landmark %q not found", name))
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Get handles GET /api/landmarks/{landmarkID}
func (h *landmarkHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "landmarkID")
	detail, err := h.gateway.GetLandmarkByID(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Landmark %s not found", id))
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Photos handles GET /api/landmarks/{landmarkID}/photos
func (h *landmarkHandler) Photos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.gateway.GetLandmarkPhotos(r.Context(), chi.URLParam(r, "landmarkID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if photos == nil {
		photos = []domain.LandmarkPhoto{}
	}
	respondJSON(w, http.StatusOK, photos)
}

func (h *landmarkHandler) fail(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	h.logger.Warn("landmark lookup failed", zap.Int("status", status), zap.Error(err))
	respondError(w, status, err.Error())
}

func intParam(raw string, fallback, lo, hi int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("must be between %d and %d", lo, hi)
	}
	return n, nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, ErrorResponse{Detail: detail, StatusCode: status})
}

type documentHandler struct {
	source DocumentSource
	logger *zap.Logger
}

// Get handles GET /api/documents/{documentID}
func (h *documentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")
	doc, err := h.source.GetDocument(r.Context(), id)
	if err != nil {
		h.logger.Warn("document lookup failed", zap.String("document_id", id), zap.Error(err))
		respondError(w, domain.HTTPStatus(err), err.Error())
		return
	}
	if doc == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Document %s not found", id))
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

type passageView struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Passages handles GET /api/landmarks/{landmarkID}/passages?top_k=n
func (h *documentHandler) Passages(w http.ResponseWriter, r *http.Request) {
	topK, err := intParam(r.URL.Query().Get("top_k"), 10, 1, 100)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: top_k "+err.Error())
		return
	}
	id := chi.URLParam(r, "landmarkID")
	hits, err := h.source.LandmarkChunks(r.Context(), id, topK)
	if err != nil {
		h.logger.Warn("passage listing failed", zap.String("landmark_id", id), zap.Error(err))
		respondError(w, domain.HTTPStatus(err), err.Error())
		return
	}
	out := make([]passageView, len(hits))
	for i, hit := range hits {
		out[i] = passageView{ID: hit.ID, Text: hit.Text, Score: hit.Score, Metadata: hit.Metadata}
	}
	respondJSON(w, http.StatusOK, out)
}
