package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/usecase/memory"
)

// MemoryHandler serves the memory management endpoints
type MemoryHandler struct {
	memory *memory.UseCase
}

// NewMemoryHandler creates a MemoryHandler
func NewMemoryHandler(uc *memory.UseCase) *MemoryHandler {
	return &MemoryHandler{memory: uc}
}

type addRequest struct {
	Content    string           `json:"content"`
	UserID     string           `json:"user_id"`
	MemoryType model.MemoryType `json:"memory_type,omitempty"`
	ImageURL   string           `json:"image_url,omitempty"`
}

// Add handles POST /memory/add
func (h *MemoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.MemoryType != "" {
		if err := req.MemoryType.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid memory_type")
			return
		}
	}

	result, err := h.memory.Add(r.Context(), memory.AddInput{
		Content:  req.Content,
		UserID:   req.UserID,
		Type:     req.MemoryType,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

type addConversationRequest struct {
	Messages   []model.Message  `json:"messages"`
	UserID     string           `json:"user_id"`
	MemoryType model.MemoryType `json:"memory_type,omitempty"`
}

// AddConversation handles POST /memory/add-conversation
func (h *MemoryHandler) AddConversation(w http.ResponseWriter, r *http.Request) {
	var req addConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := h.memory.AddConversation(r.Context(), req.Messages, req.UserID, req.MemoryType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

type searchRequest struct {
	Query        string           `json:"query"`
	UserID       string           `json:"user_id"`
	MemoryType   model.MemoryType `json:"memory_type,omitempty"`
	Limit        int              `json:"limit,omitempty"`
	UseRetention bool             `json:"use_retention,omitempty"`
}

// Search handles POST /memory/search
func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := h.memory.Search(r.Context(), memory.SearchInput{
		Query:          req.Query,
		UserID:         req.UserID,
		Type:           req.MemoryType,
		Limit:          req.Limit,
		UseRetention:   req.UseRetention,
		IncludeProfile: true,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Profile handles GET /memory/profile/{user_id}
func (h *MemoryHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	profile, err := h.memory.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "profile": profile})
}

// GetAll handles GET /memory/all/{user_id}
func (h *MemoryHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	memories, err := h.memory.GetAll(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": memories, "count": len(memories)})
}

// NeedsReview handles GET /memory/need-review/{user_id}?threshold=
func (h *MemoryHandler) NeedsReview(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = parsed
	}

	memories, err := h.memory.NeedsReview(r.Context(), userID, threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": memories, "count": len(memories)})
}

type deleteRequest struct {
	MemoryID model.MemoryID `json:"memory_id"`
	UserID   string         `json:"user_id"`
}

// Delete handles DELETE /memory/delete
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MemoryID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "memory_id and user_id are required")
		return
	}

	success := h.memory.Delete(r.Context(), req.UserID, req.MemoryID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}
