package httpserver

import (
	"fmt"
	"net/http"

	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/usecase/chat"
	"github.com/m-mizutani/membox/pkg/utils/logging"
)

// ChatHandler serves memory-aware chat completions
type ChatHandler struct {
	chat *chat.UseCase
}

// NewChatHandler creates a ChatHandler
func NewChatHandler(uc *chat.UseCase) *ChatHandler {
	return &ChatHandler{chat: uc}
}

type chatRequest struct {
	Messages []model.Message `json:"messages"`
	UserID   string          `json:"user_id"`
	Stream   bool            `json:"stream,omitempty"`
}

// Completions handles POST /chat/completions. With stream=true the
// response is sent as server-sent events, terminated by a [DONE]
// marker.
func (h *ChatHandler) Completions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
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

	input := chat.Input{Messages: req.Messages, UserID: req.UserID}

	if !req.Stream {
		out, err := h.chat.Complete(r.Context(), input)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk, err := range h.chat.CompleteStream(r.Context(), input) {
		if err != nil {
			// Headers are already sent; report in-band and stop
			logging.From(r.Context()).Error("chat stream failed", "error", err)
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
			flusher.Flush()
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
