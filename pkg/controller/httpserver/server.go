// Package httpserver exposes the memory layer over HTTP.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/membox/pkg/adapter"
	"github.com/m-mizutani/membox/pkg/usecase/chat"
	"github.com/m-mizutani/membox/pkg/usecase/memory"
)

// NewRouter assembles the chi router with all routes and middleware.
// storage may be nil when upload handling is not configured.
func NewRouter(memUC *memory.UseCase, chatUC *chat.UseCase, storage adapter.Storage, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(AccessLog(logger))
	r.Use(Recovery(logger))

	memoryH := NewMemoryHandler(memUC)
	chatH := NewChatHandler(chatUC)
	uploadH := NewUploadHandler(storage)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/memory", func(r chi.Router) {
		r.Post("/add", memoryH.Add)
		r.Post("/add-conversation", memoryH.AddConversation)
		r.Post("/search", memoryH.Search)
		r.Get("/profile/{user_id}", memoryH.Profile)
		r.Get("/all/{user_id}", memoryH.GetAll)
		r.Get("/need-review/{user_id}", memoryH.NeedsReview)
		r.Delete("/delete", memoryH.Delete)
	})

	r.Post("/chat/completions", chatH.Completions)
	r.Post("/upload", uploadH.Upload)

	return r
}

// NewServer wraps the router in an http.Server with sane timeouts.
// WriteTimeout stays generous because chat completions stream.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
