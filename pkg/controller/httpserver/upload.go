package httpserver

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/membox/pkg/adapter"
)

const maxUploadSize = 10 << 20 // 10 MiB

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadHandler stores uploaded images and returns the reference URL
// to attach to a memory
type UploadHandler struct {
	storage adapter.Storage
}

// NewUploadHandler creates an UploadHandler
func NewUploadHandler(storage adapter.Storage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// Upload handles POST /upload (multipart form, "file" field)
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "upload storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}

	key := "uploads/" + uuid.New().String() + ext
	writer, err := h.storage.Put(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := writer.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"key":       key,
		"image_url": h.storage.URL(key),
	})
}
