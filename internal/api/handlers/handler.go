// handler.go — APIHandler собирает доменные handlers в один объект
// и извлекает path-параметры chi.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// APIHandler — единый обработчик всех endpoints сервиса.
type APIHandler struct {
	files  *FilesHandler
	pages  *PagesHandler
	health *HealthHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	files *FilesHandler,
	pages *PagesHandler,
	health *HealthHandler,
) *APIHandler {
	return &APIHandler{
		files:  files,
		pages:  pages,
		health: health,
	}
}

// --- File Operations ---

func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFile(w, r)
}

func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.files.DownloadFile(w, r, chi.URLParam(r, "file_id"))
}

// --- Pages ---

func (h *APIHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.Index(w, r)
}

func (h *APIHandler) FilePage(w http.ResponseWriter, r *http.Request) {
	h.pages.FilePage(w, r, chi.URLParam(r, "file_id"))
}

// --- Health ---

func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}
