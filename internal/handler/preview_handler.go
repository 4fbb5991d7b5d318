package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/readerdigest/internal/middleware"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/preview"
)

// PreviewHandler はURLプレビューのJSON APIハンドラー。
type PreviewHandler struct {
	web      *Web
	previews preview.Previewer
}

// NewPreviewHandler はPreviewHandlerを生成する。
func NewPreviewHandler(web *Web, previews preview.Previewer) *PreviewHandler {
	return &PreviewHandler{web: web, previews: previews}
}

// previewRequest はURLプレビューのリクエストボディ。
type previewRequest struct {
	URL string `json:"url"`
}

// Preview はURLのメタデータを返す。
// POST /api/articles/preview-url
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationAPIError("Invalid request body."))
		return
	}
	if req.URL == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URL is required"))
		return
	}

	p, err := h.previews.Preview(r.Context(), req.URL)
	if err != nil {
		h.web.respondJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
