package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"abode/internal/httpkit"
)

// GetArtifact streams a published render artifact. Output URLs returned
// on completion resolve here when the localfs provider is active; the
// URL path suffix is the storage object key.
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	if h.sp == nil {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "artifact serving is not enabled", nil)
		return
	}

	// The wildcard arrives unsanitized; a key whose cleaned form climbs
	// out of the storage root must never reach the provider.
	objectKey := chi.URLParam(r, "*")
	if objectKey == "" || !filepath.IsLocal(filepath.FromSlash(objectKey)) {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "artifact not found", nil)
		return
	}

	rc, contentType, size, err := h.sp.GetObject(r.Context(), objectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "artifact not found", nil)
		return
	}
	defer rc.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(r.Context()).Warn("artifact stream interrupted",
			"object_key", objectKey,
			"error", err.Error(),
		)
	}
}
