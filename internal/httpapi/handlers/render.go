package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"abode/internal/httpkit"
	"abode/internal/orchestrator"
	"abode/internal/pkg/errors"
)

// PostRender accepts a render job submission. On success the render has
// not run yet: the response is an acceptance with the job ID, the credits
// charged and the time estimate; clients poll GetRenderStatus for the
// outcome.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req orchestrator.SubmitRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	acc, err := h.orc.Submit(ctx, id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{"job": acc})
}

// GetRenderStatus returns the status projection for one job. Jobs outside
// the caller's scope are reported as not found.
func (h *Handler) GetRenderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	st, err := h.orc.Status(ctx, id, chi.URLParam(r, "jobId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, 200, st)
}

// ListProjectRenders returns the render jobs of a project.
func (h *Handler) ListProjectRenders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	list, err := h.orc.ListProject(ctx, id, chi.URLParam(r, "projectId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"jobs": list})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.GetHTTPStatus(err)
	if status >= 500 {
		h.log.FromContext(r.Context()).Error("request failed",
			"error", err.Error(),
			"method", r.Method,
			"path", r.URL.Path,
		)
	}

	details := map[string]any{}
	for k, v := range errors.GetFields(err) {
		details[k] = v
	}
	msg := err.Error()
	var appErr *errors.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	httpkit.WriteErr(w, status, string(errors.GetCode(err)), msg, details)
}
