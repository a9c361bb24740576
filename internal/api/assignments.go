package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SaveAssignments handles POST /receipts/{id}/assignments.
func (h *Handler) SaveAssignments(w http.ResponseWriter, r *http.Request) {
	var req SaveAssignmentsRequest
	if !decode(w, r, &req) {
		return
	}

	count, err := h.assignments.SaveAssignments(r.Context(), chi.URLParam(r, "id"), assignmentInputs(req.Assignments))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Count: &count})
}

// GetAssignments handles GET /receipts/{id}/assignments.
func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	views, err := h.assignments.GetAssignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentViews(views))
}

// ClearAssignments handles DELETE /receipts/{id}/assignments.
func (h *Handler) ClearAssignments(w http.ResponseWriter, r *http.Request) {
	if err := h.assignments.ClearAssignments(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// PreviewSplit handles POST /receipts/{id}/split/preview.
func (h *Handler) PreviewSplit(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decode(w, r, &req) {
		return
	}

	preview, err := h.assignments.Preview(r.Context(), chi.URLParam(r, "id"), req.Mode, assignmentInputs(req.Assignments))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreview(preview))
}
