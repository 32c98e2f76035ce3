package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"neovidya/internal/catalogue"
	"neovidya/internal/service"
)

// CourseHandler serves the static course catalogue
type CourseHandler struct {
	catalogue       *catalogue.Catalogue
	progressService *service.ProgressService
	logger          *zap.Logger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(cat *catalogue.Catalogue, progressService *service.ProgressService, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{
		catalogue:       cat,
		progressService: progressService,
		logger:          logger,
	}
}

// ListCourses returns every subject in catalogue order
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"courses": h.catalogue.Subjects()})
}

// GetCourse returns one subject by key
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	subject, err := h.catalogue.Subject(r.PathValue("key"))
	if errors.Is(err, catalogue.ErrSubjectNotFound) {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: MsgCourseNotFound})
		return
	}
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"course": subject})
}

// CourseProgress returns the caller's progress for one subject
func (h *CourseHandler) CourseProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.progressService.SubjectProgress(r.Context(), ActorFromContext(r.Context()), r.PathValue("key"))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"progress": progress})
}
