package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"neovidya/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler handles school listing and admin-only routes
type AdminHandler struct {
	schoolService *service.SchoolService
	backupService *service.BackupService
	logger        *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(schoolService *service.SchoolService, backupService *service.BackupService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		schoolService: schoolService,
		backupService: backupService,
		logger:        logger,
	}
}

// ListSchools returns every school
func (h *AdminHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.schoolService.ListSchools(r.Context())
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"schools": schools})
}

// ListUsers returns every account
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.schoolService.ListUsers(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// DeleteSchool removes a school; its members keep their accounts
func (h *AdminHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid school id"})
		return
	}

	actor := ActorFromContext(r.Context())
	if err := h.schoolService.DeleteSchool(r.Context(), actor, id); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	h.logger.Info("school deleted", zap.Int64("school_id", id), zap.Int64("admin_id", actor.UserID))
	respondJSON(w, http.StatusOK, messageResponse{Message: MsgSchoolDeleted})
}

// ExportDatabase sends a full JSON backup as a download
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.backupService.ExportJSON(r.Context(), &buf); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	h.sendFile(w, "application/json", "json", buf.Bytes())
	h.logger.Info("database exported", zap.Int64("admin_id", ActorFromContext(r.Context()).UserID))
}

// ExportReport sends the users and progress spreadsheet as a download
func (h *AdminHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.backupService.ExportXLSX(r.Context(), &buf); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	h.sendFile(w, xlsxContentType, "xlsx", buf.Bytes())
}

func (h *AdminHandler) sendFile(w http.ResponseWriter, contentType, ext string, body []byte) {
	filename := fmt.Sprintf("neovidya_backup_%s.%s", time.Now().Format("20060102_150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
