package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"lessonbook/internal/scheduling/service"
	httputil "lessonbook/pkg/http"
	"lessonbook/pkg/logger"
	"lessonbook/pkg/model"
)

// ManagedHandler serves the token-addressed session routes. The management
// token from the booking confirmation is the whole credential: no identity
// headers are read here, so the endpoints work from an email link.
type ManagedHandler struct {
	service service.SessionService
	log     *logger.Logger
}

func NewManagedHandler(service service.SessionService, log *logger.Logger) *ManagedHandler {
	return &ManagedHandler{
		service: service,
		log:     log,
	}
}

func (h *ManagedHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := h.service.GetByToken(r.Context(), ps.ByName("token"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ManagedGet", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, session); err != nil {
		h.log.Error("failed to write success response", "handler", "ManagedGet", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ManagedHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// The reason is optional, so an empty body is fine.
	var req model.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ManagedCancel", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CancelByToken(r.Context(), ps.ByName("token"), &req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ManagedCancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ManagedHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ManagedReschedule", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	session, err := h.service.RescheduleByToken(r.Context(), ps.ByName("token"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ManagedReschedule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, session); err != nil {
		h.log.Error("failed to write success response", "handler", "ManagedReschedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ManagedHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/managed/:token", h.Get)
	router.POST("/api/v1/managed/:token/cancel", h.Cancel)
	router.PATCH("/api/v1/managed/:token/reschedule", h.Reschedule)
}
