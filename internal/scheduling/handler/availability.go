package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"lessonbook/internal/scheduling/service"
	apperrors "lessonbook/pkg/errors"
	httputil "lessonbook/pkg/http"
	"lessonbook/pkg/logger"
	"lessonbook/pkg/model"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) CreateWindow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tutorID, err := tutorIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateWindow", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var window model.AvailabilityWindow
	if err := json.NewDecoder(r.Body).Decode(&window); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateWindow", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	window.TutorID = tutorID

	created, err := h.service.CreateWindow(r.Context(), &window)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateWindow", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateWindow", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) ListWindows(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tutorID, err := h.ownTutorID(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListWindows", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	windows, err := h.service.ListWindows(r.Context(), tutorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListWindows", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, windows); err != nil {
		h.log.Error("failed to write success response", "handler", "ListWindows", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) UpdateWindow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tutorID, err := tutorIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateWindow", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var update model.AvailabilityWindowUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateWindow", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	updated, err := h.service.UpdateWindow(r.Context(), ps.ByName("id"), tutorID, &update)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateWindow", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, updated); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateWindow", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteWindow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tutorID, err := tutorIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteWindow", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.DeleteWindow(r.Context(), ps.ByName("id"), tutorID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteWindow", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) CreateBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tutorID, err := tutorIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateBlock", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var block model.TimeBlock
	if err := json.NewDecoder(r.Body).Decode(&block); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateBlock", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	block.TutorID = tutorID

	created, err := h.service.CreateBlock(r.Context(), &block)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateBlock", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateBlock", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) ListBlocks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tutorID, err := h.ownTutorID(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListBlocks", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	blocks, err := h.service.ListBlocks(r.Context(), tutorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListBlocks", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, blocks); err != nil {
		h.log.Error("failed to write success response", "handler", "ListBlocks", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteBlock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tutorID, err := tutorIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteBlock", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.DeleteBlock(r.Context(), ps.ByName("id"), tutorID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteBlock", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// Check is the public eligibility probe other services call before offering
// a tutor. No identity header required.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	tutorID := query.Get("tutor_id")
	if tutorID == "" {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "The 'tutor_id' query parameter is required",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Check", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	start, err := httputil.ExtractTime(r, "start_time")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	end, err := httputil.ExtractTime(r, "end_time")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if start == nil || end == nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Both 'start_time' and 'end_time' query parameters are required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.IsTutorAvailable(r.Context(), tutorID, *start, *end)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "operation", "WriteSuccess", "error", err)
	}
}

// ownTutorID resolves the tutor for list endpoints: the header names the
// caller, and an explicit tutor_id query parameter may only repeat it.
func (h *AvailabilityHandler) ownTutorID(r *http.Request) (string, error) {
	tutorID, err := tutorIDFromHeader(r)
	if err != nil {
		return "", err
	}
	if param := r.URL.Query().Get("tutor_id"); param != "" && param != tutorID {
		return "", apperrors.Forbidden("You can only list your own availability")
	}
	return tutorID, nil
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/availability", h.CreateWindow)
	router.GET("/api/v1/availability", h.ListWindows)
	router.PATCH("/api/v1/availability/id/:id", h.UpdateWindow)
	router.DELETE("/api/v1/availability/id/:id", h.DeleteWindow)
	router.GET("/api/v1/availability/check", h.Check)
	router.POST("/api/v1/blocks", h.CreateBlock)
	router.GET("/api/v1/blocks", h.ListBlocks)
	router.DELETE("/api/v1/blocks/id/:id", h.DeleteBlock)
}
