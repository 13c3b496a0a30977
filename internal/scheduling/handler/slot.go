package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"lessonbook/internal/scheduling/service"
	apperrors "lessonbook/pkg/errors"
	httputil "lessonbook/pkg/http"
	"lessonbook/pkg/logger"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

// GetSlots is the public discovery endpoint parents browse before booking.
// No identity header required.
func (h *SlotHandler) GetSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	tutorID := query.Get("tutor_id")
	dateStr := query.Get("date")

	if tutorID == "" || dateStr == "" {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Both 'tutor_id' and 'date' query parameters are required",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "GetSlots", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid date format, must be YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	durationMin := 0
	if s := query.Get("duration_min"); s != "" {
		durationMin, err = strconv.Atoi(s)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid duration_min parameter: "+s)); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "GetSlots", "operation", "WriteError", "error", writeErr)
			}
			return
		}
	}

	slots, err := h.service.GetAvailableSlots(r.Context(), tutorID, date, durationMin)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots", h.GetSlots)
}
