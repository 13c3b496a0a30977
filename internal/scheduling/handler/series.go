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

type SeriesHandler struct {
	service service.SeriesService
	log     *logger.Logger
}

func NewSeriesHandler(service service.SeriesService, log *logger.Logger) *SeriesHandler {
	return &SeriesHandler{
		service: service,
		log:     log,
	}
}

// Book answers 201 even when some positions failed; the result body carries
// which ones, so the client can offer alternatives for just those.
func (h *SeriesHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	parentID, err := parentIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "BookSeries", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var req model.SeriesBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "BookSeries", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	req.ParentID = parentID

	result, err := h.service.BookSeries(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "BookSeries", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "BookSeries", "operation", "WriteCreated", "error", err)
	}
}

func (h *SeriesHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	parentID, err := parentIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "RescheduleSeries", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var req model.SeriesRescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "RescheduleSeries", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.service.RescheduleSeries(r.Context(), ps.ByName("subscriptionId"), parentID, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "RescheduleSeries", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "RescheduleSeries", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SeriesHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	parentID, err := parentIDFromHeader(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CancelSeries", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var req model.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CancelSeries", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.service.CancelSeries(r.Context(), ps.ByName("subscriptionId"), parentID, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CancelSeries", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "CancelSeries", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SeriesHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/sessions/recurring", h.Book)
	router.POST("/api/v1/series/id/:subscriptionId/reschedule", h.Reschedule)
	router.POST("/api/v1/series/id/:subscriptionId/cancel", h.Cancel)
}
