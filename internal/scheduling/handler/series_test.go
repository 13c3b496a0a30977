package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"lessonbook/pkg/model"
)

// Mock service for testing
type mockSeriesService struct {
	bookSeriesFunc       func(ctx context.Context, req *model.SeriesBookingRequest) (*model.SeriesBookingResult, error)
	rescheduleSeriesFunc func(ctx context.Context, subscriptionID, parentID string, req *model.SeriesRescheduleRequest) (*model.SeriesRescheduleResult, error)
	cancelSeriesFunc     func(ctx context.Context, subscriptionID, parentID string, req *model.CancelRequest) (*model.SeriesCancelResult, error)
}

func (m *mockSeriesService) BookSeries(ctx context.Context, req *model.SeriesBookingRequest) (*model.SeriesBookingResult, error) {
	if m.bookSeriesFunc != nil {
		return m.bookSeriesFunc(ctx, req)
	}
	return &model.SeriesBookingResult{}, nil
}

func (m *mockSeriesService) RescheduleSeries(ctx context.Context, subscriptionID, parentID string, req *model.SeriesRescheduleRequest) (*model.SeriesRescheduleResult, error) {
	if m.rescheduleSeriesFunc != nil {
		return m.rescheduleSeriesFunc(ctx, subscriptionID, parentID, req)
	}
	return &model.SeriesRescheduleResult{}, nil
}

func (m *mockSeriesService) CancelSeries(ctx context.Context, subscriptionID, parentID string, req *model.CancelRequest) (*model.SeriesCancelResult, error) {
	if m.cancelSeriesFunc != nil {
		return m.cancelSeriesFunc(ctx, subscriptionID, parentID, req)
	}
	return &model.SeriesCancelResult{}, nil
}

func TestBookSeries_PartialResultStill201(t *testing.T) {
	mockService := &mockSeriesService{
		bookSeriesFunc: func(ctx context.Context, req *model.SeriesBookingRequest) (*model.SeriesBookingResult, error) {
			return &model.SeriesBookingResult{
				SessionIDs:    []string{"64f1b2a3c4d5e6f7a8b9c0aa", "64f1b2a3c4d5e6f7a8b9c0ab"},
				TotalBooked:   2,
				TotalFailed:   1,
				FailedIndices: []int{2},
			}, nil
		},
	}

	handler := &SeriesHandler{
		service: mockService,
		log:     testLogger(),
	}

	body := `{"tutor_id":"64f1b2a3c4d5e6f7a8b9c0d1","subscription_id":"64f1b2a3c4d5e6f7a8b9c0d3","start_times":["2025-09-01T10:00:00Z","2025-09-08T10:00:00Z","2025-09-15T10:00:00Z"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/recurring", strings.NewReader(body))
	req.Header.Set(HeaderParentID, "64f1b2a3c4d5e6f7a8b9c0d2")
	w := httptest.NewRecorder()

	handler.Book(w, req, httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var response struct {
		Data model.SeriesBookingResult `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.TotalBooked != 2 {
		t.Errorf("expected total_booked 2, got %d", response.Data.TotalBooked)
	}
	if len(response.Data.FailedIndices) != 1 || response.Data.FailedIndices[0] != 2 {
		t.Errorf("expected failed_indices [2], got %v", response.Data.FailedIndices)
	}
}

func TestBookSeries_MissingIdentityHeader(t *testing.T) {
	handler := &SeriesHandler{
		service: &mockSeriesService{},
		log:     testLogger(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/recurring", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	handler.Book(w, req, httprouter.Params{})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestBookSeries_HeaderOverridesBodyParent(t *testing.T) {
	var received *model.SeriesBookingRequest
	mockService := &mockSeriesService{
		bookSeriesFunc: func(ctx context.Context, req *model.SeriesBookingRequest) (*model.SeriesBookingResult, error) {
			received = req
			return &model.SeriesBookingResult{}, nil
		},
	}

	handler := &SeriesHandler{
		service: mockService,
		log:     testLogger(),
	}

	body := `{"tutor_id":"64f1b2a3c4d5e6f7a8b9c0d1","parent_id":"64f1b2a3c4d5e6f7a8b9ffff","subscription_id":"64f1b2a3c4d5e6f7a8b9c0d3","start_times":["2025-09-01T10:00:00Z"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/recurring", strings.NewReader(body))
	req.Header.Set(HeaderParentID, "64f1b2a3c4d5e6f7a8b9c0d2")
	w := httptest.NewRecorder()

	handler.Book(w, req, httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	if received == nil || received.ParentID != "64f1b2a3c4d5e6f7a8b9c0d2" {
		t.Error("expected header parent to replace body parent")
	}
}

func TestRescheduleSeries_SubscriptionFromPath(t *testing.T) {
	var receivedSubscription string
	mockService := &mockSeriesService{
		rescheduleSeriesFunc: func(ctx context.Context, subscriptionID, parentID string, req *model.SeriesRescheduleRequest) (*model.SeriesRescheduleResult, error) {
			receivedSubscription = subscriptionID
			return &model.SeriesRescheduleResult{RescheduledCount: 4}, nil
		},
	}

	handler := &SeriesHandler{
		service: mockService,
		log:     testLogger(),
	}

	body := `{"new_start_time":"2025-09-02T14:00:00Z","cadence":"weekly"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/series/id/64f1b2a3c4d5e6f7a8b9c0d3/reschedule", strings.NewReader(body))
	req.Header.Set(HeaderParentID, "64f1b2a3c4d5e6f7a8b9c0d2")
	w := httptest.NewRecorder()

	handler.Reschedule(w, req, httprouter.Params{{Key: "subscriptionId", Value: "64f1b2a3c4d5e6f7a8b9c0d3"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if receivedSubscription != "64f1b2a3c4d5e6f7a8b9c0d3" {
		t.Errorf("expected path subscription to reach the service, got %s", receivedSubscription)
	}

	var response struct {
		Data model.SeriesRescheduleResult `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.RescheduledCount != 4 {
		t.Errorf("expected rescheduled_count 4, got %d", response.Data.RescheduledCount)
	}
}

func TestCancelSeries_EmptyBodyAllowed(t *testing.T) {
	mockService := &mockSeriesService{
		cancelSeriesFunc: func(ctx context.Context, subscriptionID, parentID string, req *model.CancelRequest) (*model.SeriesCancelResult, error) {
			return &model.SeriesCancelResult{CancelledCount: 3}, nil
		},
	}

	handler := &SeriesHandler{
		service: mockService,
		log:     testLogger(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/series/id/64f1b2a3c4d5e6f7a8b9c0d3/cancel", nil)
	req.Header.Set(HeaderParentID, "64f1b2a3c4d5e6f7a8b9c0d2")
	w := httptest.NewRecorder()

	handler.Cancel(w, req, httprouter.Params{{Key: "subscriptionId", Value: "64f1b2a3c4d5e6f7a8b9c0d3"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response struct {
		Data model.SeriesCancelResult `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.CancelledCount != 3 {
		t.Errorf("expected cancelled_count 3, got %d", response.Data.CancelledCount)
	}
}
