package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"lessonbook/pkg/model"
)

// Mock service for testing
type mockSlotService struct {
	getAvailableSlotsFunc func(ctx context.Context, tutorID string, date time.Time, durationMin int) ([]model.Slot, error)
}

func (m *mockSlotService) GetAvailableSlots(ctx context.Context, tutorID string, date time.Time, durationMin int) ([]model.Slot, error) {
	if m.getAvailableSlotsFunc != nil {
		return m.getAvailableSlotsFunc(ctx, tutorID, date, durationMin)
	}
	return []model.Slot{}, nil
}

func TestGetSlots_MissingParameters(t *testing.T) {
	handler := &SlotHandler{
		service: &mockSlotService{},
		log:     testLogger(),
	}

	tests := []struct {
		name        string
		queryString string
	}{
		{"missing both", ""},
		{"missing date", "?tutor_id=64f1b2a3c4d5e6f7a8b9c0d1"},
		{"missing tutor", "?date=2025-09-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/slots"+tt.queryString, nil)
			w := httptest.NewRecorder()

			handler.GetSlots(w, req, httprouter.Params{})

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestGetSlots_MalformedDate(t *testing.T) {
	handler := &SlotHandler{
		service: &mockSlotService{},
		log:     testLogger(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?tutor_id=64f1b2a3c4d5e6f7a8b9c0d1&date=09/01/2025", nil)
	w := httptest.NewRecorder()

	handler.GetSlots(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestGetSlots_ParsesDateAndDuration(t *testing.T) {
	var receivedDate time.Time
	var receivedDuration int
	mockService := &mockSlotService{
		getAvailableSlotsFunc: func(ctx context.Context, tutorID string, date time.Time, durationMin int) ([]model.Slot, error) {
			receivedDate = date
			receivedDuration = durationMin
			return []model.Slot{
				{StartTime: date.Add(9 * time.Hour), EndTime: date.Add(9*time.Hour + 90*time.Minute)},
			}, nil
		},
	}

	handler := &SlotHandler{
		service: mockService,
		log:     testLogger(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?tutor_id=64f1b2a3c4d5e6f7a8b9c0d1&date=2025-09-01&duration_min=90", nil)
	w := httptest.NewRecorder()

	handler.GetSlots(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !receivedDate.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", receivedDate)
	}
	if receivedDuration != 90 {
		t.Errorf("expected duration 90, got %d", receivedDuration)
	}

	var response struct {
		Data []model.Slot `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Data) != 1 {
		t.Errorf("expected 1 slot, got %d", len(response.Data))
	}
}

func TestGetSlots_DurationOptional(t *testing.T) {
	var receivedDuration int
	mockService := &mockSlotService{
		getAvailableSlotsFunc: func(ctx context.Context, tutorID string, date time.Time, durationMin int) ([]model.Slot, error) {
			receivedDuration = durationMin
			return []model.Slot{}, nil
		},
	}

	handler := &SlotHandler{
		service: mockService,
		log:     testLogger(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?tutor_id=64f1b2a3c4d5e6f7a8b9c0d1&date=2025-09-01", nil)
	w := httptest.NewRecorder()

	handler.GetSlots(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if receivedDuration != 0 {
		t.Errorf("expected zero duration when the parameter is absent, got %d", receivedDuration)
	}
}

func TestGetSlots_NonNumericDuration(t *testing.T) {
	handler := &SlotHandler{
		service: &mockSlotService{},
		log:     testLogger(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?tutor_id=64f1b2a3c4d5e6f7a8b9c0d1&date=2025-09-01&duration_min=long", nil)
	w := httptest.NewRecorder()

	handler.GetSlots(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
