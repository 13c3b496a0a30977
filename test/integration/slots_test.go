package integration

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"lessonbook/pkg/model"
	"lessonbook/test/integration/testutil"
)

func TestSlots_WindowMinusBookedAndBlocked(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	// Arrange: a Monday window, one booked hour and one blocked hour
	window := testutil.NewWindowBuilder().WithDayOfWeek(time.Monday).WithTimes("09:00", "17:00").Build()
	resp := client.POSTWithHeaders(t, "/api/v1/availability", window, testutil.TutorHeaders())
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	monday := testutil.NextWeekday(time.Monday, 0, 0)
	bookedStart := testutil.NextWeekday(time.Monday, 10, 0)
	booking := testutil.NewBookingBuilder().WithStart(bookedStart).WithDuration(60).Build()
	resp = client.POSTWithHeaders(t, "/api/v1/sessions", booking, testutil.ParentHeaders())
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	blockedStart := testutil.NextWeekday(time.Monday, 14, 0)
	block := testutil.NewBlockBuilder().WithRange(blockedStart, blockedStart.Add(time.Hour)).Build()
	resp = client.POSTWithHeaders(t, "/api/v1/blocks", block, testutil.TutorHeaders())
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	// Act
	q := url.Values{}
	q.Set("tutor_id", testutil.TestTutorID)
	q.Set("date", monday.Format("2006-01-02"))
	q.Set("duration_min", "60")
	resp = client.GET(t, "/api/v1/slots?"+q.Encode())

	// Assert: 15 half-hour starts fit 09:00-17:00 for an hour session,
	// the booked hour removes three and the blocked hour removes three
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var slots []model.Slot
	if err := resp.UnmarshalData(&slots); err != nil {
		t.Fatalf("failed to unmarshal slots: %v", err)
	}
	if len(slots) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(slots))
	}

	nineAM := testutil.NextWeekday(time.Monday, 9, 0)
	if !slots[0].StartTime.Equal(nineAM) {
		t.Errorf("expected first slot at %v, got %v", nineAM, slots[0].StartTime)
	}
	for _, slot := range slots {
		if slot.StartTime.Equal(bookedStart) {
			t.Errorf("booked start %v must not be offered", bookedStart)
		}
		if slot.StartTime.Equal(blockedStart) {
			t.Errorf("blocked start %v must not be offered", blockedStart)
		}
		if !slot.EndTime.Equal(slot.StartTime.Add(time.Hour)) {
			t.Errorf("expected hour long slot, got %v to %v", slot.StartTime, slot.EndTime)
		}
	}
}

func TestSlots_EmptyWithoutWindows(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	// A tutor no other test books for, so no cached day can leak in
	q := url.Values{}
	q.Set("tutor_id", "64f1b2a3c4d5e6f7a8b9c0ee")
	q.Set("date", testutil.NextWeekday(time.Monday, 0, 0).Format("2006-01-02"))
	resp := client.GET(t, "/api/v1/slots?"+q.Encode())

	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var slots []model.Slot
	if err := resp.UnmarshalData(&slots); err != nil {
		t.Fatalf("failed to unmarshal slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots without windows, got %d", len(slots))
	}
}

func TestSlots_RequiresTutorAndDate(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	resp := client.GET(t, "/api/v1/slots")
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)

	q := url.Values{}
	q.Set("tutor_id", testutil.TestTutorID)
	resp = client.GET(t, "/api/v1/slots?"+q.Encode())
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
}
