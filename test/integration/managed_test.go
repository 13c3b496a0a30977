package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"lessonbook/pkg/model"
	"lessonbook/test/integration/testutil"
)

func TestManaged_TokenFlow(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	// Arrange: book a session and keep its management token
	req := testutil.NewBookingBuilder().Build()
	resp := client.POSTWithHeaders(t, "/api/v1/sessions", req, testutil.ParentHeaders())
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var booked bookedSession
	if err := resp.UnmarshalData(&booked); err != nil {
		t.Fatalf("failed to unmarshal booked session: %v", err)
	}
	token := booked.ManagementToken

	// The token alone reads the session, no identity headers
	resp = client.GET(t, "/api/v1/managed/"+token)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var fetched model.Session
	if err := resp.UnmarshalData(&fetched); err != nil {
		t.Fatalf("failed to unmarshal managed session: %v", err)
	}
	if fetched.ID != booked.ID {
		t.Fatalf("expected managed lookup to return session %s, got %s", booked.ID, fetched.ID)
	}

	// Reschedule through the token
	newStart := req.ScheduledAt.Add(3 * time.Hour)
	resp = client.PATCH(t, "/api/v1/managed/"+token+"/reschedule",
		map[string]any{"new_scheduled_at": newStart.Format(time.RFC3339)})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	if err := resp.UnmarshalData(&fetched); err != nil {
		t.Fatalf("failed to unmarshal rescheduled session: %v", err)
	}
	if !fetched.ScheduledAt.Equal(newStart) {
		t.Errorf("expected scheduled_at %v after reschedule, got %v", newStart, fetched.ScheduledAt)
	}

	// Cancel through the token
	resp = client.POST(t, "/api/v1/managed/"+token+"/cancel",
		map[string]any{"reason": "conflict with school event"})
	testutil.AssertStatusCode(t, resp, http.StatusNoContent)

	resp = client.GET(t, "/api/v1/managed/"+token)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	if err := resp.UnmarshalData(&fetched); err != nil {
		t.Fatalf("failed to unmarshal cancelled session: %v", err)
	}
	if fetched.Status != model.SessionStatusCancelled {
		t.Errorf("expected status cancelled, got %s", fetched.Status)
	}
	if fetched.CancelReason != "conflict with school event" {
		t.Errorf("expected cancel reason to persist, got %q", fetched.CancelReason)
	}

	// Cancelling a terminal session is rejected
	resp = client.POST(t, "/api/v1/managed/"+token+"/cancel", map[string]any{})
	testutil.AssertStatusCode(t, resp, http.StatusUnprocessableEntity)
}

func TestManaged_MalformedToken(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	resp := client.GET(t, "/api/v1/managed/abc")
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
}

func TestManaged_UnknownToken(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	unknown := strings.Repeat("ab", 32)
	resp := client.GET(t, "/api/v1/managed/"+unknown)
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
}
