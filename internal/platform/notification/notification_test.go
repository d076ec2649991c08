package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestDispatcher(dir Directory) (*Dispatcher, *MockEmailSender, *MockSMSSender) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	d := NewDispatcher(email, sms, dir, NewTemplateEngine(), zerolog.Nop())
	return d, email, sms
}

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine()
	subject, body, channel, err := e.Render(EventCredentialReminder, map[string]string{
		"caregiver_name":  "Dana Reyes",
		"credential_type": "RN License",
		"days":            "30",
		"expires_on":      "2025-07-15",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channel != ChannelEmail {
		t.Errorf("channel = %s, want email", channel)
	}
	if !strings.Contains(subject, "RN License") {
		t.Errorf("subject missing credential type: %q", subject)
	}
	if !strings.Contains(body, "30 day(s)") || !strings.Contains(body, "2025-07-15") {
		t.Errorf("body missing substitutions: %q", body)
	}
}

func TestTemplateEngine_UnknownEvent(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, _, err := e.Render(Event("no-such-event"), nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestDispatcher_Send(t *testing.T) {
	d, email, _ := newTestDispatcher(&StaticDirectory{})
	d.Send(context.Background(), "ops@agency.test", EventCheckInConfirmed, map[string]string{
		"caregiver_name": "Dana Reyes",
		"client_name":    "M. Alvarez",
		"time":           "09:02",
		"evv_status":     "VALID",
	})

	calls := email.Calls()
	if len(calls) != 1 {
		t.Fatalf("email calls = %d, want 1", len(calls))
	}
	if calls[0].To != "ops@agency.test" {
		t.Errorf("recipient = %s", calls[0].To)
	}
	if got := d.Stats()["sent"]; got != 1 {
		t.Errorf("sent count = %d, want 1", got)
	}
}

func TestDispatcher_SendToRole(t *testing.T) {
	dir := &StaticDirectory{
		RoleContacts: map[string][]Contact{
			"supervisor": {
				{UserID: "u1", Address: "sup1@agency.test", Channel: ChannelEmail},
				{UserID: "u2", Address: "sup2@agency.test", Channel: ChannelEmail},
			},
		},
	}
	d, email, _ := newTestDispatcher(dir)
	d.SendToRole(context.Background(), uuid.New(), "supervisor", EventLateCheckIn, map[string]string{
		"caregiver_name": "Dana Reyes", "minutes_late": "22", "scheduled_start": "09:00", "client_name": "M. Alvarez",
	})
	if got := len(email.Calls()); got != 2 {
		t.Errorf("email calls = %d, want 2", got)
	}
}

func TestDispatcher_SendToSponsor_NoSponsor(t *testing.T) {
	d, email, _ := newTestDispatcher(&StaticDirectory{})
	d.SendToSponsor(context.Background(), uuid.New(), EventCheckOutConfirmed, nil)
	if got := len(email.Calls()); got != 0 {
		t.Errorf("email calls = %d, want 0 when client has no sponsor", got)
	}
}

func TestDispatcher_DeliveryFailureDoesNotPanic(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp unreachable"}
	d := NewDispatcher(email, &MockSMSSender{}, &StaticDirectory{}, NewTemplateEngine(), zerolog.Nop())

	d.Send(context.Background(), "ops@agency.test", EventCredentialExpired, map[string]string{
		"caregiver_name": "Dana Reyes", "credential_type": "CPR", "expires_on": "2025-06-01",
	})

	sent := d.Sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if sent[0].Status != "failed" {
		t.Errorf("status = %s, want failed", sent[0].Status)
	}
	if sent[0].Error != "smtp unreachable" {
		t.Errorf("error = %q", sent[0].Error)
	}
}

func TestDispatcher_WorkerDrainsOnClose(t *testing.T) {
	d, email, _ := newTestDispatcher(&StaticDirectory{})
	d.StartWorker(16)

	for i := 0; i < 5; i++ {
		d.Send(context.Background(), "ops@agency.test", EventCredentialExpired, map[string]string{
			"caregiver_name": "Dana Reyes", "credential_type": "CPR", "expires_on": "2025-06-01",
		})
	}
	d.Close()

	if calls := email.Calls(); len(calls) != 5 {
		t.Errorf("delivered = %d, want 5 after Close drains the queue", len(calls))
	}
	if stats := d.Stats(); stats["sent"] != 5 {
		t.Errorf("stats = %v, want 5 sent", stats)
	}
}
