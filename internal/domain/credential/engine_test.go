package credential

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var sweepNow = time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

func cred(expiresInDays int, reminderDays []int) *Credential {
	return &Credential{
		ID:             uuid.New(),
		CaregiverName:  "Dana Reyes",
		TypeName:       "RN License",
		ReminderDays:   reminderDays,
		ExpirationDate: sweepNow.AddDate(0, 0, expiresInDays),
		Status:         StatusActive,
	}
}

func TestDaysUntil(t *testing.T) {
	cases := []struct {
		name string
		exp  time.Time
		want int
	}{
		{"30 days out", sweepNow.AddDate(0, 0, 30), 30},
		{"later today", sweepNow.Add(2 * time.Hour), 1},
		{"exactly now", sweepNow, 0},
		{"yesterday", sweepNow.AddDate(0, 0, -1), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysUntil(tc.exp, sweepNow); got != tc.want {
				t.Errorf("DaysUntil = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{-1, SeverityCritical},
		{0, SeverityHigh},
		{7, SeverityHigh},
		{8, SeverityWarning},
		{30, SeverityWarning},
		{31, SeverityInfo},
	}
	for _, tc := range cases {
		if got := SeverityFor(tc.days); got != tc.want {
			t.Errorf("SeverityFor(%d) = %s, want %s", tc.days, got, tc.want)
		}
	}
}

func TestAlertTypeFor(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{-5, AlertExpired},
		{7, AlertExpiring7Days},
		{30, AlertExpiring30Days},
		{60, AlertExpiring60Days},
		{61, AlertExpiringSoon},
	}
	for _, tc := range cases {
		if got := AlertTypeFor(tc.days); got != tc.want {
			t.Errorf("AlertTypeFor(%d) = %s, want %s", tc.days, got, tc.want)
		}
	}
}

func TestExpectedStatus(t *testing.T) {
	if got := ExpectedStatus(cred(90, []int{30, 7}), sweepNow); got != StatusActive {
		t.Errorf("90 days out = %s, want ACTIVE", got)
	}
	if got := ExpectedStatus(cred(6, []int{30, 7}), sweepNow); got != StatusExpiringSoon {
		t.Errorf("6 days out = %s, want EXPIRING_SOON", got)
	}
	if got := ExpectedStatus(cred(-2, []int{30, 7}), sweepNow); got != StatusExpired {
		t.Errorf("expired = %s, want EXPIRED", got)
	}

	revoked := cred(-2, []int{30, 7})
	revoked.Status = StatusRevoked
	if got := ExpectedStatus(revoked, sweepNow); got != StatusRevoked {
		t.Errorf("revoked = %s, REVOKED must be sticky", got)
	}
}

func TestEvaluate_CrossingThresholdFires(t *testing.T) {
	c := cred(30, []int{30, 7})
	ev := Evaluate(c, sweepNow, nil)
	if len(ev.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(ev.Alerts))
	}
	a := ev.Alerts[0]
	if a.ThresholdDay != 30 || a.AlertType != AlertExpiring30Days || a.Severity != SeverityWarning {
		t.Errorf("alert = %+v", a)
	}
}

func TestEvaluate_AlreadySentThresholdDoesNotRefire(t *testing.T) {
	// 29 days out with the 30-day marker recorded: a second sweep the same
	// day must stay silent.
	c := cred(29, []int{30, 7})
	c.RemindersSentDays = []int{30}
	ev := Evaluate(c, sweepNow, nil)
	if len(ev.Alerts) != 0 {
		t.Errorf("alerts = %+v, want none", ev.Alerts)
	}
}

func TestEvaluate_FiringWindowClosesAfterSevenDays(t *testing.T) {
	// 22 days out is outside the (23, 30] window of the 30-day threshold
	// and above the 7-day threshold: nothing fires.
	c := cred(22, []int{30, 7})
	ev := Evaluate(c, sweepNow, nil)
	if len(ev.Alerts) != 0 {
		t.Errorf("alerts = %+v, want none outside firing window", ev.Alerts)
	}

	// 23 days out is still inside the window.
	c = cred(23, []int{30, 7})
	if ev := Evaluate(c, sweepNow, nil); len(ev.Alerts) != 1 {
		t.Errorf("23 days: alerts = %+v, want 1", ev.Alerts)
	}
}

func TestEvaluate_RecentAlertOfSameTypeSuppresses(t *testing.T) {
	c := cred(30, []int{30})
	last := map[string]time.Time{
		AlertExpiring30Days: sweepNow.Add(-2 * time.Hour),
	}
	if ev := Evaluate(c, sweepNow, last); len(ev.Alerts) != 0 {
		t.Errorf("alert fired inside 24h dedup window: %+v", ev.Alerts)
	}

	last[AlertExpiring30Days] = sweepNow.Add(-25 * time.Hour)
	if ev := Evaluate(c, sweepNow, last); len(ev.Alerts) != 1 {
		t.Errorf("alert suppressed outside dedup window: %+v", ev.Alerts)
	}
}

func TestEvaluate_ExpiredFiresOnce(t *testing.T) {
	c := cred(-1, []int{30, 7})
	ev := Evaluate(c, sweepNow, nil)
	if len(ev.Alerts) != 1 || ev.Alerts[0].AlertType != AlertExpired {
		t.Fatalf("alerts = %+v, want one EXPIRED", ev.Alerts)
	}
	if ev.Alerts[0].Severity != SeverityCritical || ev.Alerts[0].ThresholdDay != -1 {
		t.Errorf("alert = %+v", ev.Alerts[0])
	}

	c.ExpiredAlertSent = true
	if ev := Evaluate(c, sweepNow, nil); len(ev.Alerts) != 0 {
		t.Errorf("expired alert refired despite marker: %+v", ev.Alerts)
	}
}

func TestEvaluate_ExpiredSevenDayDedup(t *testing.T) {
	c := cred(-3, []int{30})
	last := map[string]time.Time{AlertExpired: sweepNow.Add(-3 * 24 * time.Hour)}
	if ev := Evaluate(c, sweepNow, last); len(ev.Alerts) != 0 {
		t.Errorf("EXPIRED refired inside 7-day window: %+v", ev.Alerts)
	}
	last[AlertExpired] = sweepNow.Add(-8 * 24 * time.Hour)
	if ev := Evaluate(c, sweepNow, last); len(ev.Alerts) != 1 {
		t.Errorf("EXPIRED suppressed outside 7-day window: %+v", ev.Alerts)
	}
}

func TestEvaluate_RevokedNeverAlerts(t *testing.T) {
	c := cred(-10, []int{30, 7})
	c.Status = StatusRevoked
	ev := Evaluate(c, sweepNow, nil)
	if len(ev.Alerts) != 0 {
		t.Errorf("revoked credential produced alerts: %+v", ev.Alerts)
	}
	if ev.StatusChanged {
		t.Error("revoked status must not change")
	}
}

func TestEvaluate_BothThresholdsIndependent(t *testing.T) {
	// 5 days out, 30-day already sent: only the 7-day threshold fires.
	c := cred(5, []int{30, 7})
	c.RemindersSentDays = []int{30}
	ev := Evaluate(c, sweepNow, nil)
	if len(ev.Alerts) != 1 || ev.Alerts[0].ThresholdDay != 7 {
		t.Errorf("alerts = %+v, want the 7-day threshold", ev.Alerts)
	}
}
