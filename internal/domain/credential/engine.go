package credential

import (
	"fmt"
	"math"
	"time"
)

// DaysUntil returns the whole days from now until the expiration date,
// rounded up. A credential expiring later today reports 0; one that expired
// yesterday reports a negative value.
func DaysUntil(expiration, now time.Time) int {
	return int(math.Ceil(expiration.Sub(now).Hours() / 24))
}

// SeverityFor maps days-until-expiration to a display severity.
func SeverityFor(days int) string {
	switch {
	case days < 0:
		return SeverityCritical
	case days <= 7:
		return SeverityHigh
	case days <= 30:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// AlertTypeFor maps days-until-expiration to an alert type.
func AlertTypeFor(days int) string {
	switch {
	case days < 0:
		return AlertExpired
	case days <= 7:
		return AlertExpiring7Days
	case days <= 30:
		return AlertExpiring30Days
	case days <= 60:
		return AlertExpiring60Days
	default:
		return AlertExpiringSoon
	}
}

// ExpectedStatus recomputes the status a credential should hold as of now.
// REVOKED is sticky and never recomputed.
func ExpectedStatus(c *Credential, now time.Time) string {
	if c.Status == StatusRevoked {
		return StatusRevoked
	}
	days := DaysUntil(c.ExpirationDate, now)
	if days < 0 {
		return StatusExpired
	}
	if min, ok := minReminderDay(c.ReminderDays); ok && days <= min {
		return StatusExpiringSoon
	}
	return StatusActive
}

func minReminderDay(days []int) (int, bool) {
	if len(days) == 0 {
		return 0, false
	}
	min := days[0]
	for _, d := range days[1:] {
		if d < min {
			min = d
		}
	}
	return min, true
}

// PendingAlert is an alert the engine decided to fire, plus the threshold
// marker to record so it never fires again.
type PendingAlert struct {
	AlertType string
	Severity  string
	Message   string
	// ThresholdDay is the reminderDays entry that fired, or -1 for the
	// EXPIRED alert.
	ThresholdDay int
}

// Evaluation is the engine's verdict for one credential.
type Evaluation struct {
	DaysUntilExpiration int
	NewStatus           string
	StatusChanged       bool
	Alerts              []PendingAlert
}

// Evaluate decides, without side effects, what the sweep should do for one
// credential: the status it should hold and the alerts that are due.
// lastAlertAt maps alert type to the most recent existing alert's creation
// time and backs the time-window dedup guard; the remindersSentDays and
// expiredAlertSent markers on the credential make re-runs idempotent.
//
// Each reminder threshold d has a one-week firing window (daysUntil in
// (d-7, d]). If the sweep is down for more than a week a threshold can be
// skipped entirely; that mirrors the behavior this engine replaces and is
// accepted as-is.
func Evaluate(c *Credential, now time.Time, lastAlertAt map[string]time.Time) Evaluation {
	days := DaysUntil(c.ExpirationDate, now)
	ev := Evaluation{
		DaysUntilExpiration: days,
		NewStatus:           ExpectedStatus(c, now),
	}
	ev.StatusChanged = ev.NewStatus != c.Status

	if c.Status == StatusRevoked {
		return ev
	}

	sent := make(map[int]bool, len(c.RemindersSentDays))
	for _, d := range c.RemindersSentDays {
		sent[d] = true
	}

	if days >= 0 {
		for _, d := range c.ReminderDays {
			if days > d || days <= d-7 || sent[d] {
				continue
			}
			alertType := AlertTypeFor(days)
			if at, ok := lastAlertAt[alertType]; ok && now.Sub(at) < ReminderDedupWindow {
				continue
			}
			ev.Alerts = append(ev.Alerts, PendingAlert{
				AlertType:    alertType,
				Severity:     SeverityFor(days),
				Message:      fmt.Sprintf("%s's %s expires in %d day(s), on %s", c.CaregiverName, c.TypeName, days, c.ExpirationDate.Format("2006-01-02")),
				ThresholdDay: d,
			})
		}
		return ev
	}

	if c.ExpiredAlertSent {
		return ev
	}
	if at, ok := lastAlertAt[AlertExpired]; ok && now.Sub(at) < ExpiredDedupWindow {
		return ev
	}
	ev.Alerts = append(ev.Alerts, PendingAlert{
		AlertType:    AlertExpired,
		Severity:     SeverityCritical,
		Message:      fmt.Sprintf("%s's %s expired on %s", c.CaregiverName, c.TypeName, c.ExpirationDate.Format("2006-01-02")),
		ThresholdDay: -1,
	})
	return ev
}
