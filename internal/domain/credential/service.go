package credential

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/platform/audit"
	"github.com/carelog/carelog/internal/platform/clock"
	"github.com/carelog/carelog/internal/platform/notification"
)

// Service runs the credential expiration sweep. Designed to be re-run
// safely: the engine's markers and dedup windows prevent duplicate alerts
// on retry.
type Service struct {
	creds      Repository
	dispatcher *notification.Dispatcher
	auditor    audit.Recorder
	clk        clock.Clock
	logger     zerolog.Logger
}

func NewService(creds Repository, dispatcher *notification.Dispatcher, auditor audit.Recorder, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{creds: creds, dispatcher: dispatcher, auditor: auditor, clk: clk, logger: logger}
}

// CheckAllCredentials sweeps every active company. One company's failure is
// recorded and does not abort the sweep for the rest.
func (s *Service) CheckAllCredentials(ctx context.Context) *SweepResult {
	res := &SweepResult{Errors: []string{}}

	companies, err := s.creds.ActiveCompanies(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("listing companies: %v", err))
		return res
	}

	for _, companyID := range companies {
		if err := s.sweepCompany(ctx, companyID, res); err != nil {
			s.logger.Error().Err(err).Str("company_id", companyID.String()).Msg("credential sweep failed for company")
			res.Errors = append(res.Errors, fmt.Sprintf("company %s: %v", companyID, err))
		}
	}
	return res
}

// ListAlerts returns a credential's alert history, newest first.
func (s *Service) ListAlerts(ctx context.Context, credentialID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	return s.creds.ListAlerts(ctx, credentialID, limit, offset)
}

func (s *Service) sweepCompany(ctx context.Context, companyID uuid.UUID, res *SweepResult) error {
	creds, err := s.creds.ListByCompany(ctx, companyID)
	if err != nil {
		return err
	}

	for _, c := range creds {
		res.CredentialsChecked++
		if err := s.sweepCredential(ctx, c, res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("credential %s: %v", c.ID, err))
		}
	}
	return nil
}

func (s *Service) sweepCredential(ctx context.Context, c *Credential, res *SweepResult) error {
	now := s.clk.Now()

	lastAlerts, err := s.creds.LatestAlertTimes(ctx, c.ID)
	if err != nil {
		return err
	}

	ev := Evaluate(c, now, lastAlerts)

	dirty := false
	if ev.StatusChanged {
		c.Status = ev.NewStatus
		res.StatusUpdated++
		dirty = true
	}

	for _, pending := range ev.Alerts {
		alert := &Alert{
			CredentialID: c.ID,
			AlertType:    pending.AlertType,
			Severity:     pending.Severity,
			Message:      pending.Message,
			CreatedAt:    now,
		}
		if err := s.creds.CreateAlert(ctx, alert); err != nil {
			return err
		}
		res.AlertsCreated++
		dirty = true

		if pending.ThresholdDay >= 0 {
			c.RemindersSentDays = append(c.RemindersSentDays, pending.ThresholdDay)
			c.LastReminderSent = &now
		} else {
			c.ExpiredAlertSent = true
		}

		s.notify(ctx, c, ev.DaysUntilExpiration, pending)
		s.recordAudit(ctx, c, alert)
	}

	if dirty {
		return s.creds.UpdateSweepState(ctx, c)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, c *Credential, days int, pending PendingAlert) {
	event := notification.EventCredentialReminder
	if pending.AlertType == AlertExpired {
		event = notification.EventCredentialExpired
	}
	data := map[string]string{
		"caregiver_name":  c.CaregiverName,
		"credential_type": c.TypeName,
		"days":            strconv.Itoa(days),
		"expires_on":      c.ExpirationDate.Format("2006-01-02"),
	}
	if c.CaregiverEmail != nil {
		s.dispatcher.Send(ctx, *c.CaregiverEmail, event, data)
	}
	s.dispatcher.SendToRole(ctx, c.CompanyID, "admin", event, data)
	s.dispatcher.SendToRole(ctx, c.CompanyID, "ops_manager", event, data)
}

func (s *Service) recordAudit(ctx context.Context, c *Credential, alert *Alert) {
	err := s.auditor.Record(ctx, audit.Entry{
		ActorID:    "system",
		Action:     "credential.alert",
		EntityType: "credential",
		EntityID:   c.ID.String(),
		Changes: map[string]any{
			"alert_type": alert.AlertType,
			"severity":   alert.Severity,
			"status":     c.Status,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("credential_id", c.ID.String()).Msg("credential alert audit write failed")
	}
}
