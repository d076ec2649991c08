// Package credential tracks caregiver licenses and certifications and runs
// the daily expiration sweep that keeps their statuses current and fires
// deduplicated reminder alerts.
package credential

import (
	"time"

	"github.com/google/uuid"
)

// Credential statuses. REVOKED is a manual terminal override the sweep
// never touches.
const (
	StatusActive       = "ACTIVE"
	StatusExpiringSoon = "EXPIRING_SOON"
	StatusExpired      = "EXPIRED"
	StatusRevoked      = "REVOKED"
)

// Alert severities.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"
)

// Alert types.
const (
	AlertExpired        = "EXPIRED"
	AlertExpiring7Days  = "EXPIRING_7_DAYS"
	AlertExpiring30Days = "EXPIRING_30_DAYS"
	AlertExpiring60Days = "EXPIRING_60_DAYS"
	AlertExpiringSoon   = "EXPIRING_SOON"
)

// Dedup windows: a reminder of a given type fires at most once per 24h, an
// EXPIRED alert at most once per 7 days.
const (
	ReminderDedupWindow = 24 * time.Hour
	ExpiredDedupWindow  = 7 * 24 * time.Hour
)

// Type is a credential category (RN license, CPR certification) with its
// configured reminder thresholds in days before expiration.
type Type struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	ReminderDays []int     `db:"reminder_days" json:"reminder_days"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Credential maps to the caregiver_credentials table, joined with its
// type's reminder thresholds and the caregiver's contact details.
type Credential struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	CompanyID         uuid.UUID  `db:"company_id" json:"company_id"`
	CaregiverID       uuid.UUID  `db:"caregiver_id" json:"caregiver_id"`
	CaregiverName     string     `db:"caregiver_name" json:"caregiver_name"`
	CaregiverEmail    *string    `db:"caregiver_email" json:"caregiver_email,omitempty"`
	TypeID            uuid.UUID  `db:"credential_type_id" json:"credential_type_id"`
	TypeName          string     `db:"type_name" json:"type_name"`
	ReminderDays      []int      `db:"reminder_days" json:"reminder_days"`
	ExpirationDate    time.Time  `db:"expiration_date" json:"expiration_date"`
	Status            string     `db:"status" json:"status"`
	RemindersSentDays []int      `db:"reminders_sent_days" json:"reminders_sent_days"`
	ExpiredAlertSent  bool       `db:"expired_alert_sent" json:"expired_alert_sent"`
	LastReminderSent  *time.Time `db:"last_reminder_sent" json:"last_reminder_sent,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Alert is an immutable notification record created when a reminder
// threshold is crossed or a credential expires.
type Alert struct {
	ID           uuid.UUID `db:"id" json:"id"`
	CredentialID uuid.UUID `db:"credential_id" json:"credential_id"`
	AlertType    string    `db:"alert_type" json:"alert_type"`
	Severity     string    `db:"severity" json:"severity"`
	Message      string    `db:"message" json:"message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SweepResult summarizes one full credential sweep.
type SweepResult struct {
	CredentialsChecked int      `json:"credentialsChecked"`
	StatusUpdated      int      `json:"statusUpdated"`
	AlertsCreated      int      `json:"alertsCreated"`
	Errors             []string `json:"errors"`
}
