// Package notification delivers operational notifications (check-in
// confirmations, late-arrival notices, credential expiry reminders) over
// email/SMS with template rendering and role/sponsor fan-out. Delivery is
// best-effort: failures are logged and never propagated to callers.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Channel represents the delivery channel of a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Event identifies the notification template to render.
type Event string

const (
	EventCheckInConfirmed   Event = "check-in-confirmed"
	EventCheckOutConfirmed  Event = "check-out-confirmed"
	EventLateCheckIn        Event = "late-check-in"
	EventGeofenceViolation  Event = "geofence-violation"
	EventCredentialReminder Event = "credential-reminder"
	EventCredentialExpired  Event = "credential-expired"
)

// Notification is a single outbound message.
type Notification struct {
	ID        string            `json:"id"`
	Channel   Channel           `json:"channel"`
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body"`
	Event     Event             `json:"event,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// EmailSender sends email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender sends SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Contact is a deliverable address for a user.
type Contact struct {
	UserID  string
	Address string
	Channel Channel
}

// Directory resolves notification recipients. Role lookups are scoped to a
// company; sponsor lookups resolve the contact on file for a client's
// sponsor.
type Directory interface {
	ContactsForRole(ctx context.Context, companyID uuid.UUID, role string) ([]Contact, error)
	SponsorContact(ctx context.Context, clientID uuid.UUID) (*Contact, error)
}

// Template defines a reusable notification template.
type Template struct {
	Event   Event
	Subject string
	Body    string
	Channel Channel
}

// TemplateEngine renders registered templates with {{key}} substitution.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[Event]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[Event]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			Event:   EventCheckInConfirmed,
			Subject: "Visit started for {{client_name}}",
			Body:    "{{caregiver_name}} checked in for the visit with {{client_name}} at {{time}}. EVV status: {{evv_status}}.",
			Channel: ChannelEmail,
		},
		{
			Event:   EventCheckOutConfirmed,
			Subject: "Visit completed for {{client_name}}",
			Body:    "{{caregiver_name}} checked out of the visit with {{client_name}} at {{time}}.",
			Channel: ChannelEmail,
		},
		{
			Event:   EventLateCheckIn,
			Subject: "Late check-in for {{client_name}}",
			Body:    "{{caregiver_name}} checked in {{minutes_late}} minutes after the scheduled start ({{scheduled_start}}).",
			Channel: ChannelEmail,
		},
		{
			Event:   EventGeofenceViolation,
			Subject: "Out-of-range check-in for {{client_name}}",
			Body:    "{{caregiver_name}} checked in {{distance}} m from the client's registered location (allowed {{radius}} m).",
			Channel: ChannelEmail,
		},
		{
			Event:   EventCredentialReminder,
			Subject: "Credential expiring: {{credential_type}}",
			Body:    "{{caregiver_name}}'s {{credential_type}} expires in {{days}} day(s), on {{expires_on}}. Please renew it before the deadline.",
			Channel: ChannelEmail,
		},
		{
			Event:   EventCredentialExpired,
			Subject: "Credential EXPIRED: {{credential_type}}",
			Body:    "{{caregiver_name}}'s {{credential_type}} expired on {{expires_on}}. The caregiver must not be scheduled until it is renewed.",
			Channel: ChannelEmail,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.Event] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.Event] = &t
}

// Render looks up a template by event and performs {{key}} replacement using
// the supplied data map. Keys present in the template but absent from data
// are left as-is.
func (e *TemplateEngine) Render(event Event, data map[string]string) (subject, body string, channel Channel, err error) {
	e.mu.RLock()
	t, ok := e.templates[event]
	e.mu.RUnlock()
	if !ok {
		return "", "", "", fmt.Errorf("template %q not found", event)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, t.Channel, nil
}

// Dispatcher fans notifications out to recipients. The zero-value error
// contract is deliberate: Send* methods log failures and return nothing, so
// a provider outage can never fail the state transition that triggered the
// notification.
type Dispatcher struct {
	email     EmailSender
	sms       SMSSender
	directory Directory
	templates *TemplateEngine
	logger    zerolog.Logger

	queue chan *Notification
	wg    sync.WaitGroup

	mu   sync.RWMutex
	sent []*Notification
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(email EmailSender, sms SMSSender, dir Directory, tpl *TemplateEngine, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		email:     email,
		sms:       sms,
		directory: dir,
		templates: tpl,
		logger:    logger,
	}
}

// Send renders the event template and delivers it to a single recipient.
func (d *Dispatcher) Send(ctx context.Context, recipient string, event Event, data map[string]string) {
	subject, body, channel, err := d.templates.Render(event, data)
	if err != nil {
		d.logger.Error().Err(err).Str("event", string(event)).Msg("render notification template")
		return
	}

	n := &Notification{
		ID:        uuid.New().String(),
		Channel:   channel,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Event:     event,
		Data:      data,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}

	if d.queue != nil {
		select {
		case d.queue <- n:
		default:
			// Queue full: deliver inline rather than drop.
			d.deliver(ctx, n)
		}
		return
	}
	d.deliver(ctx, n)
}

// StartWorker switches the dispatcher to asynchronous delivery through a
// buffered queue drained by a background goroutine. Until it is called,
// Send delivers inline; tests rely on the inline mode for deterministic
// assertions.
func (d *Dispatcher) StartWorker(buffer int) {
	d.queue = make(chan *Notification, buffer)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range d.queue {
			d.deliver(context.Background(), n)
		}
	}()
}

// Close drains any queued notifications and stops the worker.
func (d *Dispatcher) Close() {
	if d.queue == nil {
		return
	}
	close(d.queue)
	d.wg.Wait()
	d.queue = nil
}

// SendToRole delivers the event to every contact holding the role within
// the company.
func (d *Dispatcher) SendToRole(ctx context.Context, companyID uuid.UUID, role string, event Event, data map[string]string) {
	contacts, err := d.directory.ContactsForRole(ctx, companyID, role)
	if err != nil {
		d.logger.Error().Err(err).Str("role", role).Str("event", string(event)).Msg("resolve role recipients")
		return
	}
	for _, contact := range contacts {
		d.Send(ctx, contact.Address, event, data)
	}
}

// SendToSponsor delivers the event to the sponsor on file for the client,
// if any.
func (d *Dispatcher) SendToSponsor(ctx context.Context, clientID uuid.UUID, event Event, data map[string]string) {
	contact, err := d.directory.SponsorContact(ctx, clientID)
	if err != nil {
		d.logger.Error().Err(err).Str("client_id", clientID.String()).Str("event", string(event)).Msg("resolve sponsor contact")
		return
	}
	if contact == nil {
		return
	}
	d.Send(ctx, contact.Address, event, data)
}

func (d *Dispatcher) deliver(ctx context.Context, n *Notification) {
	var sendErr error
	switch n.Channel {
	case ChannelEmail:
		sendErr = d.email.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
	case ChannelSMS:
		sendErr = d.sms.SendSMS(ctx, n.Recipient, n.Body)
	default:
		sendErr = fmt.Errorf("unsupported channel: %s", n.Channel)
	}

	if sendErr != nil {
		n.Status = "failed"
		n.Error = sendErr.Error()
		d.logger.Error().Err(sendErr).
			Str("event", string(n.Event)).
			Str("recipient", n.Recipient).
			Msg("notification delivery failed")
	} else {
		n.Status = "sent"
		sentAt := time.Now().UTC()
		n.SentAt = &sentAt
	}

	d.mu.Lock()
	d.sent = append(d.sent, n)
	d.mu.Unlock()
}

// Sent returns a copy of all notifications processed so far.
func (d *Dispatcher) Sent() []*Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Notification, len(d.sent))
	copy(out, d.sent)
	return out
}

// Stats returns counts of notifications grouped by status.
func (d *Dispatcher) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := make(map[string]int)
	for _, n := range d.sent {
		stats[n.Status]++
	}
	return stats
}

// ---------------------------------------------------------------------------
// Mock senders and directory (test doubles)
// ---------------------------------------------------------------------------

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// SMSCall records a single call to SendSMS.
type SMSCall struct {
	To   string
	Body string
}

// MockSMSSender is a test double for SMSSender.
type MockSMSSender struct {
	mu         sync.Mutex
	calls      []SMSCall
	ShouldFail bool
	FailError  string
}

// SendSMS records the call and optionally returns an error.
func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SMSCall{To: to, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded SMS calls.
func (m *MockSMSSender) Calls() []SMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMSCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// StaticDirectory is an in-memory Directory for tests and development.
type StaticDirectory struct {
	RoleContacts map[string][]Contact
	Sponsors     map[uuid.UUID]Contact
}

func (s *StaticDirectory) ContactsForRole(_ context.Context, _ uuid.UUID, role string) ([]Contact, error) {
	return s.RoleContacts[role], nil
}

func (s *StaticDirectory) SponsorContact(_ context.Context, clientID uuid.UUID) (*Contact, error) {
	c, ok := s.Sponsors[clientID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
