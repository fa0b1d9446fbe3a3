package guardian

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

// EmailSender delivers one HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type NotificationDispatcher interface {
	// Send emails the alert to the chatbot owner. It returns false on any
	// failure and never retries.
	Send(ctx context.Context, alert *types.GuardianAlert) bool
}

type notificationDispatcher struct {
	log     *logger.Logger
	users   repos.UserRepo
	alerts  repos.GuardianAlertRepo
	email   EmailSender
	sms     SMSSender
	catalog catalog
	cfg     Config
	metrics Metrics
	now     func() time.Time
}

func NewNotificationDispatcher(
	log *logger.Logger,
	users repos.UserRepo,
	alerts repos.GuardianAlertRepo,
	email EmailSender,
	sms SMSSender,
	cfg Config,
	metrics Metrics,
) (NotificationDispatcher, error) {
	cat, err := loadCatalog(localesYAML)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &notificationDispatcher{
		log:     log.With("service", "NotificationDispatcher"),
		users:   users,
		alerts:  alerts,
		email:   email,
		sms:     sms,
		catalog: cat,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (d *notificationDispatcher) Send(ctx context.Context, alert *types.GuardianAlert) bool {
	if alert == nil {
		return false
	}
	log := d.log.With("alert_id", alert.ID, "user_id", alert.UserID)

	if d.email == nil {
		log.Warn("No email sender configured, alert notification skipped")
		d.metrics.NotificationSent(ChannelEmail, false)
		return false
	}

	dbc := dbctx.Context{Ctx: ctx}
	owner, err := d.users.GetByID(dbc, alert.UserID)
	if err != nil {
		log.Error("Loading alert owner failed", "error", err)
		d.metrics.NotificationSent(ChannelEmail, false)
		return false
	}
	if owner.Email == "" {
		log.Warn("Alert owner has no email address")
		d.metrics.NotificationSent(ChannelEmail, false)
		return false
	}

	strs := d.catalog.lookup(owner.PreferredLanguage())
	subject, html, err := d.renderAlert(strs, owner, alert)
	if err != nil {
		log.Error("Rendering alert email failed", "error", err)
		d.metrics.NotificationSent(ChannelEmail, false)
		return false
	}

	if err := d.email.SendEmail(ctx, owner.Email, subject, html); err != nil {
		log.Error("Sending alert email failed", "error", err, "email", owner.Email)
		d.metrics.NotificationSent(ChannelEmail, false)
		return false
	}

	sentAt := d.now().UTC()
	if err := d.alerts.UpdateFields(dbc, alert.ID, map[string]interface{}{
		"email_sent":    true,
		"email_sent_at": sentAt,
	}); err != nil {
		log.Error("Recording email delivery failed", "error", err)
		d.metrics.NotificationSent(ChannelEmail, false)
		return false
	}
	alert.EmailSent = true
	alert.EmailSentAt = &sentAt
	d.metrics.NotificationSent(ChannelEmail, true)
	log.Info("Alert email sent", "severity", alert.Severity)

	if alert.Severity == types.SeverityCritical {
		d.sendSMS(ctx, log, strs, owner, alert)
	}
	return true
}

// sendSMS is best effort and never affects Send's result.
func (d *notificationDispatcher) sendSMS(ctx context.Context, log *logger.Logger, strs localeStrings, owner *types.User, alert *types.GuardianAlert) {
	if d.sms == nil || owner.Phone == "" || strs.SMS == "" {
		return
	}
	body := fill(strs.SMS, map[string]string{
		"severity":     upper(alert.Severity),
		"risk":         formatPercent(alert.RiskScore),
		"conversation": shortID(alert.ConversationID),
		"action":       alert.SuggestedAction,
	})
	if err := d.sms.SendSMS(ctx, owner.Phone, body); err != nil {
		log.Warn("Sending alert SMS failed", "error", err, "phone", owner.Phone)
		d.metrics.NotificationSent(ChannelSMS, false)
		return
	}
	sentAt := d.now().UTC()
	if err := d.alerts.UpdateFields(dbctx.Context{Ctx: ctx}, alert.ID, map[string]interface{}{
		"sms_sent":    true,
		"sms_sent_at": sentAt,
	}); err != nil {
		log.Warn("Recording SMS delivery failed", "error", err)
	} else {
		alert.SMSSent = true
		alert.SMSSentAt = &sentAt
	}
	d.metrics.NotificationSent(ChannelSMS, true)
}

func (d *notificationDispatcher) renderAlert(strs localeStrings, owner *types.User, alert *types.GuardianAlert) (string, string, error) {
	severity := upper(alert.Severity)
	convID := alert.ConversationID.String()
	created := alert.CreatedAt
	if created.IsZero() {
		created = d.now()
	}

	subject := fill(strs.Alert.Subject, map[string]string{
		"severity":     severity,
		"conversation": shortID(alert.ConversationID),
	})
	html, err := render(alertEmailTmpl, alertEmailData{
		S:               strs.Alert,
		Intro:           fill(strs.Alert.Intro, map[string]string{"name": displayName(owner.FirstName, owner.Email)}),
		Color:           severityColor(alert.Severity),
		Severity:        severity,
		Risk:            formatPercent(alert.RiskScore),
		ConversationID:  convID,
		Timestamp:       created.In(d.cfg.Location).Format("02/01/2006 15:04"),
		Message:         alert.Message,
		SuggestedAction: alert.SuggestedAction,
		Summary:         alert.ConversationSummary,
		DashboardURL:    d.cfg.AppBaseURL + d.cfg.DashboardPath,
	})
	if err != nil {
		return "", "", fmt.Errorf("render alert email: %w", err)
	}
	return subject, html, nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
