package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luxscaler/internal/config"
	"luxscaler/internal/models/db_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

type NotificationKind string

const (
	NotifyLowBalance    NotificationKind = "LOW_BALANCE"
	NotifySecurityAlert NotificationKind = "SECURITY_ALERT"
	NotifyNewsletter    NotificationKind = "NEWSLETTER"
)

type Notification struct {
	Kind           NotificationKind
	UserID         uuid.UUID
	RecipientEmail string
	Data           map[string]any
}

type message struct {
	subject string
	body    string
	ctaText string
	ctaURL  string
}

type siteInfo struct {
	baseURL string
	appName string
}

type messageBuilder func(n Notification, recipient *db_models.Profile, site siteInfo) message

type NotificationService interface {
	// Dispatch sends exactly one email. Nothing is queued or retried.
	Dispatch(ctx context.Context, n Notification) error
}

type notificationService struct {
	directory repositories.AccountDirectory
	mail      IMailService
	site      siteInfo
	log       *zap.Logger
	templates map[NotificationKind]messageBuilder
}

func NewNotificationService(directory repositories.AccountDirectory, mail IMailService, cfg *config.Config, log *zap.Logger) NotificationService {
	return &notificationService{
		directory: directory,
		mail:      mail,
		site:      siteInfo{baseURL: cfg.App.BaseURL, appName: cfg.App.Name},
		log:       log,
		templates: map[NotificationKind]messageBuilder{
			NotifyLowBalance:    lowBalanceMessage,
			NotifySecurityAlert: securityAlertMessage,
			NotifyNewsletter:    newsletterMessage,
		},
	}
}

func ParseNotificationKind(s string) (NotificationKind, error) {
	k := NotificationKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case NotifyLowBalance, NotifySecurityAlert, NotifyNewsletter:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", utils.ErrInvalidNotificationType, s)
}

func (s *notificationService) Dispatch(ctx context.Context, n Notification) error {
	build, ok := s.templates[n.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", utils.ErrInvalidNotificationType, n.Kind)
	}

	to, profile, err := s.resolveRecipient(ctx, n)
	if err != nil {
		return err
	}

	msg := build(n, profile, s.site)
	if err := s.mail.SendMailToNotifyUser(to, msg.subject, msg.body, msg.ctaText, msg.ctaURL); err != nil {
		return err
	}

	s.log.Info("notification sent", zap.String("kind", string(n.Kind)), zap.String("to", to))
	return nil
}

// resolveRecipient prefers the direct address and falls back to the account.
// With a direct address the account only personalizes the message, so a
// failed lookup is logged and the mail still goes out.
func (s *notificationService) resolveRecipient(ctx context.Context, n Notification) (string, *db_models.Profile, error) {
	direct := strings.TrimSpace(n.RecipientEmail)

	var profile *db_models.Profile
	if n.UserID != uuid.Nil {
		p, err := s.directory.FindById(ctx, n.UserID)
		switch {
		case err != nil && direct == "":
			return "", nil, fmt.Errorf("lookup recipient: %w", err)
		case err != nil:
			s.log.Warn("recipient account lookup failed, using direct address",
				zap.String("user_id", n.UserID.String()), zap.Error(err))
		default:
			profile = p
		}
	}

	if direct != "" {
		return direct, profile, nil
	}
	if profile != nil && profile.Email != "" {
		return profile.Email, profile, nil
	}
	if n.UserID != uuid.Nil {
		return "", nil, fmt.Errorf("%w: no account %s", utils.ErrUnresolvedRecipient, n.UserID)
	}
	return "", nil, fmt.Errorf("%w: user_id or recipient_email is required", utils.ErrUnresolvedRecipient)
}

// ---- templates ----

func dataString(data map[string]any, key, fallback string) string {
	if v, ok := data[key]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return fallback
}

func lowBalanceMessage(n Notification, p *db_models.Profile, site siteInfo) message {
	balance := dataString(n.Data, "balance", "")
	if balance == "" && p != nil {
		balance = fmt.Sprint(p.Tokens)
	}
	body := "Your token balance is running low."
	if balance != "" {
		body = fmt.Sprintf("Your token balance is running low: %s tokens left. Top up to keep enhancing your photos.", balance)
	}
	return message{
		subject: "Your token balance is low",
		body:    body,
		ctaText: "Buy tokens",
		ctaURL:  site.baseURL + "/pricing",
	}
}

func securityAlertMessage(n Notification, _ *db_models.Profile, site siteInfo) message {
	event := dataString(n.Data, "event", "a security-relevant change")
	body := fmt.Sprintf("We noticed %s on your account", event)
	if ip := dataString(n.Data, "ip", ""); ip != "" {
		body += " from " + ip
	}
	body += ". If this was not you, reset your password right away."
	return message{
		subject: "Security alert",
		body:    body,
		ctaText: "Review account",
		ctaURL:  site.baseURL + "/account/security",
	}
}

func newsletterMessage(n Notification, _ *db_models.Profile, site siteInfo) message {
	return message{
		subject: dataString(n.Data, "subject", "News from "+site.appName),
		body:    dataString(n.Data, "body", ""),
		ctaText: dataString(n.Data, "cta_text", ""),
		ctaURL:  dataString(n.Data, "cta_url", ""),
	}
}
