package notify

import (
	"context"
	"fmt"
	"strings"

	"atelier/internal/models"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Notifier tells the admin about a new contact form message.
type Notifier interface {
	NotifyContactMessage(ctx context.Context, msg models.ContactMessage) error
}

// SMTPConfig configures the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Mailer sends notifications by SMTP.
type Mailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewMailer creates a Mailer. Connections are opened per message.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *Mailer) NotifyContactMessage(ctx context.Context, msg models.ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.cfg.From)
	mail.SetHeader("To", m.cfg.To)
	mail.SetHeader("Reply-To", msg.Email)
	mail.SetHeader("Subject", Subject(msg))
	mail.SetBody("text/plain", Body(msg))

	// gomail has no context support; a send outliving ctx finishes in the
	// background and its result is only logged.
	done := make(chan error, 1)
	go func() {
		err := m.dialer.DialAndSend(mail)
		select {
		case <-ctx.Done():
			if err != nil {
				zap.L().Warn("late contact notification failed", zap.String("id", msg.ID), zap.Error(err))
			}
		default:
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send contact notification: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("contact notification not sent: %w", ctx.Err())
	}
}

// LogNotifier writes notifications to the log when no mail server is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyContactMessage(_ context.Context, msg models.ContactMessage) error {
	zap.L().Info("new contact message",
		zap.String("id", msg.ID),
		zap.String("name", msg.Name),
		zap.String("email", msg.Email))
	return nil
}

// Subject is the notification subject line.
func Subject(msg models.ContactMessage) string {
	return fmt.Sprintf("New message from %s", msg.Name)
}

// Body renders the plain-text notification.
func Body(msg models.ContactMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", msg.Name)
	fmt.Fprintf(&b, "Email: %s\n", msg.Email)
	if msg.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", msg.Phone)
	}
	fmt.Fprintf(&b, "Received: %s\n\n", msg.CreatedAt.Format("2006-01-02 15:04 MST"))
	b.WriteString(msg.Message)
	b.WriteString("\n")
	return b.String()
}
