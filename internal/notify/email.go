package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer часть *sendgrid.Client, нужная для отправки писем
type Mailer interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailDeliverer дублирует уведомление письмом через SendGrid
type EmailDeliverer struct {
	mailer    Mailer
	fromEmail string
	fromName  string
	logger    *zap.Logger
}

func NewEmailDeliverer(mailer Mailer, fromEmail, fromName string, logger *zap.Logger) *EmailDeliverer {
	return &EmailDeliverer{
		mailer:    mailer,
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    logger,
	}
}

// NewSendGridDeliverer создаёт EmailDeliverer с клиентом SendGrid
func NewSendGridDeliverer(apiKey, fromEmail, fromName string, logger *zap.Logger) *EmailDeliverer {
	return NewEmailDeliverer(sendgrid.NewSendClient(apiKey), fromEmail, fromName, logger)
}

func (d *EmailDeliverer) Name() string { return "email" }

func (d *EmailDeliverer) Deliver(ctx context.Context, account *model.Account, n *model.Notification) error {
	if account.Email == "" {
		return nil
	}

	from := mail.NewEmail(d.fromName, d.fromEmail)
	to := mail.NewEmail(account.DisplayName, account.Email)
	htmlContent := fmt.Sprintf("<p><strong>%s</strong></p><p>%s</p>",
		html.EscapeString(n.Title), html.EscapeString(n.Message))

	message := mail.NewSingleEmail(from, n.Title, to, n.Message, htmlContent)
	resp, err := d.mailer.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp != nil && resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send email: sendgrid returned status %d", resp.StatusCode)
	}

	d.logger.Debug("Email notification sent",
		zap.String("notification_id", n.ID.String()),
		zap.String("recipient", account.UID.String()),
	)

	return nil
}
