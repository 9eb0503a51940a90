package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPGateway delivers notifications over SMTP.
type SMTPGateway struct {
	client *mail.Client
}

// SMTPOptions configures the SMTP connection.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewSMTPGateway creates a gateway that dials the configured relay on each
// send. No connection is held between dispatches.
func NewSMTPGateway(opts SMTPOptions) (*SMTPGateway, error) {
	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
		)
	}
	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("notify: create smtp client: %w", err)
	}
	return &SMTPGateway{client: client}, nil
}

// HealthCheck dials the relay and closes the connection.
func (g *SMTPGateway) HealthCheck(ctx context.Context) error {
	if err := g.client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("notify: dial smtp relay: %w", err)
	}
	return g.client.Close()
}

// Send renders the template and delivers one message.
func (g *SMTPGateway) Send(ctx context.Context, from Sender, msg Message) error {
	subject, body, err := RenderTemplate(msg)
	if err != nil {
		return err
	}

	m := mail.NewMsg()
	if err := m.FromFormat(from.Name, from.Address); err != nil {
		return fmt.Errorf("notify: sender address: %w", err)
	}
	if err := m.AddToFormat(msg.RecipientName, msg.RecipientEmail); err != nil {
		return fmt.Errorf("notify: recipient address: %w", err)
	}
	if from.ReplyTo != "" {
		if err := m.ReplyTo(from.ReplyTo); err != nil {
			return fmt.Errorf("notify: reply-to address: %w", err)
		}
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	if err := g.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("notify: send %s to %s: %w", msg.Template, msg.RecipientEmail, err)
	}
	return nil
}
