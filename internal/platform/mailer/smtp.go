// Package mailer delivers outgoing mail over SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/wneessen/go-mail"
)

type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

func NewSMTPMailer(host string, port int, username, password, from, fromName string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

// BuildMessage turns a queued job into a go-mail message.
func (m *SMTPMailer) BuildMessage(job model.MailJob) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(job.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", job.To, err)
	}
	msg.Subject(job.Subject)
	msg.SetBodyString(mail.TypeTextHTML, job.HTMLBody)
	return msg, nil
}

func (m *SMTPMailer) Send(ctx context.Context, job model.MailJob) error {
	msg, err := m.BuildMessage(job)
	if err != nil {
		return err
	}

	opts := []mail.Option{mail.WithPort(m.port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", job.To, err)
	}
	return nil
}
