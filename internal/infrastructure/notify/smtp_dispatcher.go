package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"

	mail "github.com/go-mail/mail/v2"

	"journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/ports"
)

// MailSender is satisfied by *mail.Dialer.
type MailSender interface {
	DialAndSend(m ...*mail.Message) error
}

type SMTPOptions struct {
	Host          string
	Port          int
	User          string
	Pass          string
	SkipTLSVerify bool
}

// NewSMTPSender builds a dialer that requires STARTTLS.
func NewSMTPSender(opts SMTPOptions) *mail.Dialer {
	port := opts.Port
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(opts.Host, port, opts.User, opts.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         opts.Host,
		InsecureSkipVerify: opts.SkipTLSVerify,
	}
	return d
}

// SMTPDispatcher renders intents and mails them to the recipient's directory address.
type SMTPDispatcher struct {
	sender    MailSender
	directory ports.UserDirectory
	catalog   *Catalog
	from      string
	recent    *recentKeys
}

var _ ports.Dispatcher = (*SMTPDispatcher)(nil)

func NewSMTPDispatcher(sender MailSender, directory ports.UserDirectory, catalog *Catalog, from string) *SMTPDispatcher {
	return &SMTPDispatcher{
		sender:    sender,
		directory: directory,
		catalog:   catalog,
		from:      strings.TrimSpace(from),
		recent:    newRecentKeys(0),
	}
}

func (d *SMTPDispatcher) Dispatch(ctx context.Context, intent editorial.Intent) error {
	if d.from == "" {
		return errors.New("smtp sender address is not configured")
	}
	if d.recent.contains(intent.IdempotencyKey) {
		return nil
	}

	recipient, err := d.directory.GetUser(ctx, intent.RecipientUserID)
	if err != nil {
		return errs.Wrapf(err, "resolve recipient %d", intent.RecipientUserID)
	}
	if recipient.Email == "" {
		return errors.New("recipient has no email address")
	}

	rendered, err := d.catalog.Render(intent)
	if err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetAddressHeader("To", recipient.Email, recipient.Name)
	m.SetHeader("Subject", rendered.Subject)
	m.SetHeader("X-Idempotency-Key", intent.IdempotencyKey)
	if rendered.HTML {
		m.SetBody("text/html", rendered.Body)
	} else {
		m.SetBody("text/plain", rendered.Body)
	}

	if err := d.sender.DialAndSend(m); err != nil {
		return errs.Wrap(err, "send mail")
	}
	d.recent.add(intent.IdempotencyKey)
	return nil
}
