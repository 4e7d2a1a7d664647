package services

import (
	"io"

	"royaltyhub/src/config"

	"gopkg.in/gomail.v2"
)

// Mailer delivers a rendered artifact to a recipient list. Failures are
// caller-visible; no retries happen here.
type Mailer interface {
	Send(recipients []string, subject, filename string, attachment []byte) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	return &SMTPMailer{
		dialer: dialer,
		from:   cfg.SMTP.From,
	}
}

func (m *SMTPMailer) Send(recipients []string, subject, filename string, attachment []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", "Please find attached the automatically generated report.")
	msg.Attach(filename, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(attachment)
		return err
	}))

	return m.dialer.DialAndSend(msg)
}
