// Package mail delivers the verification emails produced by credential
// registration. Delivery happens off the request path so a slow or broken
// relay never blocks or fails a registration.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through a plain SMTP relay without authentication,
// matching the usual in-cluster relay setup.
type SMTPMailer struct {
	addr   string
	sender string
}

func NewSMTPMailer(addr, sender string) *SMTPMailer {
	return &SMTPMailer{addr: addr, sender: sender}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.sender)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	if err := smtp.SendMail(m.addr, nil, m.sender, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("error sending mail to %s: %w", to, err)
	}
	return nil
}
