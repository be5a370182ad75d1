// Package email sends transactional mail over SMTP.
package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/vidaplena/clinic-api/internal/config"
)

// Sender delivers transactional mail. Implementations must be safe for
// concurrent use.
type Sender interface {
	SendSubscriptionInvite(to, clientName, planName, acceptURL string) error
	SendAppointmentConfirmation(to, clientName, therapistName, date, startTime string) error
}

type smtpSender struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:    cfg.From,
		baseURL: cfg.BaseURL,
	}
}

func (s *smtpSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *smtpSender) SendSubscriptionInvite(to, clientName, planName, acceptURL string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>You have been invited to the plan <strong>%s</strong>.</p>
		<p><a href="%s">Click here to accept your plan</a>. The link expires soon.</p>
	`, clientName, planName, acceptURL)
	return s.send(to, "Your therapy plan is ready", body)
}

func (s *smtpSender) SendAppointmentConfirmation(to, clientName, therapistName, date, startTime string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your appointment with %s is confirmed for <strong>%s</strong> at <strong>%s</strong>.</p>
	`, clientName, therapistName, date, startTime)
	return s.send(to, "Appointment confirmed", body)
}
