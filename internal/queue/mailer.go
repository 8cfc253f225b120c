package queue

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer sends booking confirmation mails.
type Mailer interface {
	SendBookingConfirmation(ev BookingEvent) error
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mails through an SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer returns nil when no host is configured.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Host == "" {
		return nil
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)}
}

func (m *SMTPMailer) SendBookingConfirmation(ev BookingEvent) error {
	msg := ConfirmationMessage(m.cfg.From, ev)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// ConfirmationMessage builds the confirmation mail for ev.
func ConfirmationMessage(from string, ev BookingEvent) *gomail.Message {
	name := ev.UserName
	if name == "" {
		name = "Movie Fan"
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", ev.UserEmail)
	msg.SetHeader("Subject", "Your booking for "+ev.MovieTitle)
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Hi %s,</p><p>Your booking for <b>%s</b> is confirmed.</p>"+
			"<p>Show: %s, %s<br>Seats: %s<br>Total: $%d</p><p>Booking ID: %s</p>",
		name, ev.MovieTitle, ev.ShowTime, ev.ShowDate, strings.Join(ev.Seats, ", "), ev.TotalAmount, ev.BookingID))
	return msg
}
