package infra

import (
	"fmt"
	"net/smtp"

	"goldledger/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends operator notifications (alert digests) over SMTP.
// Sends go through a circuit breaker so a dead relay fails fast instead of
// tying up worker goroutines.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	breaker  *CircuitBreaker
}

func NewMailer(cfg *config.Config, breaker *CircuitBreaker) *Mailer {
	if breaker == nil {
		breaker = NewCircuitBreaker("smtp", DefaultCBConfig())
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		breaker:  breaker,
	}
}

// Configured reports whether an SMTP relay was set.
func (m *Mailer) Configured() bool { return m.host != "" }

// Breaker exposes the breaker state for the health endpoint.
func (m *Mailer) Breaker() *CircuitBreaker { return m.breaker }

// Send delivers a plain-text message, with an optional HTML alternative.
func (m *Mailer) Send(to []string, subject, text, html string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = to
	e.Subject = subject
	e.Text = []byte(text)
	if html != "" {
		e.HTML = []byte(html)
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return m.breaker.Execute(func() error {
		if err := e.Send(m.addr, auth); err != nil {
			return fmt.Errorf("mailer: send %q: %w", subject, err)
		}
		return nil
	})
}
