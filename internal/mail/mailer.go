package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/taskdeck/taskdeck-backend/config"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer, or a log-only mailer when no SMTP host is configured.
func New(cfg config.MailConfig) Mailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends through an SMTP relay. Repeated failures open the breaker and
// further sends fail fast until it half-opens again.
type SMTPMailer struct {
	addr    string
	from    string
	auth    smtp.Auth
	send    sendFunc
	breaker *gobreaker.CircuitBreaker
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.From,
		auth: auth,
		send: smtp.SendMail,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "smtp",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.WithField("breaker", name).Warnf("circuit breaker %s -> %s", from, to)
			},
		}),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail: recipient required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := []byte("Subject: " + msg.Subject + "\r\n" +
		"From: " + m.from + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		msg.HTML + "\r\n")

	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.send(m.addr, m.auth, m.from, []string{msg.To}, body)
	})
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer only logs messages. Used in development and when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail (not sent, smtp disabled)")
	return nil
}
