package mailservice

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-mail/mail/v2"
)

// NewMailer creates a mailer that sends through the SMTP server in cfg.
func NewMailer(cfg SMTPConfig, tp TemplateParser) *Mail {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = 5 * time.Second

	return &Mail{
		dialer: dialer,
		sender: cfg.Sender,
		parser: tp,
	}
}

func (m *Mail) send(recipient string, data any, templateFile string) error {
	rendered, err := m.parser.Render(templateFile, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", strings.TrimSpace(rendered.Subject))
	msg.SetDateHeader("Date", time.Now())
	msg.SetBody("text/plain", rendered.PlainBody)
	msg.AddAlternative("text/html", rendered.HTMLBody)

	// the dialer opens one connection per message
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("could not send %s to %s: %w", templateFile, recipient, err)
	}

	return nil
}
