package mailservice

import (
	"context"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/blogshelf/internal/common"
)

type MailService struct {
	mb         common.MessageConsumer
	m          Mailer
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

// Template holds the parsed mail templates by file name.
type Template struct {
	sets map[string]*template.Template
}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	Render(name string, data any) (*Message, error)
}

// SMTPConfig holds the settings of the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}
