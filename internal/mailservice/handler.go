package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/sushihentaime/blogshelf/internal/common"
)

const (
	welcomeTemplate = "welcome_email.html"

	defaultMaxRetries = 5
	defaultBaseDelay  = 500 * time.Millisecond
)

func NewMailService(mb common.MessageConsumer, cfg SMTPConfig, logger *slog.Logger) (*MailService, error) {
	tp, err := NewTemplate()
	if err != nil {
		return nil, err
	}

	return newMailService(mb, NewMailer(cfg, tp), logger), nil
}

func newMailService(mb common.MessageConsumer, m Mailer, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:         mb,
		m:          m,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SendWelcomeEmail starts consuming user.created events and mails every new user a welcome
// message. It returns once the consumer is registered.
func (s *MailService) SendWelcomeEmail() error {
	msgs, err := s.mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				s.handle(msg)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendWelcomeEmail due to context cancellation")
				return
			}
		}
	}()

	return nil
}

func (s *MailService) handle(msg amqp.Delivery) {
	var event common.UserCreatedEvent

	err := json.Unmarshal(msg.Body, &event)
	if err != nil || event.Email == "" {
		// Rejected deliveries are dead-lettered to common.UserDeadLetterQueue.
		s.logger.Error("could not unmarshal message", slog.String("message_id", msg.MessageId), slog.String("body", string(msg.Body)))
		msg.Reject(false)
		return
	}

	payload := struct {
		Name  string
		Email string
	}{
		Name:  event.Name,
		Email: event.Email,
	}

	// using exponential backoff with jitter
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err = s.m.send(event.Email, payload, welcomeTemplate)
		if err == nil {
			s.logger.Info("welcome email sent", slog.String("email", event.Email))
			msg.Ack(false)
			return
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying welcome email", slog.String("email", event.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			msg.Nack(false, true)
			return
		}
	}

	s.logger.Error("could not send welcome email", slog.String("email", event.Email), slog.String("error", err.Error()))
	msg.Ack(false)
}

// Close stops the consumer and waits for the message in flight.
func (s *MailService) Close() {
	s.cancel()
	s.wg.Wait()
}
