package mailservice

import (
	"errors"
	"slices"
	"sync"

	"github.com/go-mail/mail/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"

	"github.com/sushihentaime/blogshelf/internal/common"
)

type MockTemplate struct {
	mock.Mock
}

func (m *MockTemplate) Render(name string, data any) (*Message, error) {
	args := m.Called(name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}

type MockDialer struct {
	mock.Mock
}

func (d *MockDialer) DialAndSend(m ...*mail.Message) error {
	args := d.Called(m)
	return args.Error(0)
}

var errMockSend = errors.New("mock send failure")

// MockMailer records every send. The first FailTimes sends fail.
type MockMailer struct {
	mu        sync.Mutex
	FailTimes int
	attempts  int
	sent      []string
}

func (m *MockMailer) send(recipient string, data any, templateFile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	if m.attempts <= m.FailTimes {
		return errMockSend
	}

	m.sent = append(m.sent, recipient)
	return nil
}

func (m *MockMailer) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

func (m *MockMailer) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// MockMessageConsumer delivers whatever is written to Deliveries.
type MockMessageConsumer struct {
	Deliveries chan amqp.Delivery
	Err        error
}

func NewMockMessageConsumer() *MockMessageConsumer {
	return &MockMessageConsumer{Deliveries: make(chan amqp.Delivery, 8)}
}

func (m *MockMessageConsumer) Consume(key common.BindingKey, exchange common.Exchange, queue common.Queue) (<-chan amqp.Delivery, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Deliveries, nil
}

// MockAcknowledger records how each delivery tag was settled.
type MockAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	nacked   []uint64
	rejected []uint64
	settled  chan uint64
}

func NewMockAcknowledger() *MockAcknowledger {
	return &MockAcknowledger{settled: make(chan uint64, 8)}
}

func (a *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acked = append(a.acked, tag)
	a.mu.Unlock()
	a.settled <- tag
	return nil
}

func (a *MockAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	a.mu.Lock()
	a.nacked = append(a.nacked, tag)
	a.mu.Unlock()
	a.settled <- tag
	return nil
}

func (a *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	a.rejected = append(a.rejected, tag)
	a.mu.Unlock()
	a.settled <- tag
	return nil
}

func (a *MockAcknowledger) Acked() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.acked)
}

func (a *MockAcknowledger) Rejected() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.rejected)
}
