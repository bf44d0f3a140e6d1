// internal/mailer/mock.go
package mailer

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockTransport is an in-process transport for local runs and tests. By
// default every send succeeds; individual addresses can be scripted to
// fail with a fixed detail message.
type MockTransport struct {
	mu       sync.Mutex
	failures map[string]string
	sent     []OutgoingEmail
}

func NewMockTransport() *MockTransport {
	return &MockTransport{failures: make(map[string]string)}
}

var _ Transport = (*MockTransport)(nil)

// FailAddress makes subsequent sends to the address fail with detail.
func (m *MockTransport) FailAddress(address, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[address] = detail
}

// ClearFailures makes all subsequent sends succeed again.
func (m *MockTransport) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]string)
}

// Sent returns a copy of every message handed to the transport.
func (m *MockTransport) Sent() []OutgoingEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutgoingEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockTransport) Send(_ context.Context, msg OutgoingEmail) SendResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if detail, ok := m.failures[msg.To]; ok {
		return SendResult{ErrorKind: ErrorKindProvider, ErrorDetail: detail}
	}
	return SendResult{OK: true, MessageID: uuid.New().String()}
}
