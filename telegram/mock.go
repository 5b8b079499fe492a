package telegram

import (
	"context"
	"log/slog"
)

// MockSender logs actions instead of calling the Bot API. Used for local
// development when no bot token is configured, and by tests to observe the
// exact action sequence.
type MockSender struct {
	logger *slog.Logger
	nextID int64

	// Sent, Edited and Deleted record the calls in order.
	Sent    []MockMessage
	Edited  []MockMessage
	Deleted []int64
}

// MockMessage captures one send or edit call.
type MockMessage struct {
	ID     int64
	Text   string
	Silent bool
}

// NewMockSender creates a mock transport.
func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger}
}

// Send records the message and returns a fresh id.
func (m *MockSender) Send(_ context.Context, text string, silent bool) (int64, error) {
	m.nextID++
	m.Sent = append(m.Sent, MockMessage{ID: m.nextID, Text: text, Silent: silent})
	m.logger.Info("MOCK MESSAGE", "message_id", m.nextID, "silent", silent, "text_length", len(text))
	return m.nextID, nil
}

// Edit records the edit.
func (m *MockSender) Edit(_ context.Context, messageID int64, text string) error {
	m.Edited = append(m.Edited, MockMessage{ID: messageID, Text: text})
	m.logger.Info("MOCK EDIT", "message_id", messageID, "text_length", len(text))
	return nil
}

// Delete records the deletion.
func (m *MockSender) Delete(_ context.Context, messageID int64) error {
	m.Deleted = append(m.Deleted, messageID)
	m.logger.Info("MOCK DELETE", "message_id", messageID)
	return nil
}
