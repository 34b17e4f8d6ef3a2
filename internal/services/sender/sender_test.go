package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marlinkeeper/aquatrack/internal/lib/smtp"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

type ClientMock struct {
	mock.Mock
	data bytes.Buffer
}

func (m *ClientMock) Mail(from string) error { return m.Called(from).Error(0) }
func (m *ClientMock) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *ClientMock) Data() (io.WriteCloser, error) {
	args := m.Called()
	return nopWriteCloser{&m.data}, args.Error(0)
}
func (m *ClientMock) Quit() error  { return m.Called().Error(0) }
func (m *ClientMock) Close() error { return m.Called().Error(0) }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type TransportMock struct {
	mock.Mock
	client smtp.Client
}

func (m *TransportMock) Connect() (smtp.Client, error) {
	args := m.Called()
	return m.client, args.Error(0)
}
func (m *TransportMock) GetSMTPUser() string { return "reminders@aquatrack.io" }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func reminderBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.ReminderInfo{
		Email:    "neon@example.com",
		Username: "neon",
		TankName: "Reef",
		Title:    "Water change",
		TaskType: "water_change",
		DueDate:  time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return body
}

func TestSendMaintenanceReminder_SendsEmail(t *testing.T) {
	client := new(ClientMock)
	client.On("Mail", "reminders@aquatrack.io").Return(nil)
	client.On("Rcpt", "neon@example.com").Return(nil)
	client.On("Data").Return(nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	transport := &TransportMock{client: client}
	transport.On("Connect").Return(nil)

	svc := NewSenderService(transport, newNoopLogger())
	err := svc.SendMaintenanceReminder(reminderBody(t))

	require.NoError(t, err)
	sent := client.data.String()
	assert.Contains(t, sent, "To: neon@example.com")
	assert.Contains(t, sent, "Water change")
	assert.Contains(t, sent, "02.06.2025")
	client.AssertExpectations(t)
}

func TestSendMaintenanceReminder_BadBody(t *testing.T) {
	svc := NewSenderService(&TransportMock{}, newNoopLogger())
	err := svc.SendMaintenanceReminder([]byte("not json"))
	assert.Error(t, err)
}

func TestSendMaintenanceReminder_ConnectError(t *testing.T) {
	transport := &TransportMock{}
	transport.On("Connect").Return(errors.New("dial tcp: connection refused"))

	svc := NewSenderService(transport, newNoopLogger())
	err := svc.SendMaintenanceReminder(reminderBody(t))
	assert.Error(t, err)
}
