package webhook

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	billingservice "github.com/marlinkeeper/aquatrack/internal/services/billing"
)

// MockService реализует интерфейс webhook.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

const testSecret = "whsec_test"

// signedHeader подписывает тело так же, как это делает Stripe.
func signedHeader(payload []byte, secret string) string {
	ts := time.Now()
	signature := webhook.ComputeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(signature))
}

func TestWebhookHandler(t *testing.T) {
	payload := []byte(`{"id":"evt_1","api_version":"2024-04-10","type":"invoice.paid","data":{"object":{}}}`)

	tests := []struct {
		name           string
		signature      string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "валидное событие принято",
			signature: signedHeader(payload, testSecret),
			setupMock: func(m *MockService) {
				m.On("ProcessEvent", mock.Anything, mock.MatchedBy(func(e stripe.Event) bool {
					return e.ID == "evt_1"
				})).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"received":true`,
		},
		{
			name:           "неверная подпись отклоняется",
			signature:      signedHeader(payload, "whsec_other"),
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid signature"`,
		},
		{
			name:           "отсутствие подписи отклоняется",
			signature:      "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid signature"`,
		},
		{
			name:      "недоступный журнал возвращает 500",
			signature: signedHeader(payload, testSecret),
			setupMock: func(m *MockService) {
				m.On("ProcessEvent", mock.Anything, mock.Anything).
					Return(fmt.Errorf("billing.ProcessEvent: %w", billingservice.ErrLedger))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"event ledger unavailable"`,
		},
		{
			name:      "прочие ошибки обработки возвращают 500",
			signature: signedHeader(payload, testSecret),
			setupMock: func(m *MockService) {
				m.On("ProcessEvent", mock.Anything, mock.Anything).
					Return(errors.New("unexpected"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"failed to process event"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
			handler := New(logger, mockService, testSecret)

			req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(string(payload)))
			if tt.signature != "" {
				req.Header.Set("Stripe-Signature", tt.signature)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
