package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marlinkeeper/aquatrack/internal/http/middlewarectx"
	"github.com/marlinkeeper/aquatrack/internal/models"
	assistantservice "github.com/marlinkeeper/aquatrack/internal/services/assistant"
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
)

// MockService реализует интерфейс chat.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Chat(ctx context.Context, userUID, role string, tankID int, question string) (*assistantservice.Reply, *entitlement.Result, error) {
	args := m.Called(ctx, userUID, role, tankID, question)
	var reply *assistantservice.Reply
	if res := args.Get(0); res != nil {
		reply = res.(*assistantservice.Reply)
	}
	var check *entitlement.Result
	if res := args.Get(1); res != nil {
		check = res.(*entitlement.Result)
	}
	return reply, check, args.Error(2)
}

func TestChatHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const uid = "4e9a1c8e-6f1b-4f7a-9f2e-9c3d2b1a0001"

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный ответ ассистента",
			body: `{"tank_id":3,"question":"Why is the water cloudy?"}`,
			setupMock: func(m *MockService) {
				m.On("Chat", mock.Anything, uid, "user", 3, "Why is the water cloudy?").
					Return(&assistantservice.Reply{Answer: "Likely a bacterial bloom."},
						&entitlement.Result{Allowed: true, CurrentCount: 5, Limit: 50, Tier: models.TierPlus}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"answer":"Likely a bacterial bloom."`,
		},
		{
			name: "лимит сообщений исчерпан",
			body: `{"question":"One more question"}`,
			setupMock: func(m *MockService) {
				m.On("Chat", mock.Anything, uid, "user", 0, "One more question").
					Return(nil, &entitlement.Result{
						Allowed:      false,
						CurrentCount: 10,
						Limit:        10,
						Tier:         models.TierStarter,
						Message:      "daily limit of AI messages reached for tier starter",
					}, nil)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"allowed":false`,
		},
		{
			name: "чужой аквариум",
			body: `{"tank_id":9,"question":"How are my fish?"}`,
			setupMock: func(m *MockService) {
				m.On("Chat", mock.Anything, uid, "user", 9, "How are my fish?").
					Return(nil, nil, assistantservice.ErrNotOwner)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"tank belongs to another user"`,
		},
		{
			name:           "пустой вопрос",
			body:           `{"tank_id":3}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name: "ассистент недоступен",
			body: `{"question":"Hello"}`,
			setupMock: func(m *MockService) {
				m.On("Chat", mock.Anything, uid, "user", 0, "Hello").
					Return(nil, nil, errors.New("llm timeout"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"assistant is unavailable"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/assistant/chat", strings.NewReader(tt.body))
			ctx := context.WithValue(req.Context(), middlewarectx.UserUID, uid)
			ctx = context.WithValue(ctx, middlewarectx.Role, "user")
			req = req.WithContext(ctx)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
