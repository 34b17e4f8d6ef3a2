package create

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
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
	"github.com/marlinkeeper/aquatrack/internal/storage/repository"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, userUID string, req models.DummyTank) (int, *entitlement.Result, error) {
	args := m.Called(ctx, userUID, req)
	if res := args.Get(1); res != nil {
		return args.Int(0), res.(*entitlement.Result), args.Error(2)
	}
	return args.Int(0), nil, args.Error(2)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const uid = "4e9a1c8e-6f1b-4f7a-9f2e-9c3d2b1a0001"
	validBody := `{"name":"Living room","volume_liters":120,"water_type":"freshwater"}`

	tests := []struct {
		name           string
		body           string
		withUser       bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "успешное создание аквариума",
			body:     validBody,
			withUser: true,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, uid, mock.MatchedBy(func(req models.DummyTank) bool {
					return req.Name == "Living room" && req.VolumeLiters == 120
				})).Return(7, &entitlement.Result{Allowed: true, CurrentCount: 1, Limit: 3, Tier: models.TierStarter}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"last_added_id":7`,
		},
		{
			name:     "отказ по лимиту тарифа",
			body:     validBody,
			withUser: true,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, uid, mock.Anything).
					Return(0, &entitlement.Result{
						Allowed:      false,
						CurrentCount: 3,
						Limit:        3,
						Tier:         models.TierStarter,
						Message:      "tank limit reached for tier starter",
					}, nil)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"limit":3`,
		},
		{
			name:     "гонка поймана хранилищем",
			body:     validBody,
			withUser: true,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, uid, mock.Anything).
					Return(0, nil, repository.ErrTankLimitReached)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"tank limit reached"`,
		},
		{
			name:           "некорректный json",
			body:           `{"name":`,
			withUser:       true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid request body"`,
		},
		{
			name:           "неизвестный тип воды",
			body:           `{"name":"Reef","volume_liters":200,"water_type":"brackish"}`,
			withUser:       true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "нет пользователя в контексте",
			body:           validBody,
			withUser:       false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"unauthorized"`,
		},
		{
			name:     "ошибка сервиса",
			body:     validBody,
			withUser: true,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, uid, mock.Anything).
					Return(0, nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"could not create tank"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/tanks", strings.NewReader(tt.body))
			if tt.withUser {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, uid)
				req = req.WithContext(ctx)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
