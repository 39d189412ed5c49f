package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSweepService - мок для SweepService
type MockSweepService struct {
	mock.Mock
}

func (m *MockSweepService) Run(ctx context.Context) (*sweep.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sweep.Result), args.Error(1)
}

// TestAdminHandler_RunSweep тестирует ручной запуск очистки
func TestAdminHandler_RunSweep(t *testing.T) {
	ranAt := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		mockSetup      func(*MockSweepService)
		expectedStatus int
		checkResponse  func(*testing.T, map[string]interface{})
	}{
		{
			name: "брони удалены",
			mockSetup: func(m *MockSweepService) {
				m.On("Run", mock.Anything).Return(&sweep.Result{Candidates: 3, Deleted: 2, Skipped: 1, RanAt: ranAt}, nil)
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp map[string]interface{}) {
				AssertSuccess(t, resp)
				assert.Equal(t, float64(2), resp["data"].(map[string]interface{})["deleted"])
			},
		},
		{
			name: "часть удалений не прошла",
			mockSetup: func(m *MockSweepService) {
				m.On("Run", mock.Anything).
					Return(&sweep.Result{Candidates: 2, Deleted: 1, Skipped: 1, RanAt: ranAt}, errors.New("delete reservation 4: timeout"))
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp map[string]interface{}) {
				AssertSuccess(t, resp)
				assert.Contains(t, resp["error"], "timeout")
			},
		},
		{
			name: "хранилище недоступно",
			mockSetup: func(m *MockSweepService) {
				m.On("Run", mock.Anything).Return(nil, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			checkResponse:  AssertError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockSweepService)
			tt.mockSetup(mockService)

			handler := NewAdminHandler(mockService, logger.NewNoop())
			req := CreateTestRequest(t, http.MethodPost, "/api/v1/admin/sweep", nil)
			w := httptest.NewRecorder()

			handler.RunSweep(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkResponse(t, DecodeResponse(t, w))
			mockService.AssertExpectations(t)
		})
	}
}
