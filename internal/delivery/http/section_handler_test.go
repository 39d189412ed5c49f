package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/section"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSectionService - мок для SectionService
type MockSectionService struct {
	mock.Mock
}

func (m *MockSectionService) Create(ctx context.Context, req *section.CreateSectionRequest) (*domain.Section, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Section), args.Error(1)
}

func (m *MockSectionService) Update(ctx context.Context, id int64, req *section.UpdateSectionRequest) (*domain.Section, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Section), args.Error(1)
}

func (m *MockSectionService) List(ctx context.Context, caller *domain.Caller) ([]*domain.Section, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Section), args.Error(1)
}

func (m *MockSectionService) Get(ctx context.Context, caller *domain.Caller, id int64) (*domain.Section, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Section), args.Error(1)
}

func (m *MockSectionService) Availability(ctx context.Context, caller *domain.Caller, id int64) (domain.Availability, error) {
	args := m.Called(ctx, caller, id)
	return args.Get(0).(domain.Availability), args.Error(1)
}

func (m *MockSectionService) ReservedSlots(ctx context.Context, caller *domain.Caller, id int64) ([]*domain.Reservation, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reservation), args.Error(1)
}

func (m *MockSectionService) Report(ctx context.Context, caller *domain.Caller, id int64, from, to time.Time) (*domain.SectionReport, error) {
	args := m.Called(ctx, caller, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SectionReport), args.Error(1)
}

func (m *MockSectionService) ExportSessions(ctx context.Context, caller *domain.Caller, id int64, from, to time.Time) ([]byte, error) {
	args := m.Called(ctx, caller, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// TestSectionHandler_CreateSection тестирует создание секции
func TestSectionHandler_CreateSection(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockSetup      func(*MockSectionService)
		expectedStatus int
	}{
		{
			name:        "успешное создание",
			requestBody: section.CreateSectionRequest{Name: "A", Capacity: 10},
			mockSetup: func(m *MockSectionService) {
				m.On("Create", mock.Anything, &section.CreateSectionRequest{Name: "A", Capacity: 10}).
					Return(CreateTestSection(1, "A", 10), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "имя занято",
			requestBody: section.CreateSectionRequest{Name: "A", Capacity: 10},
			mockSetup: func(m *MockSectionService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrSectionAlreadyExists)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:        "нулевая вместимость",
			requestBody: section.CreateSectionRequest{Name: "B"},
			mockSetup: func(m *MockSectionService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidSectionData)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "невалидный JSON",
			requestBody:    "{",
			mockSetup:      func(m *MockSectionService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockSectionService)
			tt.mockSetup(mockService)

			handler := NewSectionHandler(mockService, logger.NewNoop())
			req := CreateTestRequest(t, http.MethodPost, "/api/v1/sections", tt.requestBody)
			w := httptest.NewRecorder()

			handler.CreateSection(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

// TestSectionHandler_UpdateSection тестирует изменение секции
func TestSectionHandler_UpdateSection(t *testing.T) {
	capacity := 20

	t.Run("успешное изменение", func(t *testing.T) {
		mockService := new(MockSectionService)
		mockService.On("Update", mock.Anything, int64(3), &section.UpdateSectionRequest{Capacity: &capacity}).
			Return(CreateTestSection(3, "C", 20), nil)

		handler := NewSectionHandler(mockService, logger.NewNoop())
		req := CreateTestRequest(t, http.MethodPatch, "/api/v1/sections/3", map[string]int{"capacity": 20})
		req = WithURLParams(req, map[string]string{"id": "3"})
		w := httptest.NewRecorder()

		handler.UpdateSection(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := DecodeResponse(t, w)
		AssertSuccess(t, resp)
		assert.Equal(t, float64(20), resp["data"].(map[string]interface{})["capacity"])
		mockService.AssertExpectations(t)
	})

	t.Run("невалидный ID", func(t *testing.T) {
		mockService := new(MockSectionService)
		handler := NewSectionHandler(mockService, logger.NewNoop())

		req := CreateTestRequest(t, http.MethodPatch, "/api/v1/sections/abc", map[string]int{"capacity": 20})
		req = WithURLParams(req, map[string]string{"id": "abc"})
		w := httptest.NewRecorder()

		handler.UpdateSection(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

// TestSectionHandler_GetAvailability тестирует запрос свободных мест
func TestSectionHandler_GetAvailability(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name           string
		id             string
		mockSetup      func(*MockSectionService)
		expectedStatus int
		checkResponse  func(*testing.T, map[string]interface{})
	}{
		{
			name: "свободные места",
			id:   "1",
			mockSetup: func(m *MockSectionService) {
				m.On("Availability", mock.Anything, mock.Anything, int64(1)).
					Return(domain.NewAvailability(1, 10, 4, 2), nil)
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp map[string]interface{}) {
				AssertSuccess(t, resp)
				data := resp["data"].(map[string]interface{})
				assert.Equal(t, float64(4), data["available"])
			},
		},
		{
			name: "чужая секция",
			id:   "2",
			mockSetup: func(m *MockSectionService) {
				m.On("Availability", mock.Anything, mock.Anything, int64(2)).
					Return(domain.Availability{}, domain.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
			checkResponse:  AssertError,
		},
		{
			name: "секции нет",
			id:   "9",
			mockSetup: func(m *MockSectionService) {
				m.On("Availability", mock.Anything, mock.Anything, int64(9)).
					Return(domain.Availability{}, domain.ErrSectionNotFound)
			},
			expectedStatus: http.StatusNotFound,
			checkResponse:  AssertError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockSectionService)
			tt.mockSetup(mockService)

			handler := NewSectionHandler(mockService, logger.NewNoop())
			req := CreateTestRequest(t, http.MethodGet, "/api/v1/sections/"+tt.id+"/availability", nil)
			req = req.WithContext(CreateAuthContext(t, userID, domain.RoleSecurity, 1))
			req = WithURLParams(req, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()

			handler.GetAvailability(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkResponse(t, DecodeResponse(t, w))
			mockService.AssertExpectations(t)
		})
	}
}

// TestSectionHandler_GetReport тестирует отчет по выручке
func TestSectionHandler_GetReport(t *testing.T) {
	adminID := uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	t.Run("период из параметров", func(t *testing.T) {
		mockService := new(MockSectionService)
		mockService.On("Report", mock.Anything, mock.Anything, int64(1), from, to).
			Return(&domain.SectionReport{
				SectionID:    1,
				From:         from,
				To:           to,
				Revenue:      decimal.NewFromInt(490000),
				SessionCount: 3,
			}, nil)

		handler := NewSectionHandler(mockService, logger.NewNoop())
		req := CreateTestRequest(t, http.MethodGet,
			"/api/v1/sections/1/report?from=2024-03-01T00:00:00Z&to=2024-03-08T00:00:00Z", nil)
		req = req.WithContext(CreateAuthContext(t, adminID, domain.RoleAdmin))
		req = WithURLParams(req, map[string]string{"id": "1"})
		w := httptest.NewRecorder()

		handler.GetReport(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := DecodeResponse(t, w)
		AssertSuccess(t, resp)
		assert.Equal(t, "490000", resp["data"].(map[string]interface{})["revenue"])
		mockService.AssertExpectations(t)
	})

	t.Run("пустой период передается сервису", func(t *testing.T) {
		mockService := new(MockSectionService)
		mockService.On("Report", mock.Anything, mock.Anything, int64(1), time.Time{}, time.Time{}).
			Return(&domain.SectionReport{SectionID: 1}, nil)

		handler := NewSectionHandler(mockService, logger.NewNoop())
		req := CreateTestRequest(t, http.MethodGet, "/api/v1/sections/1/report", nil)
		req = req.WithContext(CreateAuthContext(t, adminID, domain.RoleAdmin))
		req = WithURLParams(req, map[string]string{"id": "1"})
		w := httptest.NewRecorder()

		handler.GetReport(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("неверный формат даты", func(t *testing.T) {
		mockService := new(MockSectionService)
		handler := NewSectionHandler(mockService, logger.NewNoop())

		req := CreateTestRequest(t, http.MethodGet, "/api/v1/sections/1/report?from=yesterday", nil)
		req = req.WithContext(CreateAuthContext(t, adminID, domain.RoleAdmin))
		req = WithURLParams(req, map[string]string{"id": "1"})
		w := httptest.NewRecorder()

		handler.GetReport(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		AssertError(t, DecodeResponse(t, w))
	})
}

// TestSectionHandler_ExportSessions тестирует выгрузку в XLSX
func TestSectionHandler_ExportSessions(t *testing.T) {
	adminID := uuid.New()
	file := []byte("PK\x03\x04workbook")

	mockService := new(MockSectionService)
	mockService.On("ExportSessions", mock.Anything, mock.Anything, int64(5), time.Time{}, time.Time{}).
		Return(file, nil)

	handler := NewSectionHandler(mockService, logger.NewNoop())
	req := CreateTestRequest(t, http.MethodGet, "/api/v1/sections/5/export", nil)
	req = req.WithContext(CreateAuthContext(t, adminID, domain.RoleAdmin))
	req = WithURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	handler.ExportSessions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "section-5-sessions.xlsx")
	assert.Equal(t, file, w.Body.Bytes())
	mockService.AssertExpectations(t)
}
