package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frontandrew/parking/internal/delivery/http/middleware"
	"github.com/frontandrew/parking/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CreateTestSection создает тестовую секцию
func CreateTestSection(id int64, name string, capacity int) *domain.Section {
	return &domain.Section{
		ID:       id,
		Name:     name,
		Capacity: capacity,
	}
}

// CreateTestTicket создает тестовый билет
func CreateTestTicket(id int64, ticketType domain.TicketType, status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{
		ID:     id,
		Type:   ticketType,
		Status: status,
	}
}

// CreateAuthContext создает контекст с вызывающим для тестирования
func CreateAuthContext(t *testing.T, userID uuid.UUID, role domain.UserRole, sections ...int64) context.Context {
	t.Helper()
	return middleware.WithCaller(context.Background(), &domain.Caller{
		UserID:            userID,
		Role:              role,
		AllowedSectionIDs: sections,
	})
}

// CreateTestRequest создает запрос с JSON телом. Строка передается как есть.
func CreateTestRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithURLParams добавляет параметры пути chi, как это делает роутер
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// DecodeResponse разбирает JSON ответ
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return response
}

// AssertSuccess проверяет успешный ответ API
func AssertSuccess(t *testing.T, response map[string]interface{}) {
	t.Helper()
	success, ok := response["success"].(bool)
	if !ok || !success {
		t.Errorf("Expected success=true, got %v", response)
	}
}

// AssertError проверяет ошибочный ответ API
func AssertError(t *testing.T, response map[string]interface{}) {
	t.Helper()
	success, ok := response["success"].(bool)
	if !ok || success {
		t.Errorf("Expected success=false, got %v", response)
	}
}
