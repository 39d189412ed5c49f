package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/config"
	"github.com/frontandrew/parking/internal/pkg/jwt"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/section"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type routerFixture struct {
	handler  http.Handler
	tokens   *jwt.TokenService
	sections *MockSectionService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	log := logger.NewNoop()
	tokens := jwt.NewTokenService("test-secret", "test-identity", time.Hour)
	sections := new(MockSectionService)

	cfg := &config.Config{
		Metrics: config.MetricsConfig{Enabled: true},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	}

	rt := NewRouter(
		NewParkingHandler(new(MockParkingService), log),
		NewSectionHandler(sections, log),
		NewTicketHandler(new(MockTicketService), log),
		NewPricingHandler(new(MockPricingService), log),
		NewAdminHandler(new(MockSweepService), log),
		tokens,
		cfg,
		log,
	)

	return &routerFixture{handler: rt.Setup(), tokens: tokens, sections: sections}
}

func (f *routerFixture) token(t *testing.T, role domain.UserRole, sections ...int64) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(&domain.Caller{
		UserID:            uuid.New(),
		Role:              role,
		AllowedSectionIDs: sections,
	})
	require.NoError(t, err)
	return token
}

func TestRouter_PublicEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_Authorization(t *testing.T) {
	f := newRouterFixture(t)
	f.sections.On("Create", mock.Anything, &section.CreateSectionRequest{Name: "A", Capacity: 10}).
		Return(CreateTestSection(1, "A", 10), nil)
	f.sections.On("List", mock.Anything, mock.MatchedBy(func(c *domain.Caller) bool {
		return c.Role == domain.RoleSecurity && len(c.AllowedSectionIDs) == 1 && c.AllowedSectionIDs[0] == 2
	})).Return([]*domain.Section{CreateTestSection(2, "B", 5)}, nil)

	tests := []struct {
		name           string
		method         string
		path           string
		authHeader     string
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "без токена",
			method:         http.MethodGet,
			path:           "/api/v1/sections",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "неверный формат заголовка",
			method:         http.MethodGet,
			path:           "/api/v1/sections",
			authHeader:     "Token abc",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "поддельный токен",
			method:         http.MethodGet,
			path:           "/api/v1/sections",
			authHeader:     "Bearer not-a-jwt",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "охранник видит свои секции",
			method:         http.MethodGet,
			path:           "/api/v1/sections",
			authHeader:     "Bearer " + f.token(t, domain.RoleSecurity, 2),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "охранник не создает секции",
			method:         http.MethodPost,
			path:           "/api/v1/sections",
			authHeader:     "Bearer " + f.token(t, domain.RoleSecurity, 2),
			body:           section.CreateSectionRequest{Name: "A", Capacity: 10},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "пользователь не запускает очистку",
			method:         http.MethodPost,
			path:           "/api/v1/admin/sweep",
			authHeader:     "Bearer " + f.token(t, domain.RoleUser),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "администратор создает секцию",
			method:         http.MethodPost,
			path:           "/api/v1/sections",
			authHeader:     "Bearer " + f.token(t, domain.RoleAdmin),
			body:           section.CreateSectionRequest{Name: "A", Capacity: 10},
			expectedStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateTestRequest(t, tt.method, tt.path, tt.body)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			f.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	f.sections.AssertExpectations(t)
}
