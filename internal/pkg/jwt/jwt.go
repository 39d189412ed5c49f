package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims содержит payload токена провайдера идентификации
type Claims struct {
	UserID     uuid.UUID       `json:"sub_id"`
	Role       domain.UserRole `json:"role"`
	Privileges []int64         `json:"privileges,omitempty"` // секции, с которыми может работать пользователь
	jwt.RegisteredClaims
}

// Caller преобразует claims в идентичность вызывающего
func (c *Claims) Caller() *domain.Caller {
	return &domain.Caller{
		UserID:            c.UserID,
		Role:              c.Role,
		AllowedSectionIDs: c.Privileges,
	}
}

// TokenService проверяет токены, выпущенные провайдером идентификации.
// Выпуск токенов нужен только для служебных скриптов и тестов.
type TokenService struct {
	secretKey    string
	issuer       string
	accessExpiry time.Duration
}

// NewTokenService создает новый сервис для работы с токенами
func NewTokenService(secretKey, issuer string, accessExpiry time.Duration) *TokenService {
	return &TokenService{
		secretKey:    secretKey,
		issuer:       issuer,
		accessExpiry: accessExpiry,
	}
}

// GenerateToken выпускает токен для вызывающего
func (ts *TokenService) GenerateToken(caller *domain.Caller) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ts.accessExpiry)

	claims := &Claims{
		UserID:     caller.UserID,
		Role:       caller.Role,
		Privileges: caller.AllowedSectionIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    ts.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(ts.secretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken валидирует JWT токен и возвращает claims
func (ts *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.secretKey), nil
	}, jwt.WithIssuer(ts.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	if claims.UserID == uuid.Nil || !claims.Role.IsValid() {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
