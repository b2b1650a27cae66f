// Package auth — сессионная идентичность через подписанную куку (HS256 JWT).
// Отсутствующая или нечитаемая кука деградирует к фиксированной demo-личности,
// чтобы фронтенд работал без обязательной регистрации.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/infra"
)

// DefaultDemoUser — фиксированная личность для запросов без куки.
const DefaultDemoUser = "demo-user-1"

type ctxKey struct{}

type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	logger     *zap.Logger
}

func NewSessionManager(cfg infra.AuthConfig, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		secret:     []byte(cfg.JWTSecret),
		ttl:        cfg.TokenTTL,
		cookieName: cfg.CookieName,
		logger:     logger.Named("auth"),
	}
}

// Issue подписывает токен сессии и ставит куку.
func (m *SessionManager) Issue(w http.ResponseWriter, userID string) error {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("auth: sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear сбрасывает куку сессии.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware кладет user id из куки в контекст запроса.
// Нечитаемый токен не является ошибкой: личность деградирует к demo.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := DefaultDemoUser

		if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
			if sub, parseErr := m.parse(cookie.Value); parseErr == nil {
				userID = sub
			} else {
				// Legacy-куки хранили user id без подписи
				m.logger.Debug("session cookie is not a valid token, using raw value",
					zap.Error(parseErr))
				userID = cookie.Value
			}
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionManager) parse(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// UserID достает личность из контекста; вне Middleware возвращает demo.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultDemoUser
}
