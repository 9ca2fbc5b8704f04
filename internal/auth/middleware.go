package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/web"
)

type UserLoader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type contextKey struct{}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*domain.User)
	return user, ok && user != nil
}

type Middleware struct {
	tokens *Tokens
	users  UserLoader
	logger *slog.Logger
}

func NewMiddleware(tokens *Tokens, users UserLoader, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, logger: logger}
}

// Require rejects requests without a valid bearer token and loads the
// referenced user into the request context.
func (m *Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			web.WriteError(w, m.logger, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := m.tokens.Verify(raw)
		if err != nil {
			web.WriteError(w, m.logger, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			m.logger.Error("failed to load token user", "error", err, "user_id", userID)
			web.WriteError(w, m.logger, http.StatusInternalServerError, "internal server error")
			return
		}
		if user == nil {
			web.WriteError(w, m.logger, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
