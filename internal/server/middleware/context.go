package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/repik/lavanderia/internal/domain"
)

type contextKey string

const contextKeySession contextKey = "session"

// Session is the authenticated caller of a request.
type Session struct {
	TenantID uuid.UUID   `json:"tenantId"`
	UserID   uuid.UUID   `json:"userId"`
	Role     domain.Role `json:"role"`
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKeySession).(Session)
	return s, ok
}

func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	s, ok := SessionFromContext(ctx)
	return s.TenantID, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	s, ok := SessionFromContext(ctx)
	return s.UserID, ok
}

func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	s, ok := SessionFromContext(ctx)
	return s.Role, ok
}
