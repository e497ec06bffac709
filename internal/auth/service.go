package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repik/lavanderia/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = fmt.Errorf("auth: invalid credentials: %w", domain.ErrUnauthorized)
	ErrTenantExists       = fmt.Errorf("auth: a business with that name already exists: %w", domain.ErrConflict)
)

const minPasswordLen = 6

// Grant is the result of a successful register or login.
type Grant struct {
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         *domain.User   `json:"user"`
	Tenant       *domain.Tenant `json:"tenant"`
}

// Service provides authentication and authorization operations.
type Service struct {
	store      domain.Store
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new auth service.
func NewService(store domain.Store, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      store,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// RegisterInput describes a new business and its owner.
type RegisterInput struct {
	TenantName string
	Name       string
	Email      string
	Password   string
}

// Register creates a tenant and its OWNER user in one transaction and signs
// the owner in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Grant, error) {
	in.TenantName = strings.TrimSpace(in.TenantName)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	verr := &domain.ValidationError{}
	slug := domain.Slugify(in.TenantName)
	if len([]rune(in.TenantName)) < 2 || slug == "" {
		verr.Add("tenantName", "must be at least 2 characters")
	}
	if len([]rune(in.Name)) < 2 {
		verr.Add("name", "must be at least 2 characters")
	}
	if !strings.Contains(in.Email, "@") {
		verr.Add("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLen {
		verr.Add("password", "must be at least 6 characters")
	}
	if err := verr.Err(); err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	if _, err := s.store.Tenants().GetBySlug(ctx, slug); err == nil {
		return nil, fmt.Errorf("auth.Register: %w", ErrTenantExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	now := time.Now()
	tenant := &domain.Tenant{
		ID:        uuid.New(),
		Name:      in.TenantName,
		Slug:      slug,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := &domain.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         domain.RoleOwner,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.InTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return ErrTenantExists
			}
			return err
		}
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	grant, err := s.grant(user, tenant)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	return grant, nil
}

// dummyHash is verified against when no user matches, so unknown emails cost
// the same argon2 work as wrong passwords.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("lavanderia-unknown-user")
	if err != nil {
		panic(fmt.Sprintf("auth: hashing dummy password: %v", err))
	}
	return hash
})

// Login validates credentials within the tenant identified by tenantSlug and
// returns access + refresh JWT tokens. Lookup failures other than not found
// are returned as is.
func (s *Service) Login(ctx context.Context, tenantSlug, email, password string) (*Grant, error) {
	tenant, err := s.store.Tenants().GetBySlug(ctx, strings.TrimSpace(tenantSlug))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	var user *domain.User
	if tenant != nil && tenant.IsActive {
		user, err = s.store.Users().GetByEmail(ctx, tenant.ID, normalizeEmail(email))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("auth.Login: %w", err)
		}
	}

	hash := dummyHash()
	if user != nil {
		hash = user.PasswordHash
	}
	if ok := verifyPassword(password, hash); !ok || user == nil || !user.IsActive {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	grant, err := s.grant(user, tenant)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	return grant, nil
}

// RefreshToken validates a refresh token and issues a new access token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	if claims.TokenType != TokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	tenantID, userID, err := claims.IDs()
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	// Verify the user is still active and fetch the current role.
	user, err := s.store.Users().GetByID(ctx, tenantID, userID)
	if err != nil || !user.IsActive {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, user.TenantID, user.ID, user.Role, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return newAccess, nil
}

func (s *Service) grant(user *domain.User, tenant *domain.Tenant) (*Grant, error) {
	access, err := IssueAccessToken(s.jwtSecret, user.TenantID, user.ID, user.Role, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := IssueRefreshToken(s.jwtSecret, user.TenantID, user.ID, user.Role, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Grant{AccessToken: access, RefreshToken: refresh, User: user, Tenant: tenant}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
