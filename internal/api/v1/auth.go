package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/domain"
)

type RegisterInput struct {
	Body struct {
		TenantName string `json:"tenantName" maxLength:"120" doc:"Business name; its slug identifies the tenant at login"`
		Name       string `json:"name" maxLength:"120" doc:"Owner display name"`
		Email      string `json:"email" maxLength:"255" doc:"Owner email"`
		Password   string `json:"password" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type GrantOutput struct {
	Body Envelope[*auth.Grant]
}

type LoginInput struct {
	Body struct {
		TenantSlug string `json:"tenantSlug" minLength:"1" maxLength:"120" doc:"Tenant slug"`
		Email      string `json:"email" minLength:"1" maxLength:"255" doc:"User email"`
		Password   string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refreshToken" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type AccessToken struct {
	Token string `json:"token"` //nolint:gosec // G117: auth response DTO
}

type RefreshOutput struct {
	Body Envelope[AccessToken]
}

type Me struct {
	UserID   uuid.UUID   `json:"userId"`
	TenantID uuid.UUID   `json:"tenantId"`
	Role     domain.Role `json:"role"`
}

type MeOutput struct {
	Body Envelope[Me]
}

// RegisterAuthRoutes mounts the unauthenticated auth operations.
func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a business and its owner",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RegisterInput) (*GrantOutput, error) {
		grant, err := authSvc.Register(ctx, auth.RegisterInput{
			TenantName: input.Body.TenantName,
			Name:       input.Body.Name,
			Email:      input.Body.Email,
			Password:   input.Body.Password,
		})
		if err != nil {
			if errors.Is(err, auth.ErrTenantExists) {
				return nil, huma.Error409Conflict("a business with that name already exists")
			}
			return nil, toHTTPError(err, "tenant")
		}

		return &GrantOutput{Body: wrap(grant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with email and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*GrantOutput, error) {
		grant, err := authSvc.Login(ctx, input.Body.TenantSlug, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid email or password")
			}
			return nil, toHTTPError(err, "user")
		}

		return &GrantOutput{Body: wrap(grant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		token, err := authSvc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return nil, huma.Error401Unauthorized("invalid or expired refresh token")
			}
			return nil, toHTTPError(err, "user")
		}

		return &RefreshOutput{Body: wrap(AccessToken{Token: token})}, nil
	})
}

// RegisterSessionRoutes mounts operations about the authenticated caller.
func RegisterSessionRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Describe the authenticated caller",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		return &MeOutput{Body: wrap(Me{UserID: s.UserID, TenantID: s.TenantID, Role: s.Role})}, nil
	})
}
