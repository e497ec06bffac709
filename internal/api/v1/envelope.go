package v1

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/server/middleware"
)

const msgInternal = "internal server error"

func init() { //nolint:gochecknoinits // huma error factory and decimal encoding are process-wide
	decimal.MarshalJSONWithoutQuotes = true
	huma.NewError = newAPIError
}

// APIError is the error envelope every failed request answers with.
type APIError struct {
	status  int
	OK      bool                `json:"ok"`
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string  { return e.Message }
func (e *APIError) GetStatus() int { return e.status }

// newAPIError replaces huma's RFC 9457 problem details with the envelope.
// Request validation failures are reported as 400, not 422.
func newAPIError(status int, msg string, errs ...error) huma.StatusError {
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	e := &APIError{status: status, Message: msg}
	if status >= http.StatusInternalServerError {
		for _, err := range errs {
			if err != nil {
				log.Error().Err(err).Int("status", status).Msg(msg)
			}
		}
		if status == http.StatusInternalServerError {
			e.Message = msgInternal
		}
		return e
	}

	for _, err := range errs {
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			d := detailer.ErrorDetail()
			e.Errors = append(e.Errors, domain.FieldError{
				Field:   fieldFromLocation(d.Location),
				Message: d.Message,
			})
		}
	}
	return e
}

// fieldFromLocation turns "body.items[0].quantity" into "items[0].quantity".
func fieldFromLocation(loc string) string {
	for _, prefix := range []string{"body.", "query.", "path.", "header."} {
		if rest, ok := strings.CutPrefix(loc, prefix); ok {
			return rest
		}
	}
	return loc
}

// toHTTPError maps a service error onto the envelope. resource names the
// thing being looked up for 404 messages.
func toHTTPError(err error, resource string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return &APIError{status: http.StatusBadRequest, Message: "validation failed", Errors: verr.Fields}
	case errors.Is(err, domain.ErrValidation):
		return &APIError{status: http.StatusBadRequest, Message: "validation failed"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return &APIError{status: http.StatusConflict, Message: "invalid status transition"}
	case errors.Is(err, domain.ErrNotFound):
		return &APIError{status: http.StatusNotFound, Message: resource + " not found"}
	case errors.Is(err, domain.ErrConflict):
		return &APIError{status: http.StatusConflict, Message: resource + " already exists"}
	case errors.Is(err, domain.ErrUnauthorized):
		return &APIError{status: http.StatusUnauthorized, Message: "unauthorized"}
	case errors.Is(err, domain.ErrForbidden):
		return &APIError{status: http.StatusForbidden, Message: "forbidden"}
	default:
		log.Error().Err(err).Str("resource", resource).Msg("request failed")
		return &APIError{status: http.StatusInternalServerError, Message: msgInternal}
	}
}

// Envelope wraps a successful response.
type Envelope[T any] struct {
	OK      bool   `json:"ok"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

func wrap[T any](data T) Envelope[T] {
	return Envelope[T]{OK: true, Data: data}
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// PageEnvelope wraps one page of a listing.
type PageEnvelope[T any] struct {
	OK         bool       `json:"ok"`
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func paged[T any](p domain.Page[T]) PageEnvelope[T] {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return PageEnvelope[T]{
		OK:   true,
		Data: items,
		Pagination: Pagination{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages(),
		},
	}
}

// PageQuery is embedded by listing inputs.
type PageQuery struct {
	Page  int `query:"page" doc:"Page number, starting at 1" default:"1"`
	Limit int `query:"limit" doc:"Page size, 1 to 100" default:"20"`
}

func (q PageQuery) request() domain.PageRequest {
	return domain.PageRequest{Page: q.Page, Limit: q.Limit}
}

// session returns the caller or a 401 when the auth middleware did not run.
func session(ctx context.Context) (middleware.Session, error) {
	s, found := middleware.SessionFromContext(ctx)
	if !found {
		return s, &APIError{status: http.StatusUnauthorized, Message: "authentication required"}
	}
	return s, nil
}

// NewConfig returns the huma configuration shared by every API group: no
// $schema links in bodies, and decimals documented as JSON numbers.
func NewConfig(title string) huma.Config {
	cfg := huma.DefaultConfig(title, "1.0.0")
	cfg.CreateHooks = nil
	cfg.Servers = []*huma.Server{{URL: "/api"}}
	cfg.Components.Schemas.RegisterTypeAlias(reflect.TypeFor[decimal.Decimal](), reflect.TypeFor[float64]())
	return cfg
}

// WithoutDocs disables the OpenAPI and docs routes, for secondary API groups
// mounted on the same router.
func WithoutDocs(cfg huma.Config) huma.Config {
	cfg.OpenAPIPath = ""
	cfg.DocsPath = ""
	cfg.SchemasPath = ""
	return cfg
}
