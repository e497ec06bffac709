package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/repik/lavanderia/internal/clients"
	"github.com/repik/lavanderia/internal/domain"
)

const msgPhoneTaken = "a client with that phone already exists"

type CreateClientInput struct {
	Body struct {
		Name  string `json:"name" maxLength:"120" doc:"Client name"`
		Phone string `json:"phone" maxLength:"40" doc:"Phone, unique per business"`
		Email string `json:"email,omitempty" maxLength:"255" doc:"Email"`
		Notes string `json:"notes,omitempty" maxLength:"1000" doc:"Free-form notes"`
	}
}

type ClientOutput struct {
	Body Envelope[*domain.Client]
}

type ResolveClientInput struct {
	Body struct {
		Name  string `json:"name" maxLength:"120" doc:"Name used when the client is new"`
		Phone string `json:"phone" maxLength:"40" doc:"Phone to look up"`
	}
}

type ListClientsInput struct {
	Search string `query:"search" doc:"Name or phone substring"`
	PageQuery
}

type ListClientsOutput struct {
	Body PageEnvelope[*domain.Client]
}

type GetClientInput struct {
	ID uuid.UUID `path:"id" doc:"Client ID"`
}

// ClientDetail is a client plus its latest orders.
type ClientDetail struct {
	domain.Client
	RecentOrders []*domain.Order `json:"recentOrders"`
}

type ClientDetailOutput struct {
	Body Envelope[ClientDetail]
}

type GetClientByPhoneInput struct {
	Phone string `path:"phone" doc:"Client phone"`
}

type UpdateClientInput struct {
	ID   uuid.UUID `path:"id" doc:"Client ID"`
	Body struct {
		Name  *string `json:"name,omitempty" maxLength:"120" doc:"Client name"`
		Phone *string `json:"phone,omitempty" maxLength:"40" doc:"Phone, unique per business"`
		Email *string `json:"email,omitempty" maxLength:"255" doc:"Email; empty string clears it"`
		Notes *string `json:"notes,omitempty" maxLength:"1000" doc:"Notes; empty string clears them"`
	}
}

func RegisterClientRoutes(api huma.API, reg ClientRegistry) {
	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/clients",
		Summary:     "Search clients, newest first",
		Tags:        []string{"Clients"},
	}, func(ctx context.Context, input *ListClientsInput) (*ListClientsOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		page, err := reg.Search(ctx, s.TenantID, input.Search, input.request())
		if err != nil {
			return nil, toHTTPError(err, "client")
		}

		return &ListClientsOutput{Body: paged(page)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          "/clients",
		Summary:       "Create a client",
		Tags:          []string{"Clients"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateClientInput) (*ClientOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		c, err := reg.Create(ctx, s.TenantID, clients.CreateInput{
			Name:  input.Body.Name,
			Phone: input.Body.Phone,
			Email: input.Body.Email,
			Notes: input.Body.Notes,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict(msgPhoneTaken)
			}
			return nil, toHTTPError(err, "client")
		}

		return &ClientOutput{Body: wrap(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-client",
		Method:      http.MethodPost,
		Path:        "/clients/resolve",
		Summary:     "Find a client by phone, creating it when missing",
		Tags:        []string{"Clients"},
	}, func(ctx context.Context, input *ResolveClientInput) (*ClientOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		c, err := reg.FindOrCreate(ctx, s.TenantID, input.Body.Name, input.Body.Phone)
		if err != nil {
			return nil, toHTTPError(err, "client")
		}

		return &ClientOutput{Body: wrap(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-client-by-phone",
		Method:      http.MethodGet,
		Path:        "/clients/phone/{phone}",
		Summary:     "Get a client by phone",
		Tags:        []string{"Clients"},
	}, func(ctx context.Context, input *GetClientByPhoneInput) (*ClientOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		c, err := reg.GetByPhone(ctx, s.TenantID, input.Phone)
		if err != nil {
			return nil, toHTTPError(err, "client")
		}

		return &ClientOutput{Body: wrap(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-client",
		Method:      http.MethodGet,
		Path:        "/clients/{id}",
		Summary:     "Get a client with its recent orders",
		Tags:        []string{"Clients"},
	}, func(ctx context.Context, input *GetClientInput) (*ClientDetailOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		d, err := reg.Get(ctx, s.TenantID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "client")
		}

		recent := d.RecentOrders
		if recent == nil {
			recent = []*domain.Order{}
		}

		return &ClientDetailOutput{Body: wrap(ClientDetail{Client: *d.Client, RecentOrders: recent})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-client",
		Method:      http.MethodPatch,
		Path:        "/clients/{id}",
		Summary:     "Update some fields of a client",
		Tags:        []string{"Clients"},
	}, func(ctx context.Context, input *UpdateClientInput) (*ClientOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		c, err := reg.Update(ctx, s.TenantID, input.ID, domain.ClientPatch{
			Name:  input.Body.Name,
			Phone: input.Body.Phone,
			Email: input.Body.Email,
			Notes: input.Body.Notes,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict(msgPhoneTaken)
			}
			return nil, toHTTPError(err, "client")
		}

		return &ClientOutput{Body: wrap(c)}, nil
	})
}
