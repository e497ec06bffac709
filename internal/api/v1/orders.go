package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/orders"
)

type OrderItemBody struct {
	Description string          `json:"description" maxLength:"255" doc:"Garment or service"`
	Quantity    int             `json:"quantity" maximum:"100000" doc:"Units, at least 1"`
	UnitPrice   decimal.Decimal `json:"unitPrice" doc:"Price per unit"`
}

type CreateOrderInput struct {
	Body struct {
		ClientID      *uuid.UUID      `json:"clientId,omitempty" doc:"Existing client; otherwise clientName and clientPhone are required"`
		ClientName    string          `json:"clientName,omitempty" maxLength:"120" doc:"Client name, used to find or create the client"`
		ClientPhone   string          `json:"clientPhone,omitempty" maxLength:"40" doc:"Client phone, unique per business"`
		Items         []OrderItemBody `json:"items" doc:"Order lines"`
		Notes         string          `json:"notes,omitempty" maxLength:"1000" doc:"Free-form notes"`
		EstimatedDate string          `json:"estimatedDate,omitempty" doc:"Expected pickup, RFC 3339 or YYYY-MM-DD"`
	}
}

type OrderOutput struct {
	Body Envelope[*domain.Order]
}

type ListOrdersInput struct {
	Status string `query:"status" enum:"RECEIVED,WASHING,READY,DELIVERED" doc:"Only orders in this status"`
	Search string `query:"search" doc:"Client name or phone substring, or exact ticket number"`
	PageQuery
}

type ListOrdersOutput struct {
	Body PageEnvelope[*domain.Order]
}

type GetOrderInput struct {
	ID uuid.UUID `path:"id" doc:"Order ID"`
}

type UpdateOrderStatusInput struct {
	ID   uuid.UUID `path:"id" doc:"Order ID"`
	Body struct {
		Status domain.OrderStatus `json:"status" enum:"RECEIVED,WASHING,READY,DELIVERED" doc:"Next status in the pipeline"`
	}
}

type OrderHistoryOutput struct {
	Body Envelope[[]*domain.StatusChange]
}

func RegisterOrderRoutes(api huma.API, svc OrderService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-order",
		Method:        http.MethodPost,
		Path:          "/orders",
		Summary:       "Register a new order",
		Tags:          []string{"Orders"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateOrderInput) (*OrderOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		in := orders.CreateInput{
			ClientID:    input.Body.ClientID,
			ClientName:  input.Body.ClientName,
			ClientPhone: input.Body.ClientPhone,
			Notes:       input.Body.Notes,
			Items:       make([]orders.ItemInput, len(input.Body.Items)),
		}
		for i, it := range input.Body.Items {
			in.Items[i] = orders.ItemInput{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		}
		if input.Body.EstimatedDate != "" {
			d, parseErr := parseEstimatedDate(input.Body.EstimatedDate)
			if parseErr != nil {
				verr := &domain.ValidationError{}
				verr.Add("estimatedDate", "must be an RFC 3339 timestamp or YYYY-MM-DD")
				return nil, toHTTPError(verr, "order")
			}
			in.EstimatedDate = &d
		}

		o, err := svc.Create(ctx, s.TenantID, in)
		if err != nil {
			return nil, toHTTPError(err, "client")
		}

		return &OrderOutput{Body: wrap(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      http.MethodGet,
		Path:        "/orders",
		Summary:     "List orders, newest first",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *ListOrdersInput) (*ListOrdersOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		page, err := svc.List(ctx, s.TenantID, orders.ListInput{
			Status:      domain.OrderStatus(input.Status),
			Search:      input.Search,
			PageRequest: input.request(),
		})
		if err != nil {
			return nil, toHTTPError(err, "order")
		}

		return &ListOrdersOutput{Body: paged(page)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Method:      http.MethodGet,
		Path:        "/orders/{id}",
		Summary:     "Get an order with its client and items",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *GetOrderInput) (*OrderOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		o, err := svc.Get(ctx, s.TenantID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "order")
		}

		return &OrderOutput{Body: wrap(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-order-status",
		Method:      http.MethodPatch,
		Path:        "/orders/{id}/status",
		Summary:     "Advance an order to the next status",
		Description: "Orders move one step at a time: RECEIVED, WASHING, READY, DELIVERED. Any other change is rejected with 409.",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *UpdateOrderStatusInput) (*OrderOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		o, err := svc.UpdateStatus(ctx, s.TenantID, s.UserID, input.ID, input.Body.Status)
		if err != nil {
			return nil, toHTTPError(err, "order")
		}

		return &OrderOutput{Body: wrap(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "order-history",
		Method:      http.MethodGet,
		Path:        "/orders/{id}/history",
		Summary:     "List the status changes of an order",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *GetOrderInput) (*OrderHistoryOutput, error) {
		s, err := session(ctx)
		if err != nil {
			return nil, err
		}

		changes, err := svc.History(ctx, s.TenantID, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "order")
		}
		if changes == nil {
			changes = []*domain.StatusChange{}
		}

		return &OrderHistoryOutput{Body: wrap(changes)}, nil
	})
}

func parseEstimatedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}
