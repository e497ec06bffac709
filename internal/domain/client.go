package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClientPatch carries a partial update; nil fields are left unchanged.
type ClientPatch struct {
	Name  *string
	Phone *string
	Email *string
	Notes *string
}

// Apply copies the set fields of p onto c.
func (p ClientPatch) Apply(c *Client) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		c.Phone = NormalizePhone(*p.Phone)
	}
	if p.Email != nil {
		c.Email = strings.TrimSpace(*p.Email)
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

// NormalizePhone strips surrounding whitespace so lookups by phone match
// what was stored.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// ValidateClient checks the fields every stored client must satisfy.
func ValidateClient(c *Client) error {
	verr := &ValidationError{}
	if len([]rune(c.Name)) < 2 {
		verr.Add("name", "must be at least 2 characters")
	}
	if len(c.Phone) < 8 {
		verr.Add("phone", "must be at least 8 characters")
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		verr.Add("email", "must be a valid email address")
	}
	return verr.Err()
}

type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	// FindOrCreate returns the client with c's (tenant, phone) pair,
	// inserting c when none exists.
	FindOrCreate(ctx context.Context, c *Client) (*Client, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)
	GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Client, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*Client, int64, error)
	Update(ctx context.Context, c *Client) error
}
