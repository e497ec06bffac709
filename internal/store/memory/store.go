// Package memory is an in-process domain.Store used by service tests and
// by `lavanderia serve --memory` for demos without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repik/lavanderia/internal/domain"
)

type state struct {
	tenants map[uuid.UUID]domain.Tenant
	users   map[uuid.UUID]domain.User
	clients map[uuid.UUID]domain.Client
	orders  map[uuid.UUID]domain.Order
	history []domain.StatusChange
}

func newState() *state {
	return &state{
		tenants: make(map[uuid.UUID]domain.Tenant),
		users:   make(map[uuid.UUID]domain.User),
		clients: make(map[uuid.UUID]domain.Client),
		orders:  make(map[uuid.UUID]domain.Order),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.tenants {
		c.tenants[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.history = append(c.history, s.history...)
	return c
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// view is one set of repositories over a state. Pool views lock the store
// mutex per call; transaction views run while InTx already holds it.
type view struct {
	st   func() *state
	lock sync.Locker
}

func (v *view) Tenants() domain.TenantRepository               { return tenantRepo{v} }
func (v *view) Users() domain.UserRepository                   { return userRepo{v} }
func (v *view) Clients() domain.ClientRepository               { return clientRepo{v} }
func (v *view) Orders() domain.OrderRepository                 { return orderRepo{v} }
func (v *view) StatusHistory() domain.StatusHistoryRepository { return historyRepo{v} }

func (v *view) do(fn func(st *state) error) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	return fn(v.st())
}

// Store keeps all data in maps guarded by one mutex. Transactions work on
// a copy that replaces the live state on commit.
type Store struct {
	*view

	mu  sync.Mutex
	cur *state
}

func New() *Store {
	s := &Store{cur: newState()}
	s.view = &view{st: func() *state { return s.cur }, lock: &s.mu}
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.cur.clone()
	if err := fn(&view{st: func() *state { return staged }, lock: noopLocker{}}); err != nil {
		return err
	}

	s.cur = staged
	return nil
}

// Ping always succeeds; it lets the store stand in for a database in health checks.
func (s *Store) Ping(context.Context) error { return nil }

// --- tenants ---

type tenantRepo struct{ v *view }

func (r tenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.tenants {
			if existing.Slug == t.Slug {
				return domain.ErrConflict
			}
		}
		st.tenants[t.ID] = *t
		return nil
	})
}

func (r tenantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	var out *domain.Tenant
	err := r.v.do(func(st *state) error {
		t, ok := st.tenants[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r tenantRepo) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	var out *domain.Tenant
	err := r.v.do(func(st *state) error {
		for _, t := range st.tenants {
			if t.Slug == slug {
				out = &t
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r tenantRepo) NextTicketNumber(_ context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := r.v.do(func(st *state) error {
		t, ok := st.tenants[tenantID]
		if !ok {
			return domain.ErrNotFound
		}
		t.TicketCounter++
		t.UpdatedAt = time.Now()
		st.tenants[tenantID] = t
		n = t.TicketCounter
		return nil
	})
	return n, err
}

// --- users ---

type userRepo struct{ v *view }

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.users {
			if existing.TenantID == u.TenantID && strings.EqualFold(existing.Email, u.Email) {
				return domain.ErrConflict
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.TenantID != tenantID {
			return domain.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByEmail(_ context.Context, tenantID uuid.UUID, email string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

// --- clients ---

type clientRepo struct{ v *view }

func findClientByPhone(st *state, tenantID uuid.UUID, phone string) (domain.Client, bool) {
	for _, c := range st.clients {
		if c.TenantID == tenantID && c.Phone == phone {
			return c, true
		}
	}
	return domain.Client{}, false
}

func (r clientRepo) Create(_ context.Context, c *domain.Client) error {
	return r.v.do(func(st *state) error {
		if _, ok := findClientByPhone(st, c.TenantID, c.Phone); ok {
			return domain.ErrConflict
		}
		st.clients[c.ID] = *c
		return nil
	})
}

func (r clientRepo) FindOrCreate(_ context.Context, c *domain.Client) (*domain.Client, error) {
	var out *domain.Client
	err := r.v.do(func(st *state) error {
		if existing, ok := findClientByPhone(st, c.TenantID, c.Phone); ok {
			out = &existing
			return nil
		}
		st.clients[c.ID] = *c
		created := *c
		out = &created
		return nil
	})
	return out, err
}

func (r clientRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Client, error) {
	var out *domain.Client
	err := r.v.do(func(st *state) error {
		c, ok := st.clients[id]
		if !ok || c.TenantID != tenantID {
			return domain.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r clientRepo) GetByPhone(_ context.Context, tenantID uuid.UUID, phone string) (*domain.Client, error) {
	var out *domain.Client
	err := r.v.do(func(st *state) error {
		c, ok := findClientByPhone(st, tenantID, phone)
		if !ok {
			return domain.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r clientRepo) Search(_ context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*domain.Client, int64, error) {
	var matched []*domain.Client
	q := strings.ToLower(query)
	err := r.v.do(func(st *state) error {
		for _, c := range st.clients {
			if c.TenantID != tenantID {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(c.Phone, query) {
				continue
			}
			matched = append(matched, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return page(matched, limit, offset), int64(len(matched)), nil
}

func (r clientRepo) Update(_ context.Context, c *domain.Client) error {
	return r.v.do(func(st *state) error {
		existing, ok := st.clients[c.ID]
		if !ok || existing.TenantID != c.TenantID {
			return domain.ErrNotFound
		}
		if other, dup := findClientByPhone(st, c.TenantID, c.Phone); dup && other.ID != c.ID {
			return domain.ErrConflict
		}
		st.clients[c.ID] = *c
		return nil
	})
}

// --- orders ---

type orderRepo struct{ v *view }

func withClient(st *state, o domain.Order) *domain.Order {
	if c, ok := st.clients[o.ClientID]; ok {
		o.Client = &domain.ClientSummary{ID: c.ID, Name: c.Name, Phone: c.Phone}
	}
	o.Items = append([]domain.OrderItem{}, o.Items...)
	return &o
}

func (r orderRepo) Create(_ context.Context, o *domain.Order) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.orders {
			if existing.TenantID == o.TenantID && existing.TicketNumber == o.TicketNumber {
				return domain.ErrConflict
			}
		}
		stored := *o
		stored.Client = nil
		stored.Items = append([]domain.OrderItem{}, o.Items...)
		st.orders[o.ID] = stored
		return nil
	})
}

func (r orderRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := r.v.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.TenantID != tenantID {
			return domain.ErrNotFound
		}
		out = withClient(st, o)
		return nil
	})
	return out, err
}

func (r orderRepo) List(_ context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]*domain.Order, int64, error) {
	var matched []*domain.Order
	search := strings.TrimSpace(f.Search)
	err := r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if o.TenantID != tenantID {
				continue
			}
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			full := withClient(st, o)
			if search != "" && !orderMatches(full, search) {
				continue
			}
			matched = append(matched, full)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortNewestFirst(matched)

	return page(matched, f.Limit, f.Offset), int64(len(matched)), nil
}

func orderMatches(o *domain.Order, search string) bool {
	if o.Client != nil {
		if strings.Contains(strings.ToLower(o.Client.Name), strings.ToLower(search)) ||
			strings.Contains(o.Client.Phone, search) {
			return true
		}
	}
	return strconv.FormatInt(o.TicketNumber, 10) == search
}

func (r orderRepo) ListByClient(_ context.Context, tenantID, clientID uuid.UUID, limit int) ([]*domain.Order, error) {
	var matched []*domain.Order
	err := r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if o.TenantID == tenantID && o.ClientID == clientID {
				matched = append(matched, withClient(st, o))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(matched)

	return page(matched, limit, 0), nil
}

func (r orderRepo) TransitionStatus(_ context.Context, tenantID, id uuid.UUID, from, to domain.OrderStatus, deliveredAt *time.Time) error {
	return r.v.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.TenantID != tenantID || o.Status != from {
			return domain.ErrConflict
		}
		o.Status = to
		if deliveredAt != nil {
			o.DeliveredAt = deliveredAt
		}
		o.UpdatedAt = time.Now()
		st.orders[id] = o
		return nil
	})
}

func (r orderRepo) Stats(_ context.Context, tenantID uuid.UUID, from, to time.Time) (*domain.DayStats, error) {
	stats := &domain.DayStats{
		TotalIncome: decimal.Zero,
		ByStatus:    make(map[domain.OrderStatus]int64),
	}
	err := r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if o.TenantID != tenantID || o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
				continue
			}
			stats.TotalOrders++
			stats.TotalIncome = stats.TotalIncome.Add(o.TotalPrice)
			stats.ByStatus[o.Status]++
		}
		return nil
	})
	return stats, err
}

// --- status history ---

type historyRepo struct{ v *view }

func (r historyRepo) Record(_ context.Context, c *domain.StatusChange) error {
	return r.v.do(func(st *state) error {
		st.history = append(st.history, *c)
		return nil
	})
}

func (r historyRepo) ListByOrder(_ context.Context, tenantID, orderID uuid.UUID) ([]*domain.StatusChange, error) {
	changes := []*domain.StatusChange{}
	err := r.v.do(func(st *state) error {
		for _, c := range st.history {
			if c.TenantID == tenantID && c.OrderID == orderID {
				changes = append(changes, &c)
			}
		}
		return nil
	})
	return changes, err
}

func sortNewestFirst(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].TicketNumber > orders[j].TicketNumber
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
