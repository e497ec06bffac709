package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/reports"
	"github.com/repik/lavanderia/internal/store/memory"
)

// Buenos Aires has no DST, which keeps day arithmetic predictable.
var art = time.FixedZone("ART", -3*60*60) //nolint:gochecknoglobals // test fixture

// fixedNow is 2025-03-14 10:00 local time.
var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, art) //nolint:gochecknoglobals // test fixture

type fixture struct {
	svc      *reports.Service
	store    *memory.Store
	tenantID uuid.UUID
	ticket   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	return &fixture{
		svc:      reports.NewService(store.Orders(), art).WithClock(func() time.Time { return fixedNow }),
		store:    store,
		tenantID: uuid.New(),
	}
}

func (f *fixture) addOrder(t *testing.T, createdAt time.Time, total string, status domain.OrderStatus) {
	t.Helper()

	f.ticket++
	require.NoError(t, f.store.Orders().Create(t.Context(), &domain.Order{
		ID:           uuid.New(),
		TenantID:     f.tenantID,
		ClientID:     uuid.New(),
		TicketNumber: f.ticket,
		Status:       status,
		TotalPrice:   decimal.RequireFromString(total),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}))
}

func TestDaily_EmptyDayReturnsZeros(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	r, err := f.svc.Daily(t.Context(), f.tenantID, "2025-01-01")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-01", r.Date)
	assert.Zero(t, r.TotalOrders)
	assert.True(t, r.TotalIncome.IsZero())
	assert.True(t, r.AverageTicket.IsZero())
	require.Len(t, r.ByStatus, 4, "every status is present even when zero")
	for _, s := range domain.OrderStatuses {
		assert.Zero(t, r.ByStatus[s])
	}
}

func TestDaily_AggregatesTheDay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, art)

	f.addOrder(t, day.Add(9*time.Hour), "1800", domain.OrderStatusReceived)
	f.addOrder(t, day.Add(12*time.Hour), "1000.50", domain.OrderStatusReady)
	f.addOrder(t, day.Add(23*time.Hour+59*time.Minute), "200", domain.OrderStatusReady)
	// Outside the window: previous evening, and exactly midnight of the next day.
	f.addOrder(t, day.Add(-time.Minute), "999", domain.OrderStatusDelivered)
	f.addOrder(t, day.AddDate(0, 0, 1), "999", domain.OrderStatusDelivered)
	// Another tenant on the same day.
	other := f.tenantID
	f.tenantID = uuid.New()
	f.addOrder(t, day.Add(10*time.Hour), "5000", domain.OrderStatusReceived)
	f.tenantID = other

	r, err := f.svc.Daily(t.Context(), f.tenantID, "2025-03-14")
	require.NoError(t, err)

	assert.EqualValues(t, 3, r.TotalOrders)
	assert.Equal(t, "3000.5", r.TotalIncome.String())
	assert.Equal(t, "1000.17", r.AverageTicket.String())
	assert.EqualValues(t, 1, r.ByStatus[domain.OrderStatusReceived])
	assert.EqualValues(t, 2, r.ByStatus[domain.OrderStatusReady])
	assert.Zero(t, r.ByStatus[domain.OrderStatusDelivered])
}

func TestDaily_DefaultsToToday(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addOrder(t, fixedNow.Add(-time.Hour), "100", domain.OrderStatusReceived)

	r, err := f.svc.Daily(t.Context(), f.tenantID, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", r.Date)
	assert.EqualValues(t, 1, r.TotalOrders)
}

func TestDaily_UsesConfiguredTimezone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// 01:00 UTC on the 15th is still the 14th in Buenos Aires.
	f.addOrder(t, time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC), "100", domain.OrderStatusReceived)

	r, err := f.svc.Daily(t.Context(), f.tenantID, "2025-03-14")
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.TotalOrders)
}

func TestDaily_InvalidDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, bad := range []string{"14/03/2025", "2025-13-01", "yesterday"} {
		_, err := f.svc.Daily(t.Context(), f.tenantID, bad)
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}
}

func TestWeekly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	today := time.Date(2025, 3, 14, 12, 0, 0, 0, art)

	f.addOrder(t, today, "1800", domain.OrderStatusReceived)
	f.addOrder(t, today.AddDate(0, 0, -1), "200", domain.OrderStatusDelivered)
	f.addOrder(t, today.AddDate(0, 0, -6), "100", domain.OrderStatusDelivered)
	f.addOrder(t, today.AddDate(0, 0, -7), "5000", domain.OrderStatusDelivered) // outside the week

	r, err := f.svc.Weekly(t.Context(), f.tenantID)
	require.NoError(t, err)

	require.Len(t, r.Days, 7)
	assert.Equal(t, "2025-03-08", r.Days[0].Date, "oldest first")
	assert.Equal(t, "2025-03-14", r.Days[6].Date)
	assert.EqualValues(t, 1, r.Days[0].TotalOrders)
	assert.EqualValues(t, 1, r.Days[5].TotalOrders)
	assert.EqualValues(t, 1, r.Days[6].TotalOrders)
	assert.Zero(t, r.Days[3].TotalOrders)

	assert.EqualValues(t, 3, r.Summary.TotalOrders)
	assert.Equal(t, "2100", r.Summary.TotalIncome.String())
	assert.Equal(t, "700", r.Summary.AverageTicket.String())
}

func TestWeekly_EmptyWeek(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r, err := f.svc.Weekly(t.Context(), f.tenantID)
	require.NoError(t, err)
	assert.Zero(t, r.Summary.TotalOrders)
	assert.True(t, r.Summary.AverageTicket.IsZero())
}

// --- error propagation ---

type mockOrderRepo struct {
	domain.OrderRepository
	statsFn func(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*domain.DayStats, error)
}

func (m *mockOrderRepo) Stats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*domain.DayStats, error) {
	return m.statsFn(ctx, tenantID, from, to)
}

func TestWeekly_PropagatesRepositoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	repo := &mockOrderRepo{statsFn: func(_ context.Context, _ uuid.UUID, from, _ time.Time) (*domain.DayStats, error) {
		if from.Day() == 12 {
			return nil, boom
		}
		return &domain.DayStats{TotalIncome: decimal.Zero}, nil
	}}
	svc := reports.NewService(repo, art).WithClock(func() time.Time { return fixedNow })

	_, err := svc.Weekly(t.Context(), uuid.New())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "2025-03-12")
}
