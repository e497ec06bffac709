package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/config"
	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/notify"
	"github.com/repik/lavanderia/internal/orders"
	"github.com/repik/lavanderia/internal/store/postgres"
)

// Demo credentials printed by the seed command.
const (
	demoTenantName    = "Lavandería Demo"
	demoOwnerEmail    = "admin@demo.com"
	demoEmployeeEmail = "empleado@demo.com"
	demoPassword      = "123456"
)

var errAlreadySeeded = errors.New("demo tenant already exists")

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo tenant into PostgreSQL",
		Long: `Create the "Lavandería Demo" tenant with an owner, an employee, two
clients and two orders. Running it again leaves existing data alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			if db.MaxConns > math.MaxInt32 {
				return fmt.Errorf("database max_conns %d out of int32 range", db.MaxConns)
			}

			store, err := postgres.New(cmd.Context(), db.DSN(), int32(db.MaxConns)) //nolint:gosec // bounds checked above
			if err != nil {
				return err
			}
			defer store.Close()

			channels := notify.NewRegistry()
			channels.Register(notify.NewLogChannel())

			return seedDemo(cmd.Context(), store, notify.New(channels))
		},
	}
}

// seedDemo creates the demo tenant. It is a no-op when the tenant exists.
func seedDemo(ctx context.Context, store domain.Store, notifier orders.ReadyNotifier) error {
	owner, err := seedTenant(ctx, store)
	if errors.Is(err, errAlreadySeeded) {
		log.Info().Str("slug", domain.Slugify(demoTenantName)).Msg("demo tenant already seeded")
		return nil
	}
	if err != nil {
		return fmt.Errorf("cli.seedDemo: %w", err)
	}

	svc := orders.NewService(store, notifier, nil)
	defer svc.Wait()

	tomorrow := time.Now().AddDate(0, 0, 1)
	dayAfter := time.Now().AddDate(0, 0, 2)

	// Ticket 1 ends READY, ticket 2 WASHING.
	demo := []struct {
		name, phone string
		items       []orders.ItemInput
		eta         time.Time
		path        []domain.OrderStatus
	}{
		{
			name: "María García", phone: "1155551234",
			items: []orders.ItemInput{
				{Description: "Camisa blanca", Quantity: 2, UnitPrice: decimal.NewFromInt(500)},
				{Description: "Pantalón de vestir", Quantity: 1, UnitPrice: decimal.NewFromInt(800)},
				{Description: "Saco", Quantity: 1, UnitPrice: decimal.NewFromInt(700)},
			},
			eta:  tomorrow,
			path: []domain.OrderStatus{domain.OrderStatusWashing, domain.OrderStatusReady},
		},
		{
			name: "Carlos López", phone: "1155555678",
			items: []orders.ItemInput{
				{Description: "Acolchado king size", Quantity: 1, UnitPrice: decimal.NewFromInt(1800)},
			},
			eta:  dayAfter,
			path: []domain.OrderStatus{domain.OrderStatusWashing},
		},
	}

	for _, d := range demo {
		o, err := svc.Create(ctx, owner.TenantID, orders.CreateInput{
			ClientName:    d.name,
			ClientPhone:   d.phone,
			Items:         d.items,
			EstimatedDate: &d.eta,
		})
		if err != nil {
			return fmt.Errorf("cli.seedDemo: order for %s: %w", d.name, err)
		}
		for _, to := range d.path {
			if _, err := svc.UpdateStatus(ctx, owner.TenantID, owner.ID, o.ID, to); err != nil {
				return fmt.Errorf("cli.seedDemo: ticket %d to %s: %w", o.TicketNumber, to, err)
			}
		}
	}

	log.Info().
		Str("slug", domain.Slugify(demoTenantName)).
		Str("owner", demoOwnerEmail).
		Str("employee", demoEmployeeEmail).
		Str("password", demoPassword).
		Msg("demo data seeded")
	return nil
}

// seedTenant creates the tenant, its owner and one employee in a single
// transaction and returns the owner.
func seedTenant(ctx context.Context, store domain.Store) (*domain.User, error) {
	slug := domain.Slugify(demoTenantName)
	if _, err := store.Tenants().GetBySlug(ctx, slug); err == nil {
		return nil, errAlreadySeeded
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tenant := &domain.Tenant{
		ID:        uuid.New(),
		Name:      demoTenantName,
		Slug:      slug,
		Phone:     "+54 11 1234-5678",
		Address:   "Av. Corrientes 1234, CABA",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := func(email, name string, role domain.Role) *domain.User {
		return &domain.User{
			ID:           uuid.New(),
			TenantID:     tenant.ID,
			Email:        email,
			PasswordHash: hash,
			Name:         name,
			Role:         role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	owner := user(demoOwnerEmail, "Admin Demo", domain.RoleOwner)
	employee := user(demoEmployeeEmail, "Empleado Demo", domain.RoleEmployee)

	err = store.InTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return errAlreadySeeded
			}
			return err
		}
		if err := tx.Users().Create(ctx, owner); err != nil {
			return err
		}
		return tx.Users().Create(ctx, employee)
	})
	if err != nil {
		return nil, err
	}

	return owner, nil
}
