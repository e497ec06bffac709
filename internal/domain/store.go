package domain

import "context"

// Repositories groups the repository accessors. Implementations bind them
// either to a connection pool or to a single transaction.
type Repositories interface {
	Tenants() TenantRepository
	Users() UserRepository
	Clients() ClientRepository
	Orders() OrderRepository
	StatusHistory() StatusHistoryRepository
}

// Store is the persistence boundary used by services.
type Store interface {
	Repositories

	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Repositories) error) error
}
