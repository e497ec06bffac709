package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/repik/lavanderia/internal/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// can run either standalone or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// repos binds one set of repositories to a DBTX.
type repos struct {
	tenants *TenantRepo
	users   *UserRepo
	clients *ClientRepo
	orders  *OrderRepo
	history *StatusHistoryRepo
}

func newRepos(db DBTX) *repos {
	return &repos{
		tenants: NewTenantRepo(db),
		users:   NewUserRepo(db),
		clients: NewClientRepo(db),
		orders:  NewOrderRepo(db),
		history: NewStatusHistoryRepo(db),
	}
}

func (r *repos) Tenants() domain.TenantRepository               { return r.tenants }
func (r *repos) Users() domain.UserRepository                   { return r.users }
func (r *repos) Clients() domain.ClientRepository               { return r.clients }
func (r *repos) Orders() domain.OrderRepository                 { return r.orders }
func (r *repos) StatusHistory() domain.StatusHistoryRepository { return r.history }

type Store struct {
	*repos
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return NewWithPool(pool), nil
}

// NewWithPool wraps an existing pool. The caller keeps ownership of pool
// unless it calls Close on the returned Store.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{repos: newRepos(pool), pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Store.InTx: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.Store.InTx: commit: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere, with LIKE
// wildcards in s taken literally. Backslash is the default escape.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
