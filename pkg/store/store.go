package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/inversionreal/storefront/pkg/database"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert hits a unique key that already exists
	ErrDuplicate = errors.New("record already exists")
	// ErrMembershipInUse is returned when deleting a membership that subscriptions still reference
	ErrMembershipInUse = errors.New("membership has subscriptions")
)

const (
	tableAdminUsers         = "admin_users"
	tableCourses            = "courses"
	tableMemberships        = "memberships"
	tableSubscriptions      = "subscriptions"
	tableDiscordConnections = "discord_connections"
	tableCustomers          = "customers"
	tableOrders             = "orders"
	tableContracts          = "contracts"
)

// Store provides CRUD access to every persisted entity
type Store struct {
	db  *database.Client
	now func() time.Time
}

// New creates a store over an open database client
func New(db *database.Client) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) builder() *entsql.DialectBuilder {
	return s.db.SQL()
}

// insert runs an INSERT and returns the new id.
// A conflict swallowed by ON CONFLICT DO NOTHING is reported as ErrDuplicate.
func (s *Store) insert(ctx context.Context, b *entsql.InsertBuilder) (int, error) {
	if s.db.Dialect == dialect.Postgres {
		query, args := b.Returning("id").Query()
		var id int
		err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrDuplicate
		}
		if err != nil {
			return 0, mapError(err)
		}
		return id, nil
	}

	query, args := b.Query()
	res, err := s.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrDuplicate
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// exec runs a statement and returns the affected row count
func (s *Store) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	res, err := s.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

func (s *Store) queryRow(ctx context.Context, q entsql.Querier) *sql.Row {
	query, args := q.Query()
	return s.db.DB.QueryRowContext(ctx, query, args...)
}

// queryAll runs a SELECT and collects every row through scan
func queryAll[T any](ctx context.Context, s *Store, q entsql.Querier, scan func(scanner) (*T, error)) ([]*T, error) {
	query, args := q.Query()
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// one scans a single row, mapping sql.ErrNoRows to ErrNotFound
func one[T any](row *sql.Row, scan func(scanner) (*T, error)) (*T, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// mapError translates driver constraint errors into store sentinels
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("foreign key violation: %w", err)
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", ErrDuplicate, liteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("foreign key violation: %w", err)
		}
	}
	return err
}

// isForeignKeyViolation reports whether err came from a restricting foreign key
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}

// nullable turns a nil pointer into a SQL NULL argument
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
