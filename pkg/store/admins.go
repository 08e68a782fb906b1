package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// AdminUser can sign in to the admin API
type AdminUser struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

var adminColumns = []string{"id", "username", "password_hash", "created_at"}

func scanAdmin(sc scanner) (*AdminUser, error) {
	var a AdminUser
	if err := sc.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAdminUser inserts an admin with an already hashed password
func (s *Store) CreateAdminUser(ctx context.Context, username, passwordHash string) (*AdminUser, error) {
	id, err := s.insert(ctx, s.builder().Insert(tableAdminUsers).
		Columns("username", "password_hash", "created_at").
		Values(username, passwordHash, s.now()).
		OnConflict(entsql.ConflictColumns("username"), entsql.DoNothing()))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	q := s.builder().Select(adminColumns...).From(entsql.Table(tableAdminUsers)).Where(entsql.EQ("id", id))
	return one(s.queryRow(ctx, q), scanAdmin)
}

// GetAdminByUsername returns an admin by username
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*AdminUser, error) {
	q := s.builder().Select(adminColumns...).From(entsql.Table(tableAdminUsers)).
		Where(entsql.EQ("username", username))
	return one(s.queryRow(ctx, q), scanAdmin)
}
