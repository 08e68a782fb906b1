package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Membership is a recurring monthly plan
type Membership struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	MonthlyPrice float64    `json:"monthlyPrice"`
	Benefits     string     `json:"benefits"`
	IsActive     bool       `json:"isActive"`
	ImageURL     *string    `json:"imageUrl,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// MembershipInput holds the editable membership fields
type MembershipInput struct {
	Name         string
	Description  string
	MonthlyPrice float64
	Benefits     string
	IsActive     bool
	ImageURL     *string
	StartDate    *time.Time
}

var membershipColumns = []string{
	"id", "name", "description", "monthly_price", "benefits", "is_active",
	"image_url", "start_date", "created_at", "updated_at",
}

func scanMembership(sc scanner) (*Membership, error) {
	var (
		m         Membership
		imageURL  sql.NullString
		startDate sql.NullTime
	)
	if err := sc.Scan(&m.ID, &m.Name, &m.Description, &m.MonthlyPrice, &m.Benefits, &m.IsActive,
		&imageURL, &startDate, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ImageURL = nullString(imageURL)
	m.StartDate = nullTime(startDate)
	return &m, nil
}

// ListMemberships returns memberships newest first, optionally only active ones
func (s *Store) ListMemberships(ctx context.Context, activeOnly bool) ([]*Membership, error) {
	q := s.builder().Select(membershipColumns...).From(entsql.Table(tableMemberships))
	if activeOnly {
		q.Where(entsql.EQ("is_active", true))
	}
	q.OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))

	list, err := queryAll(ctx, s, q, scanMembership)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return list, nil
}

// GetMembership returns a membership by id
func (s *Store) GetMembership(ctx context.Context, id int) (*Membership, error) {
	q := s.builder().Select(membershipColumns...).From(entsql.Table(tableMemberships)).
		Where(entsql.EQ("id", id))
	return one(s.queryRow(ctx, q), scanMembership)
}

// CreateMembership inserts a membership
func (s *Store) CreateMembership(ctx context.Context, in MembershipInput) (*Membership, error) {
	now := s.now()
	id, err := s.insert(ctx, s.builder().Insert(tableMemberships).
		Columns("name", "description", "monthly_price", "benefits", "is_active",
			"image_url", "start_date", "created_at", "updated_at").
		Values(in.Name, in.Description, in.MonthlyPrice, in.Benefits, in.IsActive,
			nullable(in.ImageURL), nullable(in.StartDate), now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	return s.GetMembership(ctx, id)
}

// UpdateMembership replaces the editable fields of a membership
func (s *Store) UpdateMembership(ctx context.Context, id int, in MembershipInput) (*Membership, error) {
	n, err := s.exec(ctx, s.builder().Update(tableMemberships).
		Set("name", in.Name).
		Set("description", in.Description).
		Set("monthly_price", in.MonthlyPrice).
		Set("benefits", in.Benefits).
		Set("is_active", in.IsActive).
		Set("image_url", nullable(in.ImageURL)).
		Set("start_date", nullable(in.StartDate)).
		Set("updated_at", s.now()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetMembership(ctx, id)
}

// DeleteMembership removes a membership. Memberships referenced by a subscription
// cannot be deleted and yield ErrMembershipInUse.
func (s *Store) DeleteMembership(ctx context.Context, id int) error {
	n, err := s.exec(ctx, s.builder().Delete(tableMemberships).Where(entsql.EQ("id", id)))
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrMembershipInUse
		}
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
