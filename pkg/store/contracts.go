package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Contract is the append-only record of terms acceptance for a subscription
type Contract struct {
	ID             int       `json:"id"`
	SubscriptionID int       `json:"subscriptionId"`
	CustomerEmail  string    `json:"customerEmail"`
	CustomerName   string    `json:"customerName"`
	PDFContent     []byte    `json:"-"`
	AcceptanceDate time.Time `json:"acceptanceDate"`
	StorageKey     *string   `json:"storageKey,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

var contractColumns = []string{
	"id", "subscription_id", "customer_email", "customer_name", "pdf_content",
	"acceptance_date", "storage_key", "created_at",
}

func scanContract(sc scanner) (*Contract, error) {
	var (
		c          Contract
		storageKey sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.SubscriptionID, &c.CustomerEmail, &c.CustomerName, &c.PDFContent,
		&c.AcceptanceDate, &storageKey, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.StorageKey = nullString(storageKey)
	return &c, nil
}

// CreateContract inserts a contract. A subscription holds at most one; a second
// insert returns ErrDuplicate.
func (s *Store) CreateContract(ctx context.Context, c Contract) (*Contract, error) {
	id, err := s.insert(ctx, s.builder().Insert(tableContracts).
		Columns("subscription_id", "customer_email", "customer_name", "pdf_content",
			"acceptance_date", "storage_key", "created_at").
		Values(c.SubscriptionID, c.CustomerEmail, c.CustomerName, c.PDFContent,
			c.AcceptanceDate, nullable(c.StorageKey), s.now()).
		OnConflict(entsql.ConflictColumns("subscription_id"), entsql.DoNothing()))
	if err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	return s.GetContract(ctx, id)
}

// GetContract returns a contract by id
func (s *Store) GetContract(ctx context.Context, id int) (*Contract, error) {
	q := s.builder().Select(contractColumns...).From(entsql.Table(tableContracts)).
		Where(entsql.EQ("id", id))
	return one(s.queryRow(ctx, q), scanContract)
}

// GetContractBySubscription returns the contract of a subscription
func (s *Store) GetContractBySubscription(ctx context.Context, subscriptionID int) (*Contract, error) {
	q := s.builder().Select(contractColumns...).From(entsql.Table(tableContracts)).
		Where(entsql.EQ("subscription_id", subscriptionID))
	return one(s.queryRow(ctx, q), scanContract)
}

// SetContractStorageKey records where the archived PDF lives
func (s *Store) SetContractStorageKey(ctx context.Context, id int, key string) error {
	n, err := s.exec(ctx, s.builder().Update(tableContracts).
		Set("storage_key", key).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to set contract storage key: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountContracts returns the number of contracts stored for a subscription
func (s *Store) CountContracts(ctx context.Context, subscriptionID int) (int, error) {
	var n int
	q := s.builder().Select(entsql.Count("*")).From(entsql.Table(tableContracts)).
		Where(entsql.EQ("subscription_id", subscriptionID))
	if err := s.queryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contracts: %w", err)
	}
	return n, nil
}
