package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// DiscordConnection links a customer email to a Discord account
type DiscordConnection struct {
	ID              int       `json:"id"`
	CustomerEmail   string    `json:"customerEmail"`
	DiscordUserID   string    `json:"discordUserId"`
	DiscordUsername string    `json:"discordUsername"`
	AccessToken     string    `json:"-"`
	RefreshToken    string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

var connectionColumns = []string{
	"id", "customer_email", "discord_user_id", "discord_username",
	"access_token", "refresh_token", "created_at", "updated_at",
}

func scanConnection(sc scanner) (*DiscordConnection, error) {
	var c DiscordConnection
	if err := sc.Scan(&c.ID, &c.CustomerEmail, &c.DiscordUserID, &c.DiscordUsername,
		&c.AccessToken, &c.RefreshToken, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertDiscordConnection creates or replaces the Discord link for an email
func (s *Store) UpsertDiscordConnection(ctx context.Context, c DiscordConnection) (*DiscordConnection, error) {
	now := s.now()
	_, err := s.exec(ctx, s.builder().Insert(tableDiscordConnections).
		Columns("customer_email", "discord_user_id", "discord_username",
			"access_token", "refresh_token", "created_at", "updated_at").
		Values(c.CustomerEmail, c.DiscordUserID, c.DiscordUsername,
			c.AccessToken, c.RefreshToken, now, now).
		OnConflict(
			entsql.ConflictColumns("customer_email"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("discord_user_id")
				u.SetExcluded("discord_username")
				u.SetExcluded("access_token")
				u.SetExcluded("refresh_token")
				u.SetExcluded("updated_at")
			}),
		))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert discord connection: %w", err)
	}
	return s.GetDiscordConnection(ctx, c.CustomerEmail)
}

// GetDiscordConnection returns the Discord link for an email
func (s *Store) GetDiscordConnection(ctx context.Context, email string) (*DiscordConnection, error) {
	q := s.builder().Select(connectionColumns...).From(entsql.Table(tableDiscordConnections)).
		Where(entsql.EQ("customer_email", email))
	return one(s.queryRow(ctx, q), scanConnection)
}
