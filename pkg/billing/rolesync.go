package billing

import (
	"context"
	"errors"

	"github.com/inversionreal/storefront/pkg/logger"
	"github.com/inversionreal/storefront/pkg/store"
)

// Role sync actions, also used as metric labels
const (
	ActionGrant  = "grant"
	ActionRevoke = "revoke"
	ActionNone   = "none"
)

// Chat is the chat platform surface role sync needs
type Chat interface {
	Enabled() bool
	IsGuildMember(ctx context.Context, userID string) (bool, error)
	AddRole(ctx context.Context, userID string) error
	RemoveRole(ctx context.Context, userID string) error
	SendDM(ctx context.Context, userID, content string) error
}

// ConnectionStore looks up linked chat accounts
type ConnectionStore interface {
	GetDiscordConnection(ctx context.Context, email string) (*store.DiscordConnection, error)
}

// RoleSyncer keeps the guild member role in line with subscription status.
// Every failure is logged and swallowed.
type RoleSyncer struct {
	chat      Chat
	store     ConnectionStore
	log       logger.Logger
	metrics   Metrics
	baseURL   string
	inviteURL string
}

// NewRoleSyncer creates a role syncer. A nil chat client disables it.
func NewRoleSyncer(chat Chat, st ConnectionStore, log logger.Logger, baseURL, inviteURL string) *RoleSyncer {
	return &RoleSyncer{
		chat:      chat,
		store:     st,
		log:       log,
		metrics:   noopMetrics{},
		baseURL:   baseURL,
		inviteURL: inviteURL,
	}
}

// SetMetrics sets the counters role sync reports to
func (r *RoleSyncer) SetMetrics(m Metrics) {
	r.metrics = m
}

// Enabled reports whether role sync performs any chat calls
func (r *RoleSyncer) Enabled() bool {
	return r != nil && r.chat != nil && r.chat.Enabled()
}

// actionFor maps a subscription status to the role change it requires
func actionFor(status string) string {
	switch status {
	case store.StatusActive:
		return ActionGrant
	case store.StatusCanceled, store.StatusUnpaid, store.StatusPastDue:
		return ActionRevoke
	default:
		return ActionNone
	}
}

// Sync grants or revokes the member role of the chat account linked to email
// and returns the action attempted
func (r *RoleSyncer) Sync(ctx context.Context, email, status string) string {
	if !r.Enabled() {
		return ActionNone
	}
	action := actionFor(status)
	if action == ActionNone {
		return ActionNone
	}

	log := r.log.With("email", email, "status", status, "action", action)

	conn, err := r.store.GetDiscordConnection(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug("no discord account linked, skipping role sync")
		return ActionNone
	}
	if err != nil {
		log.Error("failed to load discord connection", "error", err)
		r.metrics.RoleSync(action, "error")
		return ActionNone
	}
	log = log.With("discord_user_id", conn.DiscordUserID)

	member, err := r.chat.IsGuildMember(ctx, conn.DiscordUserID)
	if err != nil {
		log.Error("failed to check guild membership", "error", err)
		r.metrics.RoleSync(action, "error")
		return ActionNone
	}
	if !member {
		log.Warn("discord user is not a guild member, skipping role sync")
		r.metrics.RoleSync(action, "not_member")
		return ActionNone
	}

	switch action {
	case ActionGrant:
		if err := r.chat.AddRole(ctx, conn.DiscordUserID); err != nil {
			log.Error("failed to grant member role", "error", err)
			r.metrics.RoleSync(action, "error")
			return action
		}
		r.sendDM(ctx, log, conn.DiscordUserID, welcomeMessage(r.inviteURL))
	case ActionRevoke:
		if err := r.chat.RemoveRole(ctx, conn.DiscordUserID); err != nil {
			log.Error("failed to revoke member role", "error", err)
			r.metrics.RoleSync(action, "error")
			return action
		}
		r.sendDM(ctx, log, conn.DiscordUserID, farewellMessage(r.baseURL, status))
	}

	log.Info("discord role synced")
	r.metrics.RoleSync(action, "ok")
	return action
}

func (r *RoleSyncer) sendDM(ctx context.Context, log logger.Logger, userID, content string) {
	if err := r.chat.SendDM(ctx, userID, content); err != nil {
		log.Warn("failed to send direct message", "error", err)
	}
}
