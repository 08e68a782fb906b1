package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	apierrors "github.com/inversionreal/storefront/pkg/api/errors"
	"github.com/inversionreal/storefront/pkg/billing"
	"github.com/inversionreal/storefront/pkg/cache"
	"github.com/inversionreal/storefront/pkg/discord"
	"github.com/inversionreal/storefront/pkg/logger"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/labstack/echo/v4"
)

const (
	oauthStatePrefix = "discord:oauth:state:"
	oauthStateTTL    = 10 * time.Minute
)

// DiscordOAuth is the OAuth2 side of the Discord client
type DiscordOAuth interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*discord.Token, error)
	CurrentUser(ctx context.Context, accessToken string) (*discord.User, error)
	InviteURL() string
}

// DiscordHandler links customer emails to Discord accounts
type DiscordHandler struct {
	oauth   DiscordOAuth
	store   *store.Store
	cache   *cache.Client
	roles   *billing.RoleSyncer
	baseURL string
	log     logger.Logger
}

// NewDiscordHandler creates a new Discord link handler. A nil oauth disables the link flow.
func NewDiscordHandler(oauth DiscordOAuth, st *store.Store, c *cache.Client, roles *billing.RoleSyncer, baseURL string, log logger.Logger) *DiscordHandler {
	return &DiscordHandler{
		oauth:   oauth,
		store:   st,
		cache:   c,
		roles:   roles,
		baseURL: baseURL,
		log:     log,
	}
}

// Auth godoc
// @Summary Start Discord link
// @Description Store the email under a single-use state and redirect to Discord
// @Tags Discord
// @Param email query string true "Customer email"
// @Success 307 "Redirect to Discord"
// @Failure 400 {object} models.ErrorResponse "Missing email"
// @Failure 503 {object} models.ErrorResponse "Discord not configured"
// @Router /discord/auth [get]
func (h *DiscordHandler) Auth(c echo.Context) error {
	email := queryEmail(c)
	if email == "" {
		return apierrors.BadRequestError(c, "missing_email", "Email is required")
	}
	if h.oauth == nil {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "discord_not_configured",
			Message: "Discord is not configured",
		})
	}

	state := uuid.NewString()
	if err := h.cache.Set(c.Request().Context(), oauthStatePrefix+state, email, oauthStateTTL); err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthURL(state))
}

// Callback godoc
// @Summary Discord OAuth callback
// @Description Complete the link, record it on the customer's subscriptions and grant the member role when a subscription is active
// @Tags Discord
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by /discord/auth"
// @Success 307 "Redirect to the subscription page"
// @Router /discord/callback [get]
func (h *DiscordHandler) Callback(c echo.Context) error {
	code, state := c.QueryParam("code"), c.QueryParam("state")
	if code == "" || state == "" || h.oauth == nil {
		return h.redirectFailure(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	email, err := h.cache.Take(ctx, oauthStatePrefix+state)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			h.log.Error("failed to read oauth state", "error", err)
		}
		return h.redirectFailure(c)
	}
	log := h.log.With("email", email)

	token, err := h.oauth.ExchangeCode(ctx, code)
	if err != nil {
		log.Error("discord code exchange failed", "error", err)
		return h.redirectFailure(c)
	}

	user, err := h.oauth.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		log.Error("failed to fetch discord user", "error", err)
		return h.redirectFailure(c)
	}
	log = log.With("discord_user_id", user.ID)

	if _, err := h.store.UpsertDiscordConnection(ctx, store.DiscordConnection{
		CustomerEmail:   email,
		DiscordUserID:   user.ID,
		DiscordUsername: user.Tag(),
		AccessToken:     token.AccessToken,
		RefreshToken:    token.RefreshToken,
	}); err != nil {
		log.Error("failed to save discord connection", "error", err)
		return h.redirectFailure(c)
	}

	linked, err := h.store.LinkDiscordUser(ctx, email, user.ID)
	if err != nil {
		log.Error("failed to link subscriptions", "error", err)
		return h.redirectFailure(c)
	}

	active, err := h.store.HasActiveSubscription(ctx, email)
	if err != nil {
		log.Error("failed to check subscriptions", "error", err)
	} else if active {
		h.roles.Sync(ctx, email, store.StatusActive)
	}

	log.Info("discord account linked", "subscriptions", linked)
	return c.Redirect(http.StatusTemporaryRedirect, h.baseURL+"/subscription/manage?discord_connected=true")
}

// Status godoc
// @Summary Discord link status
// @Tags Discord
// @Produce json
// @Param email query string true "Customer email"
// @Success 200 {object} models.DiscordStatusResponse
// @Failure 400 {object} models.ErrorResponse "Missing email"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /discord/status [get]
func (h *DiscordHandler) Status(c echo.Context) error {
	email := queryEmail(c)
	if email == "" {
		return apierrors.BadRequestError(c, "missing_email", "Email is required")
	}

	conn, err := h.store.GetDiscordConnection(c.Request().Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusOK, models.DiscordStatusResponse{Connected: false})
	}
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	resp := models.DiscordStatusResponse{
		Connected:       true,
		DiscordUsername: conn.DiscordUsername,
		DiscordUserID:   conn.DiscordUserID,
	}
	if h.oauth != nil {
		resp.InviteURL = h.oauth.InviteURL()
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *DiscordHandler) redirectFailure(c echo.Context) error {
	return c.Redirect(http.StatusTemporaryRedirect, h.baseURL+"/subscription/manage?error=discord_auth_failed")
}
