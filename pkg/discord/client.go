package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

// ErrNotConfigured is returned when bot credentials or the guild are missing
var ErrNotConfigured = errors.New("discord is not configured")

// Config holds Discord application and bot settings
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BotToken     string
	GuildID      string
	MemberRoleID string
	InviteURL    string

	// OAuthBaseURL overrides https://discord.com for the OAuth2 endpoints, used by tests
	OAuthBaseURL string
	HTTPClient   *http.Client
}

// User is the Discord identity behind an access token
type User struct {
	ID            string
	Username      string
	Discriminator string
}

// Tag renders the user the way Discord shows legacy handles
func (u *User) Tag() string {
	return u.Username + "#" + u.Discriminator
}

// Token is the result of an OAuth2 code exchange
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Client talks to the Discord REST API with the bot token and runs the
// OAuth2 link flow with the application credentials
type Client struct {
	bot        *discordgo.Session
	oauth      *oauth2.Config
	config     Config
	httpClient *http.Client
}

// NewClient creates a Discord client. Rate-limited or failed calls are not retried.
func NewClient(cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	base := cfg.OAuthBaseURL
	if base == "" {
		base = "https://discord.com"
	}

	c := &Client{
		config:     cfg,
		httpClient: httpClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "guilds.join"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/api/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}

	if cfg.BotToken != "" {
		bot, err := newSession("Bot "+cfg.BotToken, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create discord session: %w", err)
		}
		c.bot = bot
	}

	return c, nil
}

func newSession(token string, httpClient *http.Client) (*discordgo.Session, error) {
	s, err := discordgo.New(token)
	if err != nil {
		return nil, err
	}
	s.Client = httpClient
	s.MaxRestRetries = 0
	s.ShouldRetryOnRateLimit = false
	return s, nil
}

// Enabled reports whether role sync can run
func (c *Client) Enabled() bool {
	return c.bot != nil && c.config.GuildID != "" && c.config.MemberRoleID != ""
}

// InviteURL returns the guild invite shown to customers
func (c *Client) InviteURL() string {
	return c.config.InviteURL
}

// AuthURL returns the authorize URL a customer is redirected to
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode trades an authorization code for a user token
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// CurrentUser fetches the identity behind a user access token
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	s, err := newSession("Bearer "+accessToken, c.httpClient)
	if err != nil {
		return nil, err
	}
	u, err := s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user: %w", err)
	}
	return &User{ID: u.ID, Username: u.Username, Discriminator: u.Discriminator}, nil
}

// IsGuildMember reports whether the user has joined the configured guild
func (c *Client) IsGuildMember(ctx context.Context, userID string) (bool, error) {
	if !c.Enabled() {
		return false, ErrNotConfigured
	}
	_, err := c.bot.GuildMember(c.config.GuildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch guild member: %w", err)
	}
	return true, nil
}

// AddRole grants the member role
func (c *Client) AddRole(ctx context.Context, userID string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if err := c.bot.GuildMemberRoleAdd(c.config.GuildID, userID, c.config.MemberRoleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	log.Printf("✅ Discord role added to user %s", userID)
	return nil
}

// RemoveRole revokes the member role
func (c *Client) RemoveRole(ctx context.Context, userID string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if err := c.bot.GuildMemberRoleRemove(c.config.GuildID, userID, c.config.MemberRoleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}
	log.Printf("🔒 Discord role removed from user %s", userID)
	return nil
}

// SendDM opens a direct channel with the user and posts a message
func (c *Client) SendDM(ctx context.Context, userID, content string) error {
	if c.bot == nil {
		return ErrNotConfigured
	}
	ch, err := c.bot.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open dm channel: %w", err)
	}
	if _, err := c.bot.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send dm: %w", err)
	}
	return nil
}
