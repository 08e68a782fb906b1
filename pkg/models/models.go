package models

import (
	"strings"
	"time"

	"github.com/inversionreal/storefront/pkg/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LoginRequest represents an admin login request
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the admin session token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MembershipRequest is the admin payload to create or edit a membership
type MembershipRequest struct {
	Name         string     `json:"name" validate:"required,max=255"`
	Description  string     `json:"description" validate:"max=5000"`
	MonthlyPrice float64    `json:"monthlyPrice" validate:"gt=0"`
	Benefits     string     `json:"benefits" validate:"max=5000"`
	IsActive     *bool      `json:"isActive"`
	ImageURL     *string    `json:"imageUrl" validate:"omitempty,url"`
	StartDate    *time.Time `json:"startDate"`
}

// ToInput maps the request to store fields. Memberships are active unless stated otherwise.
func (r MembershipRequest) ToInput() store.MembershipInput {
	return store.MembershipInput{
		Name:         strings.TrimSpace(r.Name),
		Description:  r.Description,
		MonthlyPrice: r.MonthlyPrice,
		Benefits:     r.Benefits,
		IsActive:     r.IsActive == nil || *r.IsActive,
		ImageURL:     emptyToNil(r.ImageURL),
		StartDate:    r.StartDate,
	}
}

// CourseRequest is the admin payload to create or edit a course
type CourseRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=5000"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
	Price       float64 `json:"price" validate:"gt=0"`
	IsActive    *bool   `json:"isActive"`
}

// ToInput maps the request to store fields
func (r CourseRequest) ToInput() store.CourseInput {
	return store.CourseInput{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		ImageURL:    emptyToNil(r.ImageURL),
		Price:       r.Price,
		IsActive:    r.IsActive == nil || *r.IsActive,
	}
}

// CourseCheckoutRequest starts a course purchase
type CourseCheckoutRequest struct {
	CourseID int `json:"courseId" validate:"required,min=1"`
}

// SubscriptionCheckoutRequest starts a membership subscription
type SubscriptionCheckoutRequest struct {
	MembershipID  int    `json:"membershipId" validate:"required,min=1"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
}

// CheckoutResponse is returned for a created checkout session
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CancelSubscriptionRequest schedules a subscription to end with its period
type CancelSubscriptionRequest struct {
	StripeSubscriptionID string `json:"stripeSubscriptionId" validate:"required"`
}

// CancelSubscriptionResponse reports when access ends
type CancelSubscriptionResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	PeriodEnd *time.Time `json:"periodEnd,omitempty"`
}

// TermsAcceptanceRequest records that a customer accepted the membership terms
type TermsAcceptanceRequest struct {
	CustomerName   string `json:"customerName" validate:"required,max=255"`
	CustomerEmail  string `json:"customerEmail" validate:"required,email"`
	MembershipName string `json:"membershipName"`
}

// DiscordStatusResponse reports whether an email has a linked Discord account
type DiscordStatusResponse struct {
	Connected       bool   `json:"connected"`
	DiscordUsername string `json:"discordUsername,omitempty"`
	DiscordUserID   string `json:"discordUserId,omitempty"`
	InviteURL       string `json:"inviteUrl,omitempty"`
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
