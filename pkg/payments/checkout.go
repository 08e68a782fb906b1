package payments

import (
	"math"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
)

// MinTrialWindow is the shortest trial Stripe accepts. A start date closer than
// this is charged immediately instead.
const MinTrialWindow = 48 * time.Hour

// Checkout metadata keys read back by the webhook reconciler
const (
	MetadataCourseID            = "courseId"
	MetadataMembershipID        = "membershipId"
	MetadataType                = "type"
	MetadataMembershipStartDate = "membershipStartDate"

	TypeMembership = "membership"
)

// CourseItem is the product data of a course checkout
type CourseItem struct {
	ID          int
	Title       string
	Description string
	Price       float64
	ImageURL    *string
}

// MembershipItem is the product data of a membership checkout
type MembershipItem struct {
	ID           int
	Name         string
	Description  string
	MonthlyPrice float64
	StartDate    *time.Time
}

// TrialEnd decides whether a subscription starts with a trial.
// A start date at least MinTrialWindow ahead becomes the trial end; anything else bills now.
func TrialEnd(start *time.Time, now time.Time) *time.Time {
	if start == nil {
		return nil
	}
	if start.Sub(now) < MinTrialWindow {
		return nil
	}
	t := *start
	return &t
}

// ToCents converts a dollar amount to the smallest currency unit
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CourseCheckoutParams builds a one-time payment session for a course
func CourseCheckoutParams(item CourseItem, baseURL, currency string) *stripe.CheckoutSessionParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(item.Title),
	}
	if item.Description != "" {
		product.Description = stripe.String(item.Description)
	}
	if item.ImageURL != nil && *item.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{*item.ImageURL})
	}

	return &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(ToCents(item.Price)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			MetadataCourseID: strconv.Itoa(item.ID),
		},
		SuccessURL: stripe.String(baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(baseURL + "/"),
	}
}

// MembershipCheckoutParams builds a monthly subscription session for a membership
func MembershipCheckoutParams(item MembershipItem, customerEmail, baseURL, currency string, now time.Time) *stripe.CheckoutSessionParams {
	id := strconv.Itoa(item.ID)

	subMetadata := map[string]string{
		MetadataMembershipID: id,
		MetadataType:         TypeMembership,
	}
	if item.StartDate != nil {
		subMetadata[MetadataMembershipStartDate] = item.StartDate.UTC().Format(time.RFC3339)
	}

	subData := &stripe.CheckoutSessionSubscriptionDataParams{
		Metadata: subMetadata,
	}
	if trialEnd := TrialEnd(item.StartDate, now); trialEnd != nil {
		subData.TrialEnd = stripe.Int64(trialEnd.Unix())
	}

	description := "Monthly membership"
	if item.Description != "" {
		description += " - " + item.Description
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(item.Name),
						Description: stripe.String(description),
					},
					UnitAmount: stripe.Int64(ToCents(item.MonthlyPrice)),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			MetadataMembershipID: id,
			MetadataType:         TypeMembership,
		},
		SubscriptionData: subData,
		SuccessURL:       stripe.String(baseURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:        stripe.String(baseURL + "/"),
	}
	if customerEmail != "" {
		params.CustomerEmail = stripe.String(customerEmail)
	}
	return params
}
