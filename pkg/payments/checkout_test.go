package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrialEnd(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name  string
		start *time.Time
		want  *time.Time
	}{
		{name: "No start date", start: nil, want: nil},
		{name: "Start date in the past", start: at(-24 * time.Hour), want: nil},
		{name: "Start date is now", start: at(0), want: nil},
		{name: "One day ahead charges immediately", start: at(24 * time.Hour), want: nil},
		{name: "Just under two days charges immediately", start: at(MinTrialWindow - time.Second), want: nil},
		{name: "Exactly two days uses trial", start: at(MinTrialWindow), want: at(MinTrialWindow)},
		{name: "Ten days ahead uses trial", start: at(10 * 24 * time.Hour), want: at(10 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrialEnd(tt.start, now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got))
		})
	}
}

func TestToCents(t *testing.T) {
	assert.Equal(t, int64(5000), ToCents(50))
	assert.Equal(t, int64(1999), ToCents(19.99))
	assert.Equal(t, int64(0), ToCents(0))
}

func TestMembershipCheckoutParams(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Success - No start date bills immediately", func(t *testing.T) {
		params := MembershipCheckoutParams(MembershipItem{
			ID:           5,
			Name:         "Pro",
			MonthlyPrice: 50,
		}, "", "https://shop.example.com", "usd", now)

		assert.Equal(t, "subscription", *params.Mode)
		require.Len(t, params.LineItems, 1)
		item := params.LineItems[0]
		assert.Equal(t, int64(1), *item.Quantity)
		assert.Equal(t, int64(5000), *item.PriceData.UnitAmount)
		assert.Equal(t, "usd", *item.PriceData.Currency)
		require.NotNil(t, item.PriceData.Recurring)
		assert.Equal(t, "month", *item.PriceData.Recurring.Interval)
		assert.Equal(t, "Pro", *item.PriceData.ProductData.Name)

		assert.Nil(t, params.SubscriptionData.TrialEnd)
		assert.Equal(t, "5", params.Metadata[MetadataMembershipID])
		assert.Equal(t, TypeMembership, params.Metadata[MetadataType])
		assert.Equal(t, "5", params.SubscriptionData.Metadata[MetadataMembershipID])
		assert.NotContains(t, params.SubscriptionData.Metadata, MetadataMembershipStartDate)
		assert.Nil(t, params.CustomerEmail)

		assert.Equal(t, "https://shop.example.com/subscription/success?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
		assert.Equal(t, "https://shop.example.com/", *params.CancelURL)
	})

	t.Run("Success - Start date ten days out sets trial end", func(t *testing.T) {
		start := now.Add(10 * 24 * time.Hour)
		params := MembershipCheckoutParams(MembershipItem{
			ID:           7,
			Name:         "Cohort",
			MonthlyPrice: 120,
			StartDate:    &start,
		}, "trader@example.com", "https://shop.example.com", "usd", now)

		require.NotNil(t, params.SubscriptionData.TrialEnd)
		assert.Equal(t, start.Unix(), *params.SubscriptionData.TrialEnd)
		assert.Equal(t, start.Format(time.RFC3339), params.SubscriptionData.Metadata[MetadataMembershipStartDate])
		assert.Equal(t, "trader@example.com", *params.CustomerEmail)
	})

	t.Run("Success - Start date one day out bills immediately", func(t *testing.T) {
		start := now.Add(24 * time.Hour)
		params := MembershipCheckoutParams(MembershipItem{
			ID:           7,
			Name:         "Cohort",
			MonthlyPrice: 120,
			StartDate:    &start,
		}, "", "https://shop.example.com", "usd", now)

		assert.Nil(t, params.SubscriptionData.TrialEnd)
		assert.Contains(t, params.SubscriptionData.Metadata, MetadataMembershipStartDate)
	})
}

func TestCourseCheckoutParams(t *testing.T) {
	image := "https://cdn.example.com/course.png"
	params := CourseCheckoutParams(CourseItem{
		ID:          3,
		Title:       "Price Action",
		Description: "Read the tape",
		Price:       199.99,
		ImageURL:    &image,
	}, "https://shop.example.com", "usd")

	assert.Equal(t, "payment", *params.Mode)
	require.Len(t, params.LineItems, 1)
	price := params.LineItems[0].PriceData
	assert.Equal(t, int64(19999), *price.UnitAmount)
	assert.Nil(t, price.Recurring)
	require.Len(t, price.ProductData.Images, 1)
	assert.Equal(t, image, *price.ProductData.Images[0])
	assert.Equal(t, "3", params.Metadata[MetadataCourseID])
	assert.Equal(t, "https://shop.example.com/success?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
	assert.Nil(t, params.SubscriptionData)
}
