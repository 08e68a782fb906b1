package testdata

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/inversionreal/storefront/pkg/database"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/stretchr/testify/require"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// OpenDB returns a migrated in-memory SQLite database private to the test
func OpenDB(t *testing.T) *database.Client {
	t.Helper()

	name := unsafeName.ReplaceAllString(t.Name(), "_") + "_" + uuid.NewString()[:8]
	client, err := database.NewClient(fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))
	require.NoError(t, err)
	require.NoError(t, client.Migrate())

	t.Cleanup(func() { client.Close() })
	return client
}

// OpenStore returns a store over a fresh test database
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(OpenDB(t))
}

// MembershipInput returns a random active membership priced between 20 and 200 dollars
func MembershipInput() store.MembershipInput {
	return store.MembershipInput{
		Name:         gofakeit.BuzzWord() + " Membership",
		Description:  gofakeit.Sentence(12),
		MonthlyPrice: float64(gofakeit.Number(20, 200)),
		Benefits:     gofakeit.Sentence(8),
		IsActive:     true,
	}
}

// CourseInput returns a random active course
func CourseInput() store.CourseInput {
	return store.CourseInput{
		Title:       gofakeit.HipsterWord() + " Trading Course",
		Description: gofakeit.Sentence(10),
		Price:       float64(gofakeit.Number(50, 500)),
		IsActive:    true,
	}
}

// CreateMembership inserts a random membership
func CreateMembership(t *testing.T, s *store.Store) *store.Membership {
	t.Helper()
	m, err := s.CreateMembership(context.Background(), MembershipInput())
	require.NoError(t, err)
	return m
}

// CreateCourse inserts a random course
func CreateCourse(t *testing.T, s *store.Store) *store.Course {
	t.Helper()
	c, err := s.CreateCourse(context.Background(), CourseInput())
	require.NoError(t, err)
	return c
}

// SubscriptionInput returns an active subscription for a membership with a random customer
func SubscriptionInput(membershipID int) store.SubscriptionInput {
	start := time.Now().UTC().Truncate(time.Second)
	end := start.AddDate(0, 1, 0)
	return store.SubscriptionInput{
		MembershipID:         membershipID,
		CustomerEmail:        gofakeit.Email(),
		CustomerName:         gofakeit.Name(),
		StripeSubscriptionID: "sub_" + gofakeit.LetterN(14),
		StripeCustomerID:     "cus_" + gofakeit.LetterN(14),
		Status:               store.StatusActive,
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
	}
}

// CreateSubscription inserts an active subscription for a membership
func CreateSubscription(t *testing.T, s *store.Store, membershipID int) *store.Subscription {
	t.Helper()
	sub, err := s.CreateSubscription(context.Background(), SubscriptionInput(membershipID))
	require.NoError(t, err)
	return sub
}
