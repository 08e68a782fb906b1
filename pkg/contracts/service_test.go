package contracts

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inversionreal/storefront/pkg/email"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/inversionreal/storefront/pkg/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	to          string
	subject     string
	attachments []email.Attachment
}

type mockMailer struct {
	sent []sentEmail
	err  error
}

func (m *mockMailer) SendWithAttachments(toEmail, toName, subject, htmlBody, plainTextBody string, attachments ...email.Attachment) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: toEmail, subject: subject, attachments: attachments})
	return nil
}

type mockArchive struct {
	objects map[string][]byte
	err     error
}

func (m *mockArchive) ContractKey(subscriptionID int) string {
	return "contracts/test.pdf"
}

func (m *mockArchive) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.objects[key] = body
	return key, nil
}

func TestRender(t *testing.T) {
	pdf, err := Render(Document{
		MembershipName:       "Trading en Vivo",
		CustomerName:         "José Núñez",
		CustomerEmail:        "jose@example.com",
		StripeSubscriptionID: "sub_123",
		AcceptedAt:           time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Greater(t, len(pdf), 1000)
}

func TestEncodeWindows1252(t *testing.T) {
	assert.Equal(t, "Jos\xe9", encode("José"))
	assert.Equal(t, "a?b", encode("a😀b"))
}

func TestGenerate(t *testing.T) {
	s := testdata.OpenStore(t)
	ctx := context.Background()
	m := testdata.CreateMembership(t, s)

	t.Run("Success - Stored, archived and emailed", func(t *testing.T) {
		sub := testdata.CreateSubscription(t, s, m.ID)
		mailer := &mockMailer{}
		archive := &mockArchive{objects: map[string][]byte{}}

		svc := NewService(s, mailer, "contracts@example.com")
		svc.SetArchive(archive)

		c, err := svc.Generate(ctx, sub, m)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, c.SubscriptionID)
		require.NotNil(t, c.StorageKey)
		assert.Equal(t, "contracts/test.pdf", *c.StorageKey)

		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "contracts@example.com", mailer.sent[0].to)
		require.Len(t, mailer.sent[0].attachments, 1)
		assert.Equal(t, "application/pdf", mailer.sent[0].attachments[0].ContentType)
		assert.Equal(t, c.PDFContent, archive.objects["contracts/test.pdf"])

		stored, err := s.GetContractBySubscription(ctx, sub.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.StorageKey)
	})

	t.Run("Failure - Second contract for the same subscription", func(t *testing.T) {
		sub := testdata.CreateSubscription(t, s, m.ID)
		mailer := &mockMailer{}
		svc := NewService(s, mailer, "contracts@example.com")

		_, err := svc.Generate(ctx, sub, m)
		require.NoError(t, err)

		_, err = svc.Generate(ctx, sub, m)
		assert.ErrorIs(t, err, store.ErrDuplicate)
		assert.Len(t, mailer.sent, 1)

		n, err := s.CountContracts(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Success - Archive failure does not block email", func(t *testing.T) {
		sub := testdata.CreateSubscription(t, s, m.ID)
		mailer := &mockMailer{}
		svc := NewService(s, mailer, "contracts@example.com")
		svc.SetArchive(&mockArchive{err: errors.New("s3 down")})

		c, err := svc.Generate(ctx, sub, m)
		require.NoError(t, err)
		assert.Nil(t, c.StorageKey)
		assert.Len(t, mailer.sent, 1)
	})

	t.Run("Failure - Email error is returned with the stored contract", func(t *testing.T) {
		sub := testdata.CreateSubscription(t, s, m.ID)
		svc := NewService(s, &mockMailer{err: errors.New("sendgrid down")}, "contracts@example.com")

		c, err := svc.Generate(ctx, sub, m)
		require.Error(t, err)
		require.NotNil(t, c)

		n, err := s.CountContracts(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
