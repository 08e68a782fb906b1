package contracts

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/inversionreal/storefront/pkg/email"
	"github.com/inversionreal/storefront/pkg/store"
)

// Store persists contracts
type Store interface {
	CreateContract(ctx context.Context, c store.Contract) (*store.Contract, error)
	SetContractStorageKey(ctx context.Context, id int, key string) error
}

// Mailer delivers the contract to the internal inbox
type Mailer interface {
	SendWithAttachments(toEmail, toName, subject, htmlBody, plainTextBody string, attachments ...email.Attachment) error
}

// Archive keeps a copy of each contract in object storage
type Archive interface {
	ContractKey(subscriptionID int) string
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Service generates, stores and delivers terms acceptance contracts
type Service struct {
	store   Store
	mailer  Mailer
	archive Archive
	inbox   string
	now     func() time.Time
}

// NewService creates a contract service that emails every contract to inbox
func NewService(st Store, mailer Mailer, inbox string) *Service {
	return &Service{
		store:  st,
		mailer: mailer,
		inbox:  inbox,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetArchive enables archiving contract PDFs to object storage
func (s *Service) SetArchive(a Archive) {
	s.archive = a
}

// Generate renders the acceptance contract for a new subscription, stores it and emails it.
// A subscription already holding a contract yields store.ErrDuplicate and nothing is sent.
// Archive failures are logged; the contract is still stored and emailed.
func (s *Service) Generate(ctx context.Context, sub *store.Subscription, membership *store.Membership) (*store.Contract, error) {
	acceptedAt := s.now()

	pdf, err := Render(Document{
		MembershipName:       membership.Name,
		CustomerName:         sub.CustomerName,
		CustomerEmail:        sub.CustomerEmail,
		StripeSubscriptionID: sub.StripeSubscriptionID,
		AcceptedAt:           acceptedAt,
	})
	if err != nil {
		return nil, err
	}

	contract, err := s.store.CreateContract(ctx, store.Contract{
		SubscriptionID: sub.ID,
		CustomerEmail:  sub.CustomerEmail,
		CustomerName:   sub.CustomerName,
		PDFContent:     pdf,
		AcceptanceDate: acceptedAt,
	})
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		key, err := s.archive.Put(ctx, s.archive.ContractKey(sub.ID), "application/pdf", pdf)
		if err != nil {
			log.Printf("⚠️  Failed to archive contract %d: %v", contract.ID, err)
		} else if err := s.store.SetContractStorageKey(ctx, contract.ID, key); err != nil {
			log.Printf("⚠️  Failed to record archive key for contract %d: %v", contract.ID, err)
		} else {
			contract.StorageKey = &key
		}
	}

	subject := fmt.Sprintf("Nuevo contrato: %s - %s", membership.Name, sub.CustomerName)
	plain := fmt.Sprintf("Nueva suscripción a %s.\n\nCliente: %s\nEmail: %s\nSuscripción: %s\nFecha de aceptación: %s\n\nEl contrato firmado se adjunta en PDF.",
		membership.Name, sub.CustomerName, sub.CustomerEmail, sub.StripeSubscriptionID, acceptedAt.Format(time.RFC3339))
	htmlBody := fmt.Sprintf(`<html><body>
<h2>Nueva suscripción a %s</h2>
<p><strong>Cliente:</strong> %s<br><strong>Email:</strong> %s<br><strong>Suscripción:</strong> %s<br><strong>Fecha de aceptación:</strong> %s</p>
<p>El contrato firmado se adjunta en PDF.</p>
</body></html>`,
		html.EscapeString(membership.Name), html.EscapeString(sub.CustomerName), html.EscapeString(sub.CustomerEmail),
		html.EscapeString(sub.StripeSubscriptionID), acceptedAt.Format(time.RFC3339))

	attachment := email.Attachment{
		Filename:    fmt.Sprintf("contrato-%s.pdf", sub.StripeSubscriptionID),
		ContentType: "application/pdf",
		Content:     pdf,
	}
	if err := s.mailer.SendWithAttachments(s.inbox, "Contratos", subject, htmlBody, plain, attachment); err != nil {
		return contract, fmt.Errorf("failed to email contract %d: %w", contract.ID, err)
	}

	log.Printf("📄 Contract %d generated for subscription %s", contract.ID, sub.StripeSubscriptionID)
	return contract, nil
}
