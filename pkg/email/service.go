package email

import (
	"encoding/base64"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const defaultSendGridHost = "https://api.sendgrid.com"

// Attachment is a file sent along with an email
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	sendGridKey string
	sendGridURL string
	useSendGrid bool
}

// NewService creates a new email service
// If sendGridAPIKey is provided, emails will be sent via SendGrid
// Otherwise, emails will be logged to console (development mode)
func NewService(fromEmail, fromName, sendGridAPIKey string) *Service {
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Printf("✅ Email service initialized with SendGrid")
	} else {
		log.Printf("⚠️  Email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		sendGridKey: sendGridAPIKey,
		sendGridURL: defaultSendGridHost,
		useSendGrid: useSendGrid,
	}
}

// SetSendGridHost points the service at a different SendGrid host
func (s *Service) SetSendGridHost(host string) {
	s.sendGridURL = host
}

// SendWithAttachments sends an email carrying file attachments.
// Uses SendGrid in production, logs to console in development.
func (s *Service) SendWithAttachments(toEmail, toName, subject, htmlBody, plainTextBody string, attachments ...Attachment) error {
	if !s.useSendGrid {
		return s.logEmailToConsole(toEmail, toName, subject, attachments)
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)

	for _, att := range attachments {
		a := mail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.Content))
		a.SetType(att.ContentType)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		message.AddAttachment(a)
	}

	return s.sendViaSendGrid(toEmail, message)
}

// sendViaSendGrid sends email using SendGrid API
func (s *Service) sendViaSendGrid(toEmail string, message *mail.SGMailV3) error {
	request := sendgrid.GetRequest(s.sendGridKey, "/v3/mail/send", s.sendGridURL)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequest(request)
	if err != nil {
		log.Printf("❌ SendGrid error: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		log.Printf("❌ SendGrid returned error status %d: %s", response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	log.Printf("✅ Email sent successfully to %s (SendGrid status: %d)", toEmail, response.StatusCode)
	return nil
}

// logEmailToConsole logs email details to console (development mode)
func (s *Service) logEmailToConsole(toEmail, toName, subject string, attachments []Attachment) error {
	log.Printf("📧 [EMAIL] %s", subject)
	log.Printf("   To: %s <%s>", toName, toEmail)
	log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
	for _, att := range attachments {
		log.Printf("   Attachment: %s (%s, %d bytes)", att.Filename, att.ContentType, len(att.Content))
	}
	log.Printf("   ⚠️  Email NOT sent (development mode)")
	return nil
}
