package contracts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

//go:embed terms.txt
var termsText string

// Document is the content printed on a contract
type Document struct {
	MembershipName       string
	CustomerName         string
	CustomerEmail        string
	StripeSubscriptionID string
	AcceptedAt           time.Time
	Terms                string
}

// encode maps text to Windows-1252, the code page of the PDF core fonts.
// Runes outside it become '?'.
func encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			c = '?'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Render lays out the acceptance record as an A4 PDF
func Render(doc Document) ([]byte, error) {
	terms := doc.Terms
	if terms == "" {
		terms = termsText
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(encode("Contrato de aceptación - "+doc.MembershipName), false)
	pdf.SetAuthor(encode("Inversión Real"), false)
	pdf.SetCreationDate(doc.AcceptedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, encode("Contrato de Aceptación de Términos"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	fields := [][2]string{
		{"Membresía", doc.MembershipName},
		{"Cliente", doc.CustomerName},
		{"Email", doc.CustomerEmail},
		{"Suscripción", doc.StripeSubscriptionID},
		{"Fecha de aceptación", doc.AcceptedAt.UTC().Format("2006-01-02 15:04:05 MST")},
	}
	for _, f := range fields {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 7, encode(f[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, encode(f[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 9)
	for _, para := range strings.Split(strings.TrimSpace(terms), "\n\n") {
		pdf.MultiCell(0, 4.5, encode(para), "", "L", false)
		pdf.Ln(2)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 4.5, encode(fmt.Sprintf(
		"%s (%s) aceptó estos términos electrónicamente el %s.",
		doc.CustomerName, doc.CustomerEmail, doc.AcceptedAt.UTC().Format("02/01/2006"),
	)), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render contract pdf: %w", err)
	}
	return buf.Bytes(), nil
}
