package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/inversionreal/storefront/pkg/store"
	"github.com/xuri/excelize/v2"
)

// Content types of the supported export formats
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"
)

const sheetName = "Suscripciones"

var headers = []string{
	"ID", "Membresía", "Cliente", "Email", "Estado", "Cancela al final del periodo",
	"Inicio del periodo", "Fin del periodo", "Suscripción Stripe", "Cliente Stripe",
	"Discord", "Creada",
}

// rows flattens subscriptions into string cells. membershipNames maps membership id to name.
func rows(subs []*store.Subscription, membershipNames map[int]string) [][]string {
	out := make([][]string, 0, len(subs))
	for _, s := range subs {
		name := membershipNames[s.MembershipID]
		if name == "" {
			name = strconv.Itoa(s.MembershipID)
		}
		discordID := ""
		if s.DiscordUserID != nil {
			discordID = *s.DiscordUserID
		}
		cancel := "No"
		if s.CancelAtPeriodEnd {
			cancel = "Sí"
		}
		out = append(out, []string{
			strconv.Itoa(s.ID), name, s.CustomerName, s.CustomerEmail, s.Status, cancel,
			formatTime(s.CurrentPeriodStart), formatTime(s.CurrentPeriodEnd),
			s.StripeSubscriptionID, s.StripeCustomerID, discordID,
			s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// SubscriptionsXLSX renders subscriptions as an Excel workbook
func SubscriptionsXLSX(subs []*store.Subscription, membershipNames map[int]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for r, row := range rows(subs, membershipNames) {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheetName, "A", last, 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SubscriptionsCSV renders subscriptions as CSV with a header row
func SubscriptionsCSV(subs []*store.Subscription, membershipNames map[int]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows(subs, membershipNames)); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
