package payment

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// BuildStatementXLSX renders a payout statement for one batch: a summary
// sheet and one row per item.
func BuildStatementXLSX(b *Batch, items []Item) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	itemsSheet := "items"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	summary := [][2]any{
		{"Payment Statement", ""},
		{"Batch", b.ID.String()},
		{"Psychologist", b.PsychologistName},
		{"Created by", b.CreatedByName},
		{"Created at", b.CreatedAt.Format(time.RFC3339)},
		{"Status", string(b.Status)},
		{"Appointments", len(items)},
		{"Total gross", b.TotalGrossValue.InexactFloat64()},
		{"Total net", b.TotalNetValue.InexactFloat64()},
	}
	if b.ApprovedAt != nil {
		summary = append(summary, [2]any{"Approved at", b.ApprovedAt.Format(time.RFC3339)})
	}
	if b.ContestedAt != nil {
		summary = append(summary, [2]any{"Contested at", b.ContestedAt.Format(time.RFC3339)})
	}
	if b.ContestationReason != nil {
		summary = append(summary, [2]any{"Contestation reason", *b.ContestationReason})
	}
	if b.PaidAt != nil {
		summary = append(summary, [2]any{"Paid at", b.PaidAt.Format(time.RFC3339)})
	}
	for i, row := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), row[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row[1])
	}

	headers := []string{"Date", "Patient", "Gross", "Commission %", "Net"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}
	for i, it := range items {
		row := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), it.AppointmentDate)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), it.PatientName)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), it.GrossValue.InexactFloat64())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), it.CommissionPercentage.InexactFloat64())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", row), it.NetValue.InexactFloat64())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
