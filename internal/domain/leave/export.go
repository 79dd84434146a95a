package leave

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

var balanceHeaders = []string{"Employee", "Policy", "Paid", "Year", "Initial days", "Max days", "Days taken", "Days remaining"}

func balanceRecord(b LedgerBalance) []string {
	paid := "no"
	if b.Paid {
		paid = "yes"
	}
	return []string{
		b.EmployeeName,
		b.PolicyTitle,
		paid,
		strconv.Itoa(b.Year),
		strconv.Itoa(b.InitialDays),
		strconv.Itoa(b.MaxDaysAllowed),
		strconv.Itoa(b.DaysTaken),
		strconv.Itoa(b.DaysRemaining),
	}
}

func WriteBalancesCSV(w io.Writer, rows []LedgerBalance) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(balanceHeaders); err != nil {
		return err
	}
	for _, b := range rows {
		if err := writer.Write(balanceRecord(b)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteBalancesPDF(w io.Writer, year int, rows []LedgerBalance) error {
	widths := []float64{50, 50, 14, 14, 24, 22, 24, 28}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Leave balances %d", year))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range balanceHeaders {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, b := range rows {
		for i, value := range balanceRecord(b) {
			align := "R"
			if i < 3 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, value, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

const balanceSheet = "Balances"

func WriteBalancesXLSX(w io.Writer, rows []LedgerBalance) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", balanceSheet); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(balanceHeaders))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(balanceSheet, "A", lastCol, 20); err != nil {
		return err
	}
	if err := f.SetSheetRow(balanceSheet, "A1", &balanceHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(balanceSheet, "A1", lastCol+"1", style); err != nil {
		return err
	}

	for i, b := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{b.EmployeeName, b.PolicyTitle, b.Paid, b.Year, b.InitialDays, b.MaxDaysAllowed, b.DaysTaken, b.DaysRemaining}
		if err := f.SetSheetRow(balanceSheet, cell, &row); err != nil {
			return err
		}
	}
	_, err = f.WriteTo(w)
	return err
}
