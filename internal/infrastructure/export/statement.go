package export

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/communal/backend/internal/domain/billing"
)

// Format is a statement document format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned by ParseFormat for anything but xlsx and pdf
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// ParseFormat reads a format query value; empty means xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName returns the download name for a statement
func (f Format) FileName(stmt *billing.Statement) string {
	return fmt.Sprintf("statement-house-%d-%s.%s", stmt.HouseID, stmt.Period, f)
}

// Build renders stmt in format f
func Build(f Format, stmt *billing.Statement) ([]byte, error) {
	if f == FormatPDF {
		return BuildStatementPDF(stmt)
	}
	return BuildStatementXLSX(stmt)
}

const statementSheet = "Statement"

var columnHeaders = []string{"Apartment", "Area", "Service", "Consumption", "Unit", "Cost"}

// BuildStatementXLSX renders one row per apartment line item, followed by the
// apartment subtotal, and a grand total at the bottom.
func BuildStatementXLSX(stmt *billing.Statement) ([]byte, error) {
	if stmt == nil {
		return nil, errors.New("statement is nil")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", statementSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(statementSheet, cell, value)
	}
	boldRow := func(row int) {
		from, _ := excelize.CoordinatesToCellName(1, row)
		to, _ := excelize.CoordinatesToCellName(len(columnHeaders), row)
		_ = f.SetCellStyle(statementSheet, from, to, bold)
	}

	set(1, 1, "Utility statement")
	boldRow(1)
	set(1, 2, "Address")
	set(2, 2, stmt.Address)
	set(1, 3, "Period")
	set(2, 3, stmt.Period.String())
	set(1, 4, "Generated")
	set(2, 4, stmt.GeneratedAt.UTC().Format(time.RFC3339))

	row := 6
	for i, h := range columnHeaders {
		set(i+1, row, h)
	}
	boldRow(row)

	for _, apt := range stmt.Apartments {
		label := apartmentLabel(apt)
		for _, line := range apt.Charge {
			row++
			set(1, row, label)
			set(2, row, money(apt.Area))
			set(3, row, line.Name)
			set(4, row, money(line.Consumption))
			set(5, row, line.Unit)
			set(6, row, money(line.Cost))
		}
		row++
		set(1, row, label)
		set(3, row, "Subtotal")
		set(6, row, money(apt.Total()))
		boldRow(row)
	}

	row += 2
	set(1, row, "Total")
	set(6, row, money(stmt.Total()))
	boldRow(row)

	_ = f.SetColWidth(statementSheet, "A", "A", 14)
	_ = f.SetColWidth(statementSheet, "C", "C", 28)
	_ = f.SetColWidth(statementSheet, "D", "F", 14)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

var pdfWidths = []float64{28, 20, 56, 30, 18, 28}

// BuildStatementPDF renders the same table as BuildStatementXLSX on A4 pages
func BuildStatementPDF(stmt *billing.Statement) ([]byte, error) {
	if stmt == nil {
		return nil, errors.New("statement is nil")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; the translator keeps m² and m³ readable
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Utility statement %s", stmt.Period), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Utility statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr("Address: "+stmt.Address))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Period: "+stmt.Period.String())
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+stmt.GeneratedAt.UTC().Format(time.RFC3339))
	pdf.Ln(9)

	tableRow := func(style string, cells ...string) {
		pdf.SetFont("Arial", style, 9)
		for i, c := range cells {
			align := "L"
			if i == 1 || i == 3 || i == 5 {
				align = "R"
			}
			pdf.CellFormat(pdfWidths[i], 6, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	tableRow("B", columnHeaders...)
	for _, apt := range stmt.Apartments {
		label := apartmentLabel(apt)
		for _, line := range apt.Charge {
			tableRow("", label, apt.Area.StringFixed(billing.MoneyPlaces), line.Name,
				line.Consumption.StringFixed(billing.MoneyPlaces), line.Unit,
				line.Cost.StringFixed(billing.MoneyPlaces))
		}
		tableRow("B", label, "", "Subtotal", "", "", apt.Total().StringFixed(billing.MoneyPlaces))
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Total: "+stmt.Total().StringFixed(billing.MoneyPlaces))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func apartmentLabel(apt billing.StatementApartment) string {
	if apt.Number != nil {
		return "No. " + strconv.Itoa(*apt.Number)
	}
	return "#" + strconv.FormatInt(apt.ApartmentID, 10)
}

func money(d decimal.Decimal) float64 {
	return d.Round(billing.MoneyPlaces).InexactFloat64()
}
