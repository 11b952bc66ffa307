// Package spreadsheet reads student imports from and writes fee exports to xlsx workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/student"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	studentsSheet = "Students"
	feesSheet     = "Fees"
	dateLayout    = "2006-01-02"
)

var (
	ErrNoSheet      = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the workbook has no sheet"})
	ErrMissingName  = core.NewValidationError(nil, core.FieldError{Field: "file", Error: `the header row must have a "name" column`})
	ErrInvalidExcel = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the file is not a valid xlsx workbook"})

	feeHeader = []interface{}{
		"Student", "Batch", "Fee", "Category", "Period", "Amount", "Paid", "Outstanding", "Status", "Due Date", "Paid At",
	}
)

// ReadStudentRows reads the first sheet of an xlsx workbook. The first row is the header;
// every following row is keyed by its lower-cased header.
// Rows keep their position so that row i of the result is line i+2 of the sheet.
func ReadStudentRows(r io.Reader) ([]student.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ErrInvalidExcel
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading rows of sheet %s", sheet)
	}
	if len(rows) == 0 {
		return nil, ErrMissingName
	}

	header := make([]string, len(rows[0]))
	hasName := false
	for i, col := range rows[0] {
		header[i] = strings.ReplaceAll(core.CleanString(col, true /* lower */), " ", "_")
		hasName = hasName || header[i] == "name"
	}
	if !hasName {
		return nil, ErrMissingName
	}

	out := make([]student.ImportRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(student.ImportRow, len(header))
		for i, cell := range cells {
			if i < len(header) && header[i] != "" {
				row[header[i]] = cell
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteStudentTemplate writes an empty import workbook: the header row only.
func WriteStudentTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", studentsSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	header := make([]interface{}, 0, len(student.ImportHeader))
	for _, col := range student.ImportHeader {
		header = append(header, col)
	}
	if err := writeHeader(f, studentsSheet, header); err != nil {
		return err
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

// WriteFees writes fees to a single-sheet workbook, one row per fee.
func WriteFees(w io.Writer, fees []fee.StudentFee, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", feesSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := writeHeader(f, feesSheet, feeHeader); err != nil {
		return err
	}

	for i, fe := range fees {
		status := fe.Status
		if fe.IsOverdue(now) {
			status = fee.StatusOverdue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			fe.StudentName, fe.Batch, fe.StructureName, fe.Category, fe.Period,
			fe.Amount, fe.PaidAmount, fe.Outstanding(), status,
			formatDate(fe.DueDate), formatDate(fe.PaidAt),
		}
		if err := f.SetSheetRow(feesSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if err := f.SetColWidth(feesSheet, "A", "C", 24); err != nil {
		return errors.Wrap(err, "sizing columns")
	}
	if len(fees) > 0 {
		moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err != nil {
			return errors.Wrap(err, "creating money style")
		}
		last := fmt.Sprintf("H%d", len(fees)+1)
		if err := f.SetCellStyle(feesSheet, "F2", last, moneyStyle); err != nil {
			return errors.Wrap(err, "styling amounts")
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

func writeHeader(f *excelize.File, sheet string, header []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	return errors.Wrap(f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}), "freezing header")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
