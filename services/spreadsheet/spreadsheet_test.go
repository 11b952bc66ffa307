package spreadsheet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/student"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestReadStudentRows(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"Name", "Email", "Guardian Name", "Batch", "Notes"},
		[]interface{}{"Ann", "ann@example.com", "Mum", "2024-A"},
		[]interface{}{"Ben", "", "", "2024-B", "late joiner"},
	)

	rows, err := ReadStudentRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ann", rows[0]["name"])
	assert.Equal(t, "Mum", rows[0]["guardian_name"])
	assert.Equal(t, "2024-A", rows[0]["batch"])
	assert.Equal(t, "late joiner", rows[1]["notes"])
	assert.Empty(t, rows[1]["email"])

	t.Run("header without name", func(t *testing.T) {
		_, err := ReadStudentRows(workbook(t, []interface{}{"email", "batch"}))
		assert.Equal(t, ErrMissingName, err)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ReadStudentRows(strings.NewReader("name,email\nAnn,ann@example.com\n"))
		assert.Equal(t, ErrInvalidExcel, err)
	})
}

func TestWriteStudentTemplate(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteStudentTemplate(buf))
	data := buf.Bytes()

	rows, err := ReadStudentRows(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, rows)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	header, err := f.GetRows(studentsSheet)
	require.NoError(t, err)
	assert.Equal(t, student.ImportHeader, header[0])
}

func TestWriteFees(t *testing.T) {
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	fees := []fee.StudentFee{
		{
			StudentName: "Ann", Batch: "A", StructureName: "Maths", Category: fee.CategoryTuition, Period: "2024-03",
			Amount: 1000, PaidAmount: 400, Status: fee.StatusPartial, DueDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			StudentName: "Ben", Batch: "B", StructureName: "Maths", Category: fee.CategoryTuition, Period: "2024-03",
			Amount: 1000, PaidAmount: 1000, Status: fee.StatusPaid, DueDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			PaidAt: time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC),
		},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, WriteFees(buf, fees, now))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(feesSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Student", rows[0][0])
	assert.Equal(t, []string{"Ann", "A", "Maths", "tuition", "2024-03", "1000", "400", "600", "overdue", "2024-03-10"}, rows[1][:10])
	assert.Equal(t, "paid", rows[2][8])
	assert.Equal(t, "2024-03-08", rows[2][10])
}
