package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/subject"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/spreadsheet"
)

func Test_feeApi(t *testing.T) {
	ctx := context.Background()
	app := setup(t)
	c := app.createCenter(t, "alpha")
	admin := app.createUser(t, c.ID, "Admin", "admin01", "admin@test.cd", user.RoleAdmin)
	adminToken := app.token(t, admin)

	math, err := app.subjects.Create(ctx, c.ID, subject.NewSubject{Name: "Maths", Code: "math", Batch: "2024-A"})
	require.NoError(t, err)
	ann, annUsr := app.createStudent(t, c.ID, "Ann", "ann001", "2024-A")
	ben, _ := app.createStudent(t, c.ID, "Ben", "ben001", "2024-A")
	cid, _ := app.createStudent(t, c.ID, "Cid", "cid001", "2024-B")

	for _, s := range []string{ann.ID, ben.ID, cid.ID} {
		rec := app.do(http.MethodPost, "/v1/enrollments", adminToken, marchallObj(t, enrollment.NewEnrollment{StudentID: s, SubjectID: math.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(http.MethodPost, "/v1/fees/structures", adminToken, marchallObj(t, fee.NewStructure{
		Name: "Tuition", Category: fee.CategoryTuition, Amount: 100, Frequency: fee.FrequencyMonthly, Batch: "2024-A",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	runHTTPTests(t, app, []httpTest{
		{
			name:     "generate",
			method:   http.MethodPost,
			path:     "/v1/fees/generate",
			body:     marchallObj(t, fee.GenerateRequest{Period: "2024-03"}),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, fee.GenerateReport{Period: "2024-03", Created: 2, Unmatched: 1}),
		},
		{
			name:     "generate twice",
			method:   http.MethodPost,
			path:     "/v1/fees/generate",
			body:     marchallObj(t, fee.GenerateRequest{Period: "2024-03"}),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, fee.GenerateReport{Period: "2024-03", Skipped: 2, Unmatched: 1}),
		},
		{
			name:     "invalid period",
			method:   http.MethodPost,
			path:     "/v1/fees/generate",
			body:     marchallObj(t, fee.GenerateRequest{Period: "2024-13"}),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"period": "period must be a month in the YYYY-MM format"}),
		},
		{
			name:     "students cannot generate",
			method:   http.MethodPost,
			path:     "/v1/fees/generate",
			body:     marchallObj(t, fee.GenerateRequest{Period: "2024-03"}),
			token:    app.token(t, annUsr),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	})

	var fees []fee.StudentFee
	rec = app.do(http.MethodGet, "/v1/fees?period=2024-03", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &fees)
	require.Len(t, fees, 2)
	annFee, benFee := fees[0], fees[1]
	assert.Equal(t, ann.ID, annFee.StudentID)
	assert.Equal(t, fee.FeeID(c.ID, ann.ID, annFee.StructureID, "2024-03"), annFee.ID)
	assert.True(t, annFee.Overdue)

	t.Run("payments", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/fees/"+annFee.ID+"/payments", adminToken, marchallObj(t, fee.NewPayment{Amount: 40, Method: "cash"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var f fee.StudentFee
		unmarshal(t, rec, &f)
		assert.Equal(t, fee.StatusPartial, f.Status)
		assert.Equal(t, 40.0, f.PaidAmount)
		if assert.Len(t, f.Payments, 1) {
			assert.Equal(t, admin.ID, f.Payments[0].RecordedBy)
		}

		rec = app.do(http.MethodPost, "/v1/fees/"+annFee.ID+"/payments", adminToken, marchallObj(t, fee.NewPayment{Amount: 100, Method: "cash"}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"amount": "amount exceeds the outstanding balance"}),
		}, rec)

		rec = app.do(http.MethodPost, "/v1/fees/"+annFee.ID+"/payments", adminToken, marchallObj(t, fee.NewPayment{Amount: 10, Method: "bitcoin"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("waive", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/fees/"+benFee.ID+"/waive", adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.do(http.MethodPost, "/v1/fees/"+benFee.ID+"/waive", adminToken)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "fee is already settled"}),
		}, rec)
	})

	t.Run("summary", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/fees/summary?period=2024-03", adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sum fee.Summary
		unmarshal(t, rec, &sum)
		assert.Equal(t, 2, sum.Count)
		assert.Equal(t, 100.0, sum.Billed)
		assert.Equal(t, 40.0, sum.Collected)
		assert.Equal(t, 60.0, sum.Outstanding)
		assert.Equal(t, 1, sum.OverdueCount)
		assert.Equal(t, 60.0, sum.Overdue)
		assert.Equal(t, 1, sum.ByStatus[fee.StatusWaived])

		rec = app.do(http.MethodGet, "/v1/fees?status=overdue", adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var overdue []fee.StudentFee
		unmarshal(t, rec, &overdue)
		if assert.Len(t, overdue, 1) {
			assert.Equal(t, annFee.ID, overdue[0].ID)
		}
	})

	t.Run("reminders", func(t *testing.T) {
		app.mail.Reset()
		rec := app.do(http.MethodPost, "/v1/fees/reminders", adminToken, marchallObj(t, fee.ReminderRequest{Period: "2024-03"}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, fee.ReminderReport{Period: "2024-03", Students: 1, Fees: 1}),
		}, rec)

		sent := app.mail.SentMessages()
		if assert.Len(t, sent, 1) {
			assert.Equal(t, "ann001@test.cd", sent[0].To[0].Address)
		}
	})

	t.Run("student portal", func(t *testing.T) {
		token := app.token(t, annUsr)

		rec := app.do(http.MethodGet, "/v1/fees/me", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var mine []fee.StudentFee
		unmarshal(t, rec, &mine)
		if assert.Len(t, mine, 1) {
			assert.Equal(t, annFee.ID, mine[0].ID)
		}

		rec = app.do(http.MethodGet, "/v1/fees/me/summary", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sum fee.Summary
		unmarshal(t, rec, &sum)
		assert.Equal(t, 60.0, sum.Outstanding)

		assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/v1/fees", token).Code)
		assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/v1/fees/"+annFee.ID, token).Code)
	})

	t.Run("export", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/fees/export?period=2024-03", adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, spreadsheet.ContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "fees-2024-03.xlsx")
		assert.NotEmpty(t, rec.Body.Bytes())
	})

	t.Run("other centers' fees do not exist", func(t *testing.T) {
		other := app.createCenter(t, "beta")
		stranger := app.createUser(t, other.ID, "Stranger", "stranger", "stranger@test.cd", user.RoleAdmin)
		rec := app.do(http.MethodGet, "/v1/fees/"+annFee.ID, app.token(t, stranger))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "fee not found"})}, rec)
	})
}
