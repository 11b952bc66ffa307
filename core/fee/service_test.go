package fee_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
	"github.com/trezcool/darasa/storage/docrepo"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

const centerID = "c1"

type mailbox struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (mb *mailbox) SendMessages(messages ...*core.EmailMessage) {
	mb.mu.Lock()
	mb.sent = append(mb.sent, messages...)
	mb.mu.Unlock()
}

type fixture struct {
	svc      *fee.Service
	repo     fee.Repository
	studSvc  *student.Service
	enrSvc   *enrollment.Service
	mail     *mailbox
	math     fee.Structure
	batchA   fee.Structure
	students []student.Student
}

func setup(t *testing.T) fixture {
	ctx := context.Background()
	store := inmemstore.New()

	studRepo := docrepo.NewStudentRepository(store)
	enrRepo := docrepo.NewEnrollmentRepository(store)
	feeRepo := docrepo.NewFeeRepository(store)

	studSvc := student.NewService(studRepo, nil)
	enrSvc := enrollment.NewService(enrRepo, studSvc, subject.NewService(docrepo.NewSubjectRepository(store)))
	mb := &mailbox{}
	svc := fee.NewService(feeRepo, enrSvc, studSvc, mb, core.NewTestConfig())

	studs := []student.Student{
		{ID: "s1", CenterID: centerID, Name: "Ann", Email: "ann@example.com", Batch: "A", IsActive: true},
		{ID: "s2", CenterID: centerID, Name: "Ben", Batch: "A", IsActive: true},
		{ID: "s3", CenterID: centerID, Name: "Cid", Email: "cid@example.com", Batch: "A", IsActive: false},
		{ID: "s4", CenterID: centerID, Name: "Dee", Email: "dee@example.com", Batch: "B", IsActive: true},
	}
	require.NoError(t, studRepo.CreateMany(ctx, studs))

	math, err := svc.CreateStructure(ctx, centerID, fee.NewStructure{
		Name: "Maths tuition", Category: fee.CategoryTuition, Amount: 1000, Frequency: fee.FrequencyMonthly, SubjectID: "math",
	})
	require.NoError(t, err)
	batchA, err := svc.CreateStructure(ctx, centerID, fee.NewStructure{
		Name: "Batch A tuition", Category: fee.CategoryTuition, Amount: 500, Frequency: fee.FrequencyMonthly, Batch: "A", DueDay: 5,
	})
	require.NoError(t, err)

	enrollments := []enrollment.Enrollment{
		{ID: "e1", StudentID: "s1", SubjectID: "math", Batch: "A"},
		{ID: "e2", StudentID: "s2", SubjectID: "physics", Batch: "A"},
		{ID: "e3", StudentID: "s3", SubjectID: "math", Batch: "A"},
		{ID: "e4", StudentID: "s4", SubjectID: "physics", Batch: "B"},
	}
	for _, e := range enrollments {
		e.CenterID = centerID
		e.Status = enrollment.StatusActive
		_, err = enrRepo.Create(ctx, e)
		require.NoError(t, err)
	}

	return fixture{svc: svc, repo: feeRepo, studSvc: studSvc, enrSvc: enrSvc, mail: mb, math: math, batchA: batchA, students: studs}
}

func TestService_CreateStructure_DefaultDueDay(t *testing.T) {
	f := setup(t)
	assert.Equal(t, 10, f.math.DueDay)
	assert.Equal(t, 5, f.batchA.DueDay)
	assert.True(t, f.math.IsActive)
}

func TestService_GenerateMonthly(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	report, err := f.svc.GenerateMonthly(ctx, centerID, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, fee.GenerateReport{Period: "2024-03", Created: 2, Skipped: 1, Unmatched: 1}, report)

	mathFee, err := f.svc.Get(ctx, centerID, fee.FeeID(centerID, "s1", f.math.ID, "2024-03"))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, mathFee.Amount)
	assert.Equal(t, fee.StatusPending, mathFee.Status)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), mathFee.DueDate.UTC())
	assert.True(t, mathFee.Overdue)

	batchFee, err := f.svc.Get(ctx, centerID, fee.FeeID(centerID, "s2", f.batchA.ID, "2024-03"))
	require.NoError(t, err)
	assert.Equal(t, 500.0, batchFee.Amount)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), batchFee.DueDate.UTC())

	t.Run("is idempotent", func(t *testing.T) {
		report, err := f.svc.GenerateMonthly(ctx, centerID, "2024-03")
		require.NoError(t, err)
		assert.Equal(t, 0, report.Created)
		assert.Equal(t, 3, report.Skipped)

		fees, err := f.svc.Query(ctx, centerID, &fee.QueryFilter{Period: "2024-03"}, nil)
		require.NoError(t, err)
		assert.Len(t, fees, 2)
	})

	t.Run("invalid period", func(t *testing.T) {
		_, err := f.svc.GenerateMonthly(ctx, centerID, "03-2024")
		assert.Equal(t, core.ErrInvalidPeriod, err)
	})

	t.Run("inactive structures are ignored", func(t *testing.T) {
		inactive := false
		_, err := f.svc.UpdateStructure(ctx, f.math, fee.UpdateStructure{IsActive: &inactive})
		require.NoError(t, err)

		report, err := f.svc.GenerateMonthly(ctx, centerID, "2024-04")
		require.NoError(t, err)
		assert.Equal(t, 2, report.Created) // s1 falls back to the batch structure
		_, err = f.svc.Get(ctx, centerID, fee.FeeID(centerID, "s1", f.batchA.ID, "2024-04"))
		assert.NoError(t, err)
	})
}

func TestService_AssignBulk(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	admission, err := f.svc.CreateStructure(ctx, centerID, fee.NewStructure{
		Name: "Admission", Category: fee.CategoryAdmission, Amount: 200, Frequency: fee.FrequencyOneTime,
	})
	require.NoError(t, err)

	report, err := f.svc.AssignBulk(ctx, centerID, fee.AssignRequest{StructureID: admission.ID, Batch: "A", Period: "2099-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created) // s3 is inactive

	due := time.Date(2099, 2, 1, 0, 0, 0, 0, time.UTC)
	report, err = f.svc.AssignBulk(ctx, centerID, fee.AssignRequest{
		StructureID: admission.ID, StudentIDs: []string{"s1", "s4"}, Period: "2099-01", DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)

	got, err := f.svc.Get(ctx, centerID, fee.FeeID(centerID, "s4", admission.ID, "2099-01"))
	require.NoError(t, err)
	assert.Equal(t, due, got.DueDate.UTC())
	assert.False(t, got.Overdue)

	_, err = f.svc.AssignBulk(ctx, centerID, fee.AssignRequest{StructureID: admission.ID, StudentIDs: []string{"nope"}, Period: "2099-01"})
	assert.Equal(t, student.ErrNotFound, err)

	_, err = f.svc.AssignBulk(ctx, centerID, fee.AssignRequest{StructureID: "nope", Batch: "A", Period: "2099-01"})
	assert.Equal(t, fee.ErrStructureNotFound, err)
}

func TestService_RecordPayment(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.svc.GenerateMonthly(ctx, centerID, "2024-03")
	require.NoError(t, err)

	sf, err := f.svc.Get(ctx, centerID, fee.FeeID(centerID, "s1", f.math.ID, "2024-03"))
	require.NoError(t, err)

	sf, err = f.svc.RecordPayment(ctx, sf, fee.NewPayment{Amount: 400, Method: fee.MethodCash}, "admin")
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPartial, sf.Status)
	assert.Equal(t, 600.0, sf.Outstanding())
	assert.True(t, sf.PaidAt.IsZero())

	_, err = f.svc.RecordPayment(ctx, sf, fee.NewPayment{Amount: 600.01, Method: fee.MethodCash}, "admin")
	assert.Equal(t, fee.ErrOverpayment, err)

	sf, err = f.svc.RecordPayment(ctx, sf, fee.NewPayment{Amount: 600, Method: fee.MethodUPI, Reference: "tx-1"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPaid, sf.Status)
	assert.Len(t, sf.Payments, 2)
	assert.False(t, sf.PaidAt.IsZero())
	assert.False(t, sf.Overdue)

	_, err = f.svc.RecordPayment(ctx, sf, fee.NewPayment{Amount: 1, Method: fee.MethodCash}, "admin")
	assert.Equal(t, fee.ErrSettled, err)
	_, err = f.svc.Waive(ctx, sf)
	assert.Equal(t, fee.ErrSettled, err)

	stored, err := f.svc.Get(ctx, centerID, sf.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stored.PaidAmount)
}

func TestService_Query_Overdue(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.svc.GenerateMonthly(ctx, centerID, "2024-03")
	require.NoError(t, err)
	_, err = f.svc.GenerateMonthly(ctx, centerID, "2099-03")
	require.NoError(t, err)

	waived, err := f.svc.Get(ctx, centerID, fee.FeeID(centerID, "s2", f.batchA.ID, "2024-03"))
	require.NoError(t, err)
	waived, err = f.svc.Waive(ctx, waived)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusWaived, waived.Status)

	overdue, err := f.svc.Query(ctx, centerID, &fee.QueryFilter{Status: fee.StatusOverdue}, nil)
	require.NoError(t, err)
	if assert.Len(t, overdue, 1) {
		assert.Equal(t, "s1", overdue[0].StudentID)
		assert.True(t, overdue[0].Overdue)
	}

	all, err := f.svc.Query(ctx, centerID, nil, nil)
	require.NoError(t, err)
	if assert.Len(t, all, 4) {
		assert.Equal(t, "2099-03", all[0].Period) // newest period first
		assert.Equal(t, "Ann", all[0].StudentName)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	past := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	fees := []fee.StudentFee{
		{Amount: 1000, PaidAmount: 0, Status: fee.StatusPending, DueDate: past},
		{Amount: 500, PaidAmount: 200, Status: fee.StatusPartial, DueDate: future},
		{Amount: 300, PaidAmount: 300, Status: fee.StatusPaid, DueDate: past},
		{Amount: 400, PaidAmount: 100, Status: fee.StatusWaived, DueDate: past},
	}

	got := fee.Summarize(fees, now)
	assert.Equal(t, fee.Summary{
		Count:        4,
		Billed:       1900,
		Collected:    600,
		Outstanding:  1300,
		Overdue:      1000,
		OverdueCount: 1,
		ByStatus: map[string]int{
			fee.StatusPending: 1,
			fee.StatusPartial: 1,
			fee.StatusPaid:    1,
			fee.StatusWaived:  1,
		},
	}, got)

	empty := fee.Summarize(nil, now)
	assert.Equal(t, 0, empty.Count)
	assert.Len(t, empty.ByStatus, 4)
}

func TestMonthlyCollection(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 12, 0, 0, 0, time.UTC) }
	fees := []fee.StudentFee{
		{Payments: []fee.Payment{{Amount: 100, PaidAt: day(1, 5)}, {Amount: 50.25, PaidAt: day(3, 1)}}},
		{Payments: []fee.Payment{{Amount: 200, PaidAt: day(1, 20)}}},
		{Payments: []fee.Payment{{Amount: 75, PaidAt: day(2, 2)}}},
	}

	tests := []struct {
		name     string
		from, to string
		want     []fee.CollectionBucket
	}{
		{
			name: "all months",
			want: []fee.CollectionBucket{
				{Month: "2024-01", Amount: 300, Payments: 2},
				{Month: "2024-02", Amount: 75, Payments: 1},
				{Month: "2024-03", Amount: 50.25, Payments: 1},
			},
		},
		{
			name: "bounded",
			from: "2024-02",
			to:   "2024-02",
			want: []fee.CollectionBucket{{Month: "2024-02", Amount: 75, Payments: 1}},
		},
		{name: "no payments in range", from: "2025-01", want: []fee.CollectionBucket{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fee.MonthlyCollection(fees, tt.from, tt.to))
		})
	}
}

func TestService_SendReminders(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.svc.GenerateMonthly(ctx, centerID, "2024-03")
	require.NoError(t, err)

	report, err := f.svc.SendReminders(ctx, centerID, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, fee.ReminderReport{Period: "2024-03", Students: 1, Fees: 1, NoEmail: 1}, report)

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, "ann@example.com", msg.To[0].Address)
	assert.Equal(t, "fee_reminder", msg.TemplateName)
	assert.Equal(t, "Fee Reminder: 2024-03", msg.Subject)
}

func TestService_GenerateMonthly_StudentChangedBatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	batchB, err := f.svc.CreateStructure(ctx, centerID, fee.NewStructure{
		Name: "Batch B tuition", Category: fee.CategoryTuition, Amount: 700, Frequency: fee.FrequencyMonthly, Batch: "B",
	})
	require.NoError(t, err)

	// Ben moves to batch B; his physics enrollment was made in batch A
	ben, err := f.studSvc.Get(ctx, centerID, "s2")
	require.NoError(t, err)
	_, err = f.studSvc.Update(ctx, ben, student.UpdateStudent{Name: ben.Name, Batch: "B", Email: ben.Email})
	require.NoError(t, err)

	_, err = f.svc.GenerateMonthly(ctx, centerID, "2024-03")
	require.NoError(t, err)

	fees, err := f.svc.Query(ctx, centerID, &fee.QueryFilter{StudentID: "s2", Period: "2024-03"}, nil)
	require.NoError(t, err)
	if assert.Len(t, fees, 1) {
		assert.Equal(t, batchB.ID, fees[0].StructureID)
		assert.Equal(t, "Batch B tuition", fees[0].StructureName)
		assert.Equal(t, 700.0, fees[0].Amount)
		assert.Equal(t, "B", fees[0].Batch)
	}
}

// blindRepository misses the fees of the period, as if another run committed
// them between the existence check and the insert.
type blindRepository struct {
	fee.Repository
}

func (blindRepository) QueryFees(context.Context, string, core.Filter) ([]fee.StudentFee, error) {
	return nil, nil
}

func TestService_GenerateMonthly_ConcurrentRun(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.svc.GenerateMonthly(ctx, centerID, "2024-03")
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	conf := core.NewTestConfig()
	conf.Fees.BatchSize = 1
	racing := fee.NewService(blindRepository{f.repo}, f.enrSvc, f.studSvc, f.mail, conf)

	report, err := racing.GenerateMonthly(ctx, centerID, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, fee.GenerateReport{Period: "2024-03", Created: 0, Skipped: 3, Unmatched: 1}, report)

	t.Run("bulk assignment", func(t *testing.T) {
		report, err := racing.AssignBulk(ctx, centerID, fee.AssignRequest{StructureID: f.batchA.ID, Batch: "A", Period: "2024-03"})
		require.NoError(t, err)
		// s2 was charged by the first run, s1 is new
		assert.Equal(t, 1, report.Created)
		assert.Equal(t, 1, report.Skipped)
	})

	fees, err := f.svc.Query(ctx, centerID, &fee.QueryFilter{Period: "2024-03"}, nil)
	require.NoError(t, err)
	assert.Len(t, fees, 3)
}
