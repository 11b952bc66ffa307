package fee

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/student"
)

var (
	// errors
	ErrStructureNotFound = core.NewNotFoundError("fee structure")
	ErrNotFound          = core.NewNotFoundError("fee")
	ErrSettled           = core.NewValidationError(errors.New("fee is already settled"))
	ErrOverpayment       = core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount exceeds the outstanding balance"})

	// fee ids are derived from their center, student, structure & period.
	feeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("darasa:studentFees"))

	defaultOrdering          = []core.DBOrdering{{Field: "period", Ascending: false}, {Field: "student_name", Ascending: true}}
	defaultStructureOrdering = []core.DBOrdering{{Field: "name", Ascending: true}}
)

type (
	Repository interface {
		CreateStructure(ctx context.Context, s Structure) (Structure, error)
		GetStructure(ctx context.Context, centerID, id string) (Structure, error)
		QueryStructures(ctx context.Context, centerID string, where core.Filter) ([]Structure, error)
		UpdateStructure(ctx context.Context, s Structure) (Structure, error)
		DeleteStructure(ctx context.Context, centerID, id string) error

		GetFee(ctx context.Context, centerID, id string) (StudentFee, error)
		QueryFees(ctx context.Context, centerID string, where core.Filter) ([]StudentFee, error)
		// CreateFees inserts fees with batch writes of at most batchSize documents.
		// It returns how many of them had already been inserted by a concurrent run.
		CreateFees(ctx context.Context, fees []StudentFee, batchSize int) (int, error)
		UpdateFee(ctx context.Context, f StudentFee) (StudentFee, error)
	}

	EnrollmentLister interface {
		Active(ctx context.Context, centerID string) ([]enrollment.Enrollment, error)
	}

	StudentLister interface {
		Get(ctx context.Context, centerID, id string) (student.Student, error)
		Query(ctx context.Context, centerID string, filter *student.QueryFilter, orderings []core.DBOrdering) ([]student.Student, error)
	}
)

type Service struct {
	repo        Repository
	enrollments EnrollmentLister
	students    StudentLister
	mailSvc     core.EmailService
	dueDay      int
	batchSize   int
	now         func() time.Time // mockable
}

func NewService(
	repo Repository,
	enrollments EnrollmentLister,
	students StudentLister,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		students:    students,
		mailSvc:     mailSvc,
		dueDay:      conf.Fees.DefaultDueDay,
		batchSize:   conf.Fees.BatchSize,
		now:         time.Now,
	}
}

// FeeID returns the id of the fee charged to a student for a structure and period.
func FeeID(centerID, studentID, structureID, period string) string {
	name := strings.Join([]string{centerID, studentID, structureID, period}, "/")
	return uuid.NewSHA1(feeNamespace, []byte(name)).String()
}

// Structures

func (svc *Service) CreateStructure(ctx context.Context, centerID string, ns NewStructure) (Structure, error) {
	now := time.Now().UTC()
	s := Structure{
		ID:        uuid.NewString(),
		CenterID:  centerID,
		Name:      ns.Name,
		Category:  ns.Category,
		Amount:    core.RoundMoney(ns.Amount),
		Frequency: ns.Frequency,
		Batch:     ns.Batch,
		SubjectID: ns.SubjectID,
		DueDay:    ns.DueDay,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.DueDay == 0 {
		s.DueDay = svc.dueDay
	}
	return svc.repo.CreateStructure(ctx, s)
}

func (svc *Service) QueryStructures(ctx context.Context, centerID string, filter *StructureFilter, orderings []core.DBOrdering) ([]Structure, error) {
	structures, err := svc.repo.QueryStructures(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}
	if len(orderings) == 0 {
		orderings = defaultStructureOrdering
	}
	core.SortByOrdering(structures, orderings, core.Comparators{
		"name":       func(i, j int) int { return core.CompareStrings(structures[i].Name, structures[j].Name) },
		"category":   func(i, j int) int { return core.CompareStrings(structures[i].Category, structures[j].Category) },
		"batch":      func(i, j int) int { return core.CompareStrings(structures[i].Batch, structures[j].Batch) },
		"amount":     func(i, j int) int { return core.CompareFloats(structures[i].Amount, structures[j].Amount) },
		"created_at": func(i, j int) int { return core.CompareTimes(structures[i].CreatedAt, structures[j].CreatedAt) },
	})
	return structures, nil
}

func (svc *Service) GetStructure(ctx context.Context, centerID, id string) (Structure, error) {
	return svc.repo.GetStructure(ctx, centerID, id)
}

func (svc *Service) UpdateStructure(ctx context.Context, s Structure, us UpdateStructure) (Structure, error) {
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.Category != "" {
		s.Category = us.Category
	}
	if us.Amount != nil {
		s.Amount = core.RoundMoney(*us.Amount)
	}
	if us.Frequency != "" {
		s.Frequency = us.Frequency
	}
	if us.Batch != nil {
		s.Batch = *us.Batch
	}
	if us.SubjectID != nil {
		s.SubjectID = *us.SubjectID
	}
	if us.DueDay != nil {
		s.DueDay = *us.DueDay
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStructure(ctx, s)
}

func (svc *Service) DeleteStructure(ctx context.Context, centerID, id string) error {
	return svc.repo.DeleteStructure(ctx, centerID, id)
}

// Student fees


func (svc *Service) newFee(s Structure, stud student.Student, period string, due, now time.Time, run string) StudentFee {
	return StudentFee{
		RunID:         run,
		ID:            FeeID(s.CenterID, stud.ID, s.ID, period),
		CenterID:      s.CenterID,
		StudentID:     stud.ID,
		StudentName:   stud.Name,
		Batch:         stud.Batch,
		StructureID:   s.ID,
		StructureName: s.Name,
		Category:      s.Category,
		Period:        period,
		Amount:        s.Amount,
		Status:        StatusPending,
		DueDate:       due,
		Payments:      []Payment{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (svc *Service) dueDate(s Structure, period string) (time.Time, error) {
	day := s.DueDay
	if day == 0 {
		day = svc.dueDay
	}
	return core.PeriodDate(period, day)
}

// existingFeeIDs returns the ids of the fees of the period.
func (svc *Service) existingFeeIDs(ctx context.Context, centerID, period string) (map[string]bool, error) {
	fees, err := svc.repo.QueryFees(ctx, centerID, core.Filter{"period": period})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(fees))
	for _, f := range fees {
		ids[f.ID] = true
	}
	return ids, nil
}

// matchStructure finds the monthly structure charged for an enrollment of a student of batch:
// a structure of the enrollment's subject first, else one of the batch.
// The batch is the student's current one; enrollments keep the batch they were made in.
func matchStructure(structures []Structure, e enrollment.Enrollment, batch string) (Structure, bool) {
	for _, s := range structures {
		if s.SubjectID == e.SubjectID && (s.Batch == "" || s.Batch == batch) {
			return s, true
		}
	}
	for _, s := range structures {
		if s.SubjectID == "" && s.Batch == batch {
			return s, true
		}
	}
	return Structure{}, false
}

// GenerateMonthly charges the monthly fees of a period to every actively enrolled student.
// Fees that already exist are skipped: running it twice for a period creates nothing.
func (svc *Service) GenerateMonthly(ctx context.Context, centerID, period string) (GenerateReport, error) {
	report := GenerateReport{Period: period}
	if _, err := core.ParsePeriod(period); err != nil {
		return report, err
	}

	structures, err := svc.repo.QueryStructures(ctx, centerID, core.Filter{
		"frequency": FrequencyMonthly,
		"is_active": true,
	})
	if err != nil {
		return report, err
	}
	sort.SliceStable(structures, func(i, j int) bool { return structures[i].CreatedAt.Before(structures[j].CreatedAt) })

	enrollments, err := svc.enrollments.Active(ctx, centerID)
	if err != nil {
		return report, err
	}

	active := true
	studs, err := svc.students.Query(ctx, centerID, &student.QueryFilter{IsActive: &active}, nil)
	if err != nil {
		return report, err
	}
	students := make(map[string]student.Student, len(studs))
	for _, stud := range studs {
		students[stud.ID] = stud
	}

	existing, err := svc.existingFeeIDs(ctx, centerID, period)
	if err != nil {
		return report, err
	}

	now, run := time.Now().UTC(), uuid.NewString()
	fees := make([]StudentFee, 0, len(enrollments))
	for _, e := range enrollments {
		stud, ok := students[e.StudentID]
		if !ok {
			report.Skipped++
			continue
		}
		s, ok := matchStructure(structures, e, stud.Batch)
		if !ok {
			report.Unmatched++
			continue
		}

		id := FeeID(centerID, stud.ID, s.ID, period)
		if existing[id] {
			report.Skipped++
			continue
		}
		due, err := svc.dueDate(s, period)
		if err != nil {
			return report, err
		}
		fees = append(fees, svc.newFee(s, stud, period, due, now, run))
		existing[id] = true
	}

	existingCount, err := svc.repo.CreateFees(ctx, fees, svc.batchSize)
	if err != nil {
		return report, err
	}
	report.Created = len(fees) - existingCount
	report.Skipped += existingCount
	return report, nil
}

// AssignBulk charges a structure to the given students, or to every active student of a batch.
func (svc *Service) AssignBulk(ctx context.Context, centerID string, req AssignRequest) (AssignReport, error) {
	report := AssignReport{Period: req.Period}
	if _, err := core.ParsePeriod(req.Period); err != nil {
		return report, err
	}

	s, err := svc.repo.GetStructure(ctx, centerID, req.StructureID)
	if err != nil {
		return report, err
	}

	var studs []student.Student
	if len(req.StudentIDs) > 0 {
		studs = make([]student.Student, 0, len(req.StudentIDs))
		for _, id := range req.StudentIDs {
			stud, err := svc.students.Get(ctx, centerID, id)
			if err != nil {
				return report, err
			}
			studs = append(studs, stud)
		}
	} else {
		active := true
		studs, err = svc.students.Query(ctx, centerID, &student.QueryFilter{Batch: req.Batch, IsActive: &active}, nil)
		if err != nil {
			return report, err
		}
	}

	due, err := svc.dueDate(s, req.Period)
	if err != nil {
		return report, err
	}
	if req.DueDate != nil {
		due = req.DueDate.UTC()
	}

	existing, err := svc.existingFeeIDs(ctx, centerID, req.Period)
	if err != nil {
		return report, err
	}

	now, run := time.Now().UTC(), uuid.NewString()
	fees := make([]StudentFee, 0, len(studs))
	for _, stud := range studs {
		id := FeeID(centerID, stud.ID, s.ID, req.Period)
		if existing[id] {
			report.Skipped++
			continue
		}
		fees = append(fees, svc.newFee(s, stud, req.Period, due, now, run))
		existing[id] = true
	}

	existingCount, err := svc.repo.CreateFees(ctx, fees, svc.batchSize)
	if err != nil {
		return report, err
	}
	report.Created = len(fees) - existingCount
	report.Skipped += existingCount
	return report, nil
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (StudentFee, error) {
	f, err := svc.repo.GetFee(ctx, centerID, id)
	if err != nil {
		return StudentFee{}, err
	}
	f.Overdue = f.IsOverdue(svc.now())
	return f, nil
}

func (svc *Service) Query(ctx context.Context, centerID string, filter *QueryFilter, orderings []core.DBOrdering) ([]StudentFee, error) {
	all, err := svc.repo.QueryFees(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}

	now := svc.now()
	fees := make([]StudentFee, 0, len(all))
	for _, f := range all {
		if filter == nil || filter.Match(f, now) {
			f.Overdue = f.IsOverdue(now)
			fees = append(fees, f)
		}
	}

	if len(orderings) == 0 {
		orderings = defaultOrdering
	}
	core.SortByOrdering(fees, orderings, core.Comparators{
		"period":       func(i, j int) int { return strings.Compare(fees[i].Period, fees[j].Period) },
		"student_name": func(i, j int) int { return core.CompareStrings(fees[i].StudentName, fees[j].StudentName) },
		"batch":        func(i, j int) int { return core.CompareStrings(fees[i].Batch, fees[j].Batch) },
		"status":       func(i, j int) int { return strings.Compare(fees[i].Status, fees[j].Status) },
		"amount":       func(i, j int) int { return core.CompareFloats(fees[i].Amount, fees[j].Amount) },
		"due_date":     func(i, j int) int { return core.CompareTimes(fees[i].DueDate, fees[j].DueDate) },
		"created_at":   func(i, j int) int { return core.CompareTimes(fees[i].CreatedAt, fees[j].CreatedAt) },
	})
	return fees, nil
}

// RecordPayment adds a payment to an open fee, up to its outstanding balance.
func (svc *Service) RecordPayment(ctx context.Context, f StudentFee, np NewPayment, recordedBy string) (StudentFee, error) {
	if !f.IsOpen() {
		return StudentFee{}, ErrSettled
	}
	amount := core.RoundMoney(np.Amount)
	if amount > f.Outstanding() {
		return StudentFee{}, ErrOverpayment
	}

	now := time.Now().UTC()
	p := Payment{
		Amount:     amount,
		Method:     np.Method,
		Reference:  np.Reference,
		PaidAt:     now,
		RecordedBy: recordedBy,
	}
	if np.PaidAt != nil {
		p.PaidAt = np.PaidAt.UTC()
	}

	f.Payments = append(f.Payments, p)
	f.PaidAmount = core.RoundMoney(f.PaidAmount + amount)
	f.Status = StatusFromPaid(f.Amount, f.PaidAmount)
	if f.Status == StatusPaid {
		f.PaidAt = p.PaidAt
	}
	f.UpdatedAt = now

	f, err := svc.repo.UpdateFee(ctx, f)
	if err != nil {
		return StudentFee{}, err
	}
	f.Overdue = f.IsOverdue(svc.now())
	return f, nil
}

// Waive cancels the outstanding balance of an open fee.
func (svc *Service) Waive(ctx context.Context, f StudentFee) (StudentFee, error) {
	if !f.IsOpen() {
		return StudentFee{}, ErrSettled
	}
	f.Status = StatusWaived
	f.Overdue = false
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateFee(ctx, f)
}

// Summarize totals a set of fees.
func Summarize(fees []StudentFee, now time.Time) Summary {
	sum := Summary{ByStatus: map[string]int{
		StatusPending: 0,
		StatusPartial: 0,
		StatusPaid:    0,
		StatusWaived:  0,
	}}
	for _, f := range fees {
		sum.Count++
		sum.ByStatus[f.Status]++
		sum.Collected += f.PaidAmount
		if f.Status == StatusWaived {
			sum.Billed += f.PaidAmount
			continue
		}
		sum.Billed += f.Amount
		sum.Outstanding += f.Outstanding()
		if f.IsOverdue(now) {
			sum.OverdueCount++
			sum.Overdue += f.Outstanding()
		}
	}
	sum.Billed = core.RoundMoney(sum.Billed)
	sum.Collected = core.RoundMoney(sum.Collected)
	sum.Outstanding = core.RoundMoney(sum.Outstanding)
	sum.Overdue = core.RoundMoney(sum.Overdue)
	return sum
}

func (svc *Service) Summary(ctx context.Context, centerID string, filter *QueryFilter) (Summary, error) {
	fees, err := svc.Query(ctx, centerID, filter, nil)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(fees, svc.now()), nil
}

// MonthlyCollection buckets the payments of fees by the month they were received, in ascending order.
// from & to are optional inclusive YYYY-MM bounds.
func MonthlyCollection(fees []StudentFee, from, to string) []CollectionBucket {
	buckets := make(map[string]*CollectionBucket)
	for _, f := range fees {
		for _, p := range f.Payments {
			month := core.MonthKey(p.PaidAt)
			if (from != "" && month < from) || (to != "" && month > to) {
				continue
			}
			b, ok := buckets[month]
			if !ok {
				b = &CollectionBucket{Month: month}
				buckets[month] = b
			}
			b.Amount += p.Amount
			b.Payments++
		}
	}

	collection := make([]CollectionBucket, 0, len(buckets))
	for _, b := range buckets {
		b.Amount = core.RoundMoney(b.Amount)
		collection = append(collection, *b)
	}
	sort.Slice(collection, func(i, j int) bool { return collection[i].Month < collection[j].Month })
	return collection
}

func (svc *Service) MonthlyCollection(ctx context.Context, centerID string, filter *QueryFilter, from, to string) ([]CollectionBucket, error) {
	for _, period := range []string{from, to} {
		if period == "" {
			continue
		}
		if _, err := core.ParsePeriod(period); err != nil {
			return nil, err
		}
	}
	fees, err := svc.Query(ctx, centerID, filter, nil)
	if err != nil {
		return nil, err
	}
	return MonthlyCollection(fees, from, to), nil
}

type (
	reminderLine struct {
		StructureName string
		Outstanding   float64
		DueDate       time.Time
	}

	reminderData struct {
		Name   string
		Period string
		Fees   []reminderLine
		Total  float64
	}
)

// SendReminders emails every student with open fees for the period, one email per student.
func (svc *Service) SendReminders(ctx context.Context, centerID, period string) (ReminderReport, error) {
	report := ReminderReport{Period: period}
	fees, err := svc.repo.QueryFees(ctx, centerID, core.Filter{
		"period": period,
		"status": []string{StatusPending, StatusPartial},
	})
	if err != nil {
		return report, err
	}

	byStudent := make(map[string][]StudentFee)
	order := make([]string, 0)
	for _, f := range fees {
		if _, ok := byStudent[f.StudentID]; !ok {
			order = append(order, f.StudentID)
		}
		byStudent[f.StudentID] = append(byStudent[f.StudentID], f)
	}

	messages := make([]*core.EmailMessage, 0, len(order))
	for _, studentID := range order {
		stud, err := svc.students.Get(ctx, centerID, studentID)
		if err != nil {
			if err == student.ErrNotFound {
				continue
			}
			return report, err
		}
		if stud.Email == "" {
			report.NoEmail++
			continue
		}

		data := reminderData{Name: stud.Name, Period: period}
		for _, f := range byStudent[studentID] {
			data.Fees = append(data.Fees, reminderLine{
				StructureName: f.StructureName,
				Outstanding:   f.Outstanding(),
				DueDate:       f.DueDate,
			})
			data.Total += f.Outstanding()
		}
		data.Total = core.RoundMoney(data.Total)

		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: stud.Name, Address: stud.Email}},
			Subject:      "Fee Reminder: " + period,
			TemplateName: "fee_reminder",
			TemplateData: data,
		})
		report.Students++
		report.Fees += len(data.Fees)
	}

	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return report, nil
}
