package result

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("test result")

	defaultOrdering = []core.DBOrdering{{Field: "test_date", Ascending: false}, {Field: "student_name", Ascending: true}}
)

type (
	Repository interface {
		Create(ctx context.Context, r TestResult) (TestResult, error)
		// CreateMany inserts results with a single batch write.
		CreateMany(ctx context.Context, results []TestResult) error
		Get(ctx context.Context, centerID, id string) (TestResult, error)
		Query(ctx context.Context, centerID string, where core.Filter) ([]TestResult, error)
		Update(ctx context.Context, r TestResult) (TestResult, error)
		Delete(ctx context.Context, centerID, id string) error
	}

	StudentGetter interface {
		Get(ctx context.Context, centerID, id string) (student.Student, error)
	}

	SubjectGetter interface {
		Get(ctx context.Context, centerID, id string) (subject.Subject, error)
	}
)

type Service struct {
	repo           Repository
	students       StudentGetter
	subjects       SubjectGetter
	passPercentage float64
}

func NewService(repo Repository, students StudentGetter, subjects SubjectGetter, conf *core.Config) *Service {
	return &Service{
		repo:           repo,
		students:       students,
		subjects:       subjects,
		passPercentage: conf.Results.PassPercentage,
	}
}

func (svc *Service) Record(ctx context.Context, centerID string, nr NewResult, recordedBy string) (TestResult, error) {
	stud, err := svc.students.Get(ctx, centerID, nr.StudentID)
	if err != nil {
		return TestResult{}, err
	}
	if _, err = svc.subjects.Get(ctx, centerID, nr.SubjectID); err != nil {
		return TestResult{}, err
	}

	now := time.Now().UTC()
	r := TestResult{
		ID:            uuid.NewString(),
		CenterID:      centerID,
		StudentID:     stud.ID,
		StudentName:   stud.Name,
		SubjectID:     nr.SubjectID,
		Batch:         stud.Batch,
		TestName:      nr.TestName,
		TestDate:      now,
		MaxMarks:      nr.MaxMarks,
		MarksObtained: nr.MarksObtained,
		Remarks:       nr.Remarks,
		RecordedBy:    recordedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if nr.TestDate != nil {
		r.TestDate = nr.TestDate.UTC()
	}
	return svc.repo.Create(ctx, r)
}

// RecordBulk records one test for many students with a single batch write.
func (svc *Service) RecordBulk(ctx context.Context, centerID string, br BulkResults, recordedBy string) ([]TestResult, error) {
	if _, err := svc.subjects.Get(ctx, centerID, br.SubjectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	testDate := now
	if br.TestDate != nil {
		testDate = br.TestDate.UTC()
	}

	results := make([]TestResult, 0, len(br.Entries))
	for _, e := range br.Entries {
		stud, err := svc.students.Get(ctx, centerID, e.StudentID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting student %s", e.StudentID)
		}
		results = append(results, TestResult{
			ID:            uuid.NewString(),
			CenterID:      centerID,
			StudentID:     stud.ID,
			StudentName:   stud.Name,
			SubjectID:     br.SubjectID,
			Batch:         stud.Batch,
			TestName:      br.TestName,
			TestDate:      testDate,
			MaxMarks:      br.MaxMarks,
			MarksObtained: e.MarksObtained,
			Remarks:       e.Remarks,
			RecordedBy:    recordedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	if err := svc.repo.CreateMany(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (svc *Service) Query(ctx context.Context, centerID string, filter *QueryFilter, orderings []core.DBOrdering) ([]TestResult, error) {
	all, err := svc.repo.Query(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}

	results := make([]TestResult, 0, len(all))
	for _, r := range all {
		if filter == nil || filter.Match(r) {
			results = append(results, r)
		}
	}

	if len(orderings) == 0 {
		orderings = defaultOrdering
	}
	core.SortByOrdering(results, orderings, core.Comparators{
		"student_name": func(i, j int) int { return core.CompareStrings(results[i].StudentName, results[j].StudentName) },
		"test_name":    func(i, j int) int { return core.CompareStrings(results[i].TestName, results[j].TestName) },
		"test_date":    func(i, j int) int { return core.CompareTimes(results[i].TestDate, results[j].TestDate) },
		"percentage":   func(i, j int) int { return core.CompareFloats(results[i].Percentage(), results[j].Percentage()) },
		"created_at":   func(i, j int) int { return core.CompareTimes(results[i].CreatedAt, results[j].CreatedAt) },
	})
	return results, nil
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (TestResult, error) {
	return svc.repo.Get(ctx, centerID, id)
}

func (svc *Service) Update(ctx context.Context, r TestResult, ur UpdateResult) (TestResult, error) {
	if ur.TestName != "" {
		r.TestName = ur.TestName
	}
	if ur.TestDate != nil {
		r.TestDate = ur.TestDate.UTC()
	}
	if ur.MaxMarks != nil {
		r.MaxMarks = *ur.MaxMarks
	}
	if ur.MarksObtained != nil {
		r.MarksObtained = *ur.MarksObtained
	}
	if ur.Remarks != nil {
		r.Remarks = *ur.Remarks
	}
	r.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, r)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.Delete(ctx, centerID, id)
}

// ComputeTestStats aggregates the results of one test. Percentages are rounded to 2 decimals.
func ComputeTestStats(results []TestResult, passPercentage float64) TestStats {
	var stats TestStats
	if len(results) == 0 {
		return stats
	}
	stats.SubjectID = results[0].SubjectID
	stats.TestName = results[0].TestName
	stats.Lowest = results[0].Percentage()

	var total float64
	for _, r := range results {
		pct := r.Percentage()
		total += pct
		if pct > stats.Highest {
			stats.Highest = pct
		}
		if pct < stats.Lowest {
			stats.Lowest = pct
		}
		if pct >= passPercentage {
			stats.Passed++
		}
	}
	stats.Count = len(results)
	stats.Average = round2(total / float64(stats.Count))
	stats.Highest = round2(stats.Highest)
	stats.Lowest = round2(stats.Lowest)
	stats.PassPercentage = round2(float64(stats.Passed) / float64(stats.Count) * 100)
	return stats
}

// TestStats aggregates the results of a subject's test.
func (svc *Service) TestStats(ctx context.Context, centerID, subjectID, testName string) (TestStats, error) {
	results, err := svc.repo.Query(ctx, centerID, core.Filter{"subject_id": subjectID, "test_name": testName})
	if err != nil {
		return TestStats{}, err
	}
	stats := ComputeTestStats(results, svc.passPercentage)
	stats.SubjectID = subjectID
	stats.TestName = testName
	return stats, nil
}

// BuildStudentReport aggregates a student's results per subject, ordered by subject id.
func BuildStudentReport(stud student.Student, results []TestResult) StudentReport {
	report := StudentReport{StudentID: stud.ID, StudentName: stud.Name, Subjects: []SubjectReport{}}

	type acc struct {
		total, best float64
		n           int
	}
	bySubject := make(map[string]*acc)
	var total float64
	for _, r := range results {
		pct := r.Percentage()
		a, ok := bySubject[r.SubjectID]
		if !ok {
			a = new(acc)
			bySubject[r.SubjectID] = a
		}
		a.total += pct
		a.n++
		if pct > a.best {
			a.best = pct
		}
		total += pct
	}

	for subjectID, a := range bySubject {
		avg := round2(a.total / float64(a.n))
		report.Subjects = append(report.Subjects, SubjectReport{
			SubjectID: subjectID,
			Tests:     a.n,
			Average:   avg,
			Best:      round2(a.best),
			Grade:     Grade(avg),
		})
	}
	sort.Slice(report.Subjects, func(i, j int) bool { return report.Subjects[i].SubjectID < report.Subjects[j].SubjectID })

	report.Tests = len(results)
	if report.Tests > 0 {
		report.Overall = round2(total / float64(report.Tests))
		report.Grade = Grade(report.Overall)
	}
	return report
}

func (svc *Service) StudentReport(ctx context.Context, centerID, studentID string) (StudentReport, error) {
	stud, err := svc.students.Get(ctx, centerID, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	results, err := svc.repo.Query(ctx, centerID, core.Filter{"student_id": stud.ID})
	if err != nil {
		return StudentReport{}, err
	}
	return BuildStudentReport(stud, results), nil
}

func round2(pct float64) float64 {
	return math.Round(pct*100) / 100
}
