package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/faculty"
	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/result"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
)

const latestCount = 5

type (
	Students interface {
		Query(ctx context.Context, centerID string, filter *student.QueryFilter, orderings []core.DBOrdering) ([]student.Student, error)
	}

	Faculty interface {
		Query(ctx context.Context, centerID string, filter *faculty.QueryFilter, orderings []core.DBOrdering) ([]faculty.Faculty, error)
	}

	Subjects interface {
		Query(ctx context.Context, centerID string, filter *subject.QueryFilter, orderings []core.DBOrdering) ([]subject.Subject, error)
	}

	Enrollments interface {
		Active(ctx context.Context, centerID string) ([]enrollment.Enrollment, error)
	}

	Fees interface {
		Query(ctx context.Context, centerID string, filter *fee.QueryFilter, orderings []core.DBOrdering) ([]fee.StudentFee, error)
	}

	Announcements interface {
		Latest(ctx context.Context, centerID string, viewer announcement.Viewer, n int) ([]announcement.Announcement, error)
	}

	Results interface {
		Query(ctx context.Context, centerID string, filter *result.QueryFilter, orderings []core.DBOrdering) ([]result.TestResult, error)
	}
)

type (
	Admin struct {
		ActiveStudents      int                         `json:"active_students"`
		ActiveFaculty       int                         `json:"active_faculty"`
		Subjects            int                         `json:"subjects"`
		ActiveEnrollments   int                         `json:"active_enrollments"`
		Period              string                      `json:"period"`
		Fees                fee.Summary                 `json:"fees"`
		LatestAnnouncements []announcement.Announcement `json:"latest_announcements"`
	}

	Student struct {
		Student       student.Student             `json:"student"`
		OpenFees      []fee.StudentFee            `json:"open_fees"`
		Outstanding   float64                     `json:"outstanding"`
		LatestResults []result.TestResult         `json:"latest_results"`
		Announcements []announcement.Announcement `json:"announcements"`
	}

	Instructor struct {
		Faculty       faculty.Faculty             `json:"faculty"`
		Subjects      []subject.Subject           `json:"subjects"`
		Announcements []announcement.Announcement `json:"announcements"`
	}
)

type Service struct {
	students      Students
	faculty       Faculty
	subjects      Subjects
	enrollments   Enrollments
	fees          Fees
	announcements Announcements
	results       Results
	now           func() time.Time // mockable
}

func NewService(
	students Students,
	faculty Faculty,
	subjects Subjects,
	enrollments Enrollments,
	fees Fees,
	announcements Announcements,
	results Results,
) *Service {
	return &Service{
		students:      students,
		faculty:       faculty,
		subjects:      subjects,
		enrollments:   enrollments,
		fees:          fees,
		announcements: announcements,
		results:       results,
		now:           time.Now,
	}
}

func (svc *Service) Admin(ctx context.Context, centerID string) (Admin, error) {
	active := true
	now := svc.now()
	dash := Admin{Period: core.CurrentPeriod(now)}

	studs, err := svc.students.Query(ctx, centerID, &student.QueryFilter{IsActive: &active}, nil)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying students")
	}
	dash.ActiveStudents = len(studs)

	members, err := svc.faculty.Query(ctx, centerID, &faculty.QueryFilter{IsActive: &active}, nil)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying faculty")
	}
	dash.ActiveFaculty = len(members)

	subjects, err := svc.subjects.Query(ctx, centerID, nil, nil)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying subjects")
	}
	dash.Subjects = len(subjects)

	enrollments, err := svc.enrollments.Active(ctx, centerID)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying enrollments")
	}
	dash.ActiveEnrollments = len(enrollments)

	fees, err := svc.fees.Query(ctx, centerID, &fee.QueryFilter{Period: dash.Period}, nil)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying fees")
	}
	dash.Fees = fee.Summarize(fees, now)

	dash.LatestAnnouncements, err = svc.announcements.Latest(ctx, centerID, announcement.Viewer{IsAdmin: true}, latestCount)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying announcements")
	}
	return dash, nil
}

func (svc *Service) Student(ctx context.Context, stud student.Student) (Student, error) {
	dash := Student{Student: stud, OpenFees: []fee.StudentFee{}}

	fees, err := svc.fees.Query(ctx, stud.CenterID, &fee.QueryFilter{StudentID: stud.ID}, []core.DBOrdering{{Field: "due_date", Ascending: true}})
	if err != nil {
		return Student{}, errors.Wrap(err, "querying fees")
	}
	for _, f := range fees {
		if f.IsOpen() {
			dash.OpenFees = append(dash.OpenFees, f)
			dash.Outstanding += f.Outstanding()
		}
	}
	dash.Outstanding = core.RoundMoney(dash.Outstanding)

	results, err := svc.results.Query(ctx, stud.CenterID, &result.QueryFilter{StudentID: stud.ID}, nil)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying results")
	}
	if len(results) > latestCount {
		results = results[:latestCount]
	}
	dash.LatestResults = results

	viewer := announcement.Viewer{UserID: stud.UserID, IsStudent: true, Batch: stud.Batch}
	dash.Announcements, err = svc.announcements.Latest(ctx, stud.CenterID, viewer, latestCount)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying announcements")
	}
	return dash, nil
}

func (svc *Service) Faculty(ctx context.Context, member faculty.Faculty) (Instructor, error) {
	dash := Instructor{Faculty: member, Subjects: []subject.Subject{}}

	subjects, err := svc.subjects.Query(ctx, member.CenterID, nil, nil)
	if err != nil {
		return Instructor{}, errors.Wrap(err, "querying subjects")
	}
	for _, s := range subjects {
		if s.FacultyID == member.ID || member.Teaches(s.ID) {
			dash.Subjects = append(dash.Subjects, s)
		}
	}

	dash.Announcements, err = svc.announcements.Latest(ctx, member.CenterID, announcement.Viewer{UserID: member.UserID, IsFaculty: true}, latestCount)
	if err != nil {
		return Instructor{}, errors.Wrap(err, "querying announcements")
	}
	return dash, nil
}
