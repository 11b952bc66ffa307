package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/faculty"
	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/result"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/docrepo"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

const centerID = "c1"

type nopMailer struct{}

func (nopMailer) SendMessages(...*core.EmailMessage) {}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fixture struct {
	svc   *Service
	ann   student.Student
	tutor faculty.Faculty
}

func titles(anns []announcement.Announcement) []string {
	out := make([]string, 0, len(anns))
	for _, a := range anns {
		out = append(out, a.Title)
	}
	return out
}

func setup(t *testing.T) fixture {
	ctx := context.Background()
	store := inmemstore.New()
	conf := core.NewTestConfig()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	studRepo := docrepo.NewStudentRepository(store)
	facRepo := docrepo.NewFacultyRepository(store)
	subjRepo := docrepo.NewSubjectRepository(store)
	enrRepo := docrepo.NewEnrollmentRepository(store)
	feeRepo := docrepo.NewFeeRepository(store)
	resRepo := docrepo.NewResultRepository(store)

	studSvc := student.NewService(studRepo, nil)
	subjSvc := subject.NewService(subjRepo)
	enrSvc := enrollment.NewService(enrRepo, studSvc, subjSvc)
	annSvc := announcement.NewService(docrepo.NewAnnouncementRepository(store), nopMailer{}, nil, nopLogger{})

	ann := student.Student{ID: "s1", CenterID: centerID, UserID: "u-ann", Name: "Ann", Batch: "A", IsActive: true}
	require.NoError(t, studRepo.CreateMany(ctx, []student.Student{
		ann,
		{ID: "s2", CenterID: centerID, Name: "Ben", Batch: "B", IsActive: false},
		{ID: "s9", CenterID: "c2", Name: "Zed", Batch: "A", IsActive: true},
	}))

	tutor := faculty.Faculty{ID: "f1", CenterID: centerID, UserID: "u-tutor", Name: "Tutor", SubjectIDs: []string{"math"}, IsActive: true}
	for _, f := range []faculty.Faculty{tutor, {ID: "f2", CenterID: centerID, Name: "Gone", SubjectIDs: []string{}}} {
		_, err := facRepo.Create(ctx, f)
		require.NoError(t, err)
	}

	for _, s := range []subject.Subject{
		{ID: "math", CenterID: centerID, Name: "Maths", Code: "math", Batch: "A"},
		{ID: "phy", CenterID: centerID, Name: "Physics", Code: "phy", Batch: "A", FacultyID: "f1"},
		{ID: "chem", CenterID: centerID, Name: "Chemistry", Code: "chem", Batch: "B"},
	} {
		_, err := subjRepo.Create(ctx, s)
		require.NoError(t, err)
	}

	for _, e := range []enrollment.Enrollment{
		{ID: "e1", CenterID: centerID, StudentID: "s1", SubjectID: "math", Batch: "A", Status: enrollment.StatusActive},
		{ID: "e2", CenterID: centerID, StudentID: "s2", SubjectID: "chem", Batch: "B", Status: enrollment.StatusCompleted},
	} {
		_, err := enrRepo.Create(ctx, e)
		require.NoError(t, err)
	}

	_, err := feeRepo.CreateFees(ctx, []fee.StudentFee{
		{ID: "fa", CenterID: centerID, StudentID: "s1", Period: "2024-03", Amount: 1000, PaidAmount: 400, Status: fee.StatusPartial, DueDate: now.AddDate(0, 0, -5)},
		{ID: "fb", CenterID: centerID, StudentID: "s2", Period: "2024-03", Amount: 500, PaidAmount: 500, Status: fee.StatusPaid, DueDate: now.AddDate(0, 0, -5)},
		{ID: "fc", CenterID: centerID, StudentID: "s1", Period: "2024-02", Amount: 800, Status: fee.StatusPending, DueDate: now.AddDate(0, -1, -5)},
		{ID: "fd", CenterID: centerID, StudentID: "s1", Period: "2024-01", Amount: 800, PaidAmount: 800, Status: fee.StatusPaid},
	}, 10)
	require.NoError(t, err)

	for i, name := range []string{"Quiz 1", "Quiz 2"} {
		_, err := resRepo.Create(ctx, result.TestResult{
			ID: name, CenterID: centerID, StudentID: "s1", SubjectID: "math", TestName: name,
			TestDate: now.AddDate(0, 0, -i), MaxMarks: 20, MarksObtained: 15,
		})
		require.NoError(t, err)
	}

	admin := user.User{ID: "u-admin", CenterID: centerID, Name: "Admin", Roles: []string{user.RoleAdmin}}
	tutorUsr := user.User{ID: "u-tutor", CenterID: centerID, Name: "Tutor", Roles: []string{user.RoleFaculty}}
	for _, post := range []struct {
		author user.User
		na     announcement.NewAnnouncement
	}{
		{admin, announcement.NewAnnouncement{Title: "All hands", Audience: announcement.AudienceAll}},
		{admin, announcement.NewAnnouncement{Title: "Faculty only", Audience: announcement.AudienceFaculty}},
		{admin, announcement.NewAnnouncement{Title: "Batch B", Audience: announcement.AudienceBatch, Batch: "B"}},
		{tutorUsr, announcement.NewAnnouncement{Title: "Quiz", Audience: announcement.AudienceBatch, Batch: "A"}},
	} {
		post.na.Body = "body"
		post.na.Priority = announcement.PriorityNormal
		_, err := annSvc.Create(ctx, centerID, post.na, post.author)
		require.NoError(t, err)
	}

	svc := NewService(
		studSvc,
		faculty.NewService(facRepo, nil),
		subjSvc,
		enrSvc,
		fee.NewService(feeRepo, enrSvc, studSvc, nopMailer{}, conf),
		annSvc,
		result.NewService(resRepo, studSvc, subjSvc, conf),
	)
	svc.now = func() time.Time { return now }
	return fixture{svc: svc, ann: ann, tutor: tutor}
}

func TestService_Admin(t *testing.T) {
	f := setup(t)

	dash, err := f.svc.Admin(context.Background(), centerID)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.ActiveStudents)
	assert.Equal(t, 1, dash.ActiveFaculty)
	assert.Equal(t, 3, dash.Subjects)
	assert.Equal(t, 1, dash.ActiveEnrollments)
	assert.Equal(t, "2024-03", dash.Period)

	assert.Equal(t, 2, dash.Fees.Count)
	assert.Equal(t, 1500.0, dash.Fees.Billed)
	assert.Equal(t, 900.0, dash.Fees.Collected)
	assert.Equal(t, 600.0, dash.Fees.Outstanding)
	assert.Equal(t, 1, dash.Fees.OverdueCount)
	assert.Equal(t, 600.0, dash.Fees.Overdue)

	assert.ElementsMatch(t, []string{"All hands", "Faculty only", "Batch B", "Quiz"}, titles(dash.LatestAnnouncements))

	t.Run("other center", func(t *testing.T) {
		dash, err := f.svc.Admin(context.Background(), "c2")
		require.NoError(t, err)
		assert.Equal(t, 1, dash.ActiveStudents)
		assert.Zero(t, dash.Subjects)
		assert.Zero(t, dash.Fees.Count)
		assert.Empty(t, dash.LatestAnnouncements)
	})
}

func TestService_Student(t *testing.T) {
	f := setup(t)

	dash, err := f.svc.Student(context.Background(), f.ann)
	require.NoError(t, err)
	if assert.Len(t, dash.OpenFees, 2) {
		assert.Equal(t, "fc", dash.OpenFees[0].ID) // earliest due first
		assert.Equal(t, "fa", dash.OpenFees[1].ID)
	}
	assert.Equal(t, 1400.0, dash.Outstanding)
	if assert.Len(t, dash.LatestResults, 2) {
		assert.Equal(t, "Quiz 1", dash.LatestResults[0].TestName)
	}
	assert.ElementsMatch(t, []string{"All hands", "Quiz"}, titles(dash.Announcements))
}

func TestService_Faculty(t *testing.T) {
	f := setup(t)

	dash, err := f.svc.Faculty(context.Background(), f.tutor)
	require.NoError(t, err)
	var subjects []string
	for _, s := range dash.Subjects {
		subjects = append(subjects, s.ID)
	}
	assert.ElementsMatch(t, []string{"math", "phy"}, subjects)
	// the tutor's own batch post is listed with the ones addressed to faculty
	assert.ElementsMatch(t, []string{"All hands", "Faculty only", "Quiz"}, titles(dash.Announcements))
}
