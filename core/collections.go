package core

// Document collections.
const (
	CollCenters       = "centers"
	CollUsers         = "users"
	CollStudents      = "studentAccounts"
	CollFaculty       = "faculty"
	CollSubjects      = "subjects"
	CollEnrollments   = "enrollments"
	CollFeeStructures = "feeStructures"
	CollStudentFees   = "studentFees"
	CollAnnouncements = "announcements"
	CollTestResults   = "testResults"
	CollMigrations    = "_migrations"
)

// TenantCollections hold records scoped by center_id.
var TenantCollections = []string{
	CollUsers,
	CollStudents,
	CollFaculty,
	CollSubjects,
	CollEnrollments,
	CollFeeStructures,
	CollStudentFees,
	CollAnnouncements,
	CollTestResults,
}
