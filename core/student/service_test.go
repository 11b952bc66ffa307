package student_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/docrepo"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

const centerID = "c1"

type nopMailer struct{}

func (nopMailer) SendMessages(...*core.EmailMessage) {}

func newValidator() *validator.Validate {
	validate := validator.New()
	translator, _ := ut.New(en.New(), en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func setup() (*student.Service, *user.Service) {
	store := inmemstore.New()
	usrSvc := user.NewService(docrepo.NewUserRepository(store), nopMailer{}, core.NewTestConfig())
	return student.NewService(docrepo.NewStudentRepository(store), usrSvc), usrSvc
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup()

	rows := []student.ImportRow{
		{"name": "Ann", "email": "ANN@example.com", "batch": "2024-A"},
		{"name": "", "batch": "2024-A"},
		{"name": "Ben", "email": "not-an-email", "batch": "2024-B"},
		{"name": " Cid ", "batch": "2024-B", "guardian_name": "Dad"},
	}

	report, err := svc.Import(ctx, centerID, rows, newValidator())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	if assert.Len(t, report.Errors, 2) {
		assert.Equal(t, 3, report.Errors[0].Row)
		assert.Contains(t, report.Errors[0].Error, "name")
		assert.Equal(t, 4, report.Errors[1].Row)
		assert.Contains(t, report.Errors[1].Error, "email")
	}

	studs, err := svc.Query(ctx, centerID, nil, nil)
	require.NoError(t, err)
	if assert.Len(t, studs, 2) {
		assert.Equal(t, "ann@example.com", studs[0].Email)
		assert.Equal(t, "Cid", studs[1].Name)
		assert.Equal(t, "Dad", studs[1].GuardianName)
		assert.True(t, studs[1].IsActive)
	}

	batches, err := svc.ListBatches(ctx, centerID)
	require.NoError(t, err)
	assert.Equal(t, []student.Batch{{Name: "2024-A", Students: 1, Active: 1}, {Name: "2024-B", Students: 1, Active: 1}}, batches)
}

func TestService_Create_WithAccount(t *testing.T) {
	ctx := context.Background()
	svc, usrSvc := setup()
	validate := newValidator()

	ns := student.NewStudent{
		Name:  "Ann",
		Email: "ann@example.com",
		Batch: "2024-A",
		Account: &user.NewUser{
			Username:        "ann2024",
			Password:        "Zx9!long-enough",
			PasswordConfirm: "Zx9!long-enough",
		},
	}
	require.NoError(t, ns.Validate(ctx, validate, usrSvc))
	assert.Equal(t, "Ann", ns.Account.Name)
	assert.Equal(t, []string{user.RoleStudent}, ns.Account.Roles)

	s, err := svc.Create(ctx, centerID, ns)
	require.NoError(t, err)
	require.NotEmpty(t, s.UserID)

	usr, err := usrSvc.Get(ctx, centerID, s.UserID)
	require.NoError(t, err)
	assert.True(t, usr.IsStudent())
	assert.Equal(t, "ann@example.com", usr.Email)

	got, err := svc.GetByUser(ctx, centerID, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = svc.GetByUser(ctx, "c2", usr.ID)
	assert.Equal(t, student.ErrNotFound, err)

	t.Run("deleting the student removes their login", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, centerID, s.ID))
		_, err := usrSvc.Get(ctx, centerID, usr.ID)
		assert.Equal(t, user.ErrNotFound, err)
		_, err = usrSvc.GetByUsernameOrEmail(ctx, "ann2024")
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup()
	validate := newValidator()

	s, err := svc.Create(ctx, centerID, student.NewStudent{Name: "Ann", Batch: "2024-A"})
	require.NoError(t, err)

	inactive := false
	us := student.UpdateStudent{Batch: "2024-B", IsActive: &inactive}
	require.NoError(t, us.Validate(s, validate))
	s, err = svc.Update(ctx, s, us)
	require.NoError(t, err)
	assert.Equal(t, "Ann", s.Name)
	assert.Equal(t, "2024-B", s.Batch)
	assert.False(t, s.IsActive)

	active := true
	studs, err := svc.Query(ctx, centerID, &student.QueryFilter{IsActive: &active}, nil)
	require.NoError(t, err)
	assert.Empty(t, studs)

	require.NoError(t, svc.Delete(ctx, centerID, s.ID))
	_, err = svc.Get(ctx, centerID, s.ID)
	assert.Equal(t, student.ErrNotFound, err)
}
