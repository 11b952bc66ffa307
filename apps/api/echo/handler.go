package echoapi

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/faculty"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/user"
)

// handler carries what every resource API needs.
type handler struct {
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	users      user.ServiceInterface
	students   *student.Service
	faculty    *faculty.Service
}

func (h handler) contextUser(ctx echo.Context) (user.User, error) {
	return getContextUser(ctx, h.users)
}

// contextStudent returns the student profile linked to the authenticated user.
func (h handler) contextStudent(ctx echo.Context) (student.Student, error) {
	usr, err := h.contextUser(ctx)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context user")
	}
	stud, err := h.students.GetByUser(ctx.Request().Context(), usr.CenterID, usr.ID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by user")
	}
	return stud, nil
}

// contextFaculty returns the faculty profile linked to the authenticated user.
func (h handler) contextFaculty(ctx echo.Context) (faculty.Faculty, error) {
	usr, err := h.contextUser(ctx)
	if err != nil {
		return faculty.Faculty{}, errors.Wrap(err, "getting context user")
	}
	member, err := h.faculty.GetByUser(ctx.Request().Context(), usr.CenterID, usr.ID)
	if err != nil {
		if errors.Cause(err) == faculty.ErrNotFound {
			return faculty.Faculty{}, errHttpNotFound
		}
		return faculty.Faculty{}, errors.Wrap(err, "finding faculty by user")
	}
	return member, nil
}

// viewer describes the authenticated user to the announcement board.
func (h handler) viewer(ctx echo.Context) (announcement.Viewer, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return announcement.Viewer{}, errors.Wrap(err, "getting context claims")
	}
	v := announcement.Viewer{UserID: claims.Subject, IsAdmin: claims.IsAdmin, IsFaculty: claims.IsFaculty, IsStudent: claims.IsStudent}
	if v.IsStudent && !v.IsAdmin {
		stud, err := h.students.GetByUser(ctx.Request().Context(), claims.CenterID, claims.Subject)
		if err == nil {
			v.Batch = stud.Batch
		} else if errors.Cause(err) != student.ErrNotFound {
			return v, errors.Wrap(err, "finding student by user")
		}
	}
	return v, nil
}
