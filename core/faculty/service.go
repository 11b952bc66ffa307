package faculty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("faculty")

	defaultOrdering = []core.DBOrdering{{Field: "name", Ascending: true}}
)

type Repository interface {
	Create(ctx context.Context, f Faculty) (Faculty, error)
	Get(ctx context.Context, centerID, id string) (Faculty, error)
	GetByUser(ctx context.Context, centerID, userID string) (Faculty, error)
	Query(ctx context.Context, centerID string, where core.Filter) ([]Faculty, error)
	Update(ctx context.Context, f Faculty) (Faculty, error)
	Delete(ctx context.Context, centerID, id string) error
}

type Service struct {
	repo   Repository
	usrSvc user.ServiceInterface
}

func NewService(repo Repository, usrSvc user.ServiceInterface) *Service {
	return &Service{repo: repo, usrSvc: usrSvc}
}

func (svc *Service) Create(ctx context.Context, centerID string, nf NewFaculty) (Faculty, error) {
	now := time.Now().UTC()
	f := Faculty{
		ID:            uuid.NewString(),
		CenterID:      centerID,
		Name:          nf.Name,
		Email:         nf.Email,
		Phone:         nf.Phone,
		Qualification: nf.Qualification,
		SubjectIDs:    nf.SubjectIDs,
		JoinedAt:      now,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if f.SubjectIDs == nil {
		f.SubjectIDs = []string{}
	}
	if nf.JoinedAt != nil {
		f.JoinedAt = nf.JoinedAt.UTC()
	}

	if nf.Account != nil {
		usr, err := svc.usrSvc.Create(ctx, centerID, *nf.Account)
		if err != nil {
			return Faculty{}, errors.Wrap(err, "creating faculty user")
		}
		f.UserID = usr.ID
	}

	created, err := svc.repo.Create(ctx, f)
	if err != nil {
		if f.UserID != "" {
			_ = svc.usrSvc.Delete(ctx, centerID, f.UserID)
		}
		return Faculty{}, err
	}
	return created, nil
}

func (svc *Service) Query(ctx context.Context, centerID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Faculty, error) {
	all, err := svc.repo.Query(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}

	members := make([]Faculty, 0, len(all))
	for _, f := range all {
		if filter == nil || filter.Match(f) {
			members = append(members, f)
		}
	}

	if len(orderings) == 0 {
		orderings = defaultOrdering
	}
	core.SortByOrdering(members, orderings, core.Comparators{
		"name":       func(i, j int) int { return core.CompareStrings(members[i].Name, members[j].Name) },
		"email":      func(i, j int) int { return core.CompareStrings(members[i].Email, members[j].Email) },
		"is_active":  func(i, j int) int { return core.CompareBools(members[i].IsActive, members[j].IsActive) },
		"joined_at":  func(i, j int) int { return core.CompareTimes(members[i].JoinedAt, members[j].JoinedAt) },
		"created_at": func(i, j int) int { return core.CompareTimes(members[i].CreatedAt, members[j].CreatedAt) },
	})
	return members, nil
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Faculty, error) {
	return svc.repo.Get(ctx, centerID, id)
}

func (svc *Service) GetByUser(ctx context.Context, centerID, userID string) (Faculty, error) {
	return svc.repo.GetByUser(ctx, centerID, userID)
}

func (svc *Service) Update(ctx context.Context, f Faculty, uf UpdateFaculty) (Faculty, error) {
	f.Name = uf.Name
	f.Email = uf.Email
	f.Phone = uf.Phone
	f.Qualification = uf.Qualification
	f.SubjectIDs = uf.SubjectIDs
	if f.SubjectIDs == nil {
		f.SubjectIDs = []string{}
	}
	if uf.IsActive != nil {
		f.IsActive = *uf.IsActive
	}
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, f)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.Delete(ctx, centerID, id)
}
