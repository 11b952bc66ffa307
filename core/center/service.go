package center

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("center")
	ErrCodeExists  = errors.New("a center with this code already exists")
	ErrDeactivated = errors.New("center deactivated")
)

type (
	Repository interface {
		Create(ctx context.Context, c Center) (Center, error)
		Get(ctx context.Context, id string) (Center, error)
		GetByCode(ctx context.Context, code string) (Center, error)
		List(ctx context.Context) ([]Center, error)
		Update(ctx context.Context, c Center) (Center, error)
	}

	ServiceInterface interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		Create(ctx context.Context, nc NewCenter) (Center, error)
		Get(ctx context.Context, id string) (Center, error)
		GetByCode(ctx context.Context, code string) (Center, error)
		List(ctx context.Context, activeOnly bool) ([]Center, error)
		Update(ctx context.Context, c Center, uc UpdateCenter) (Center, error)
		// CheckActive returns ErrDeactivated when the center has been deactivated.
		CheckActive(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckCodeUniqueness(ctx context.Context, code string) error {
	_, err := svc.repo.GetByCode(ctx, normalizeCode(code))
	switch err {
	case nil:
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	case ErrNotFound:
		return nil
	}
	return err
}

func (svc *Service) Create(ctx context.Context, nc NewCenter) (Center, error) {
	now := time.Now().UTC()
	return svc.repo.Create(ctx, Center{
		ID:        uuid.NewString(),
		Name:      nc.Name,
		Code:      normalizeCode(nc.Code),
		Email:     nc.Email,
		Phone:     nc.Phone,
		Address:   nc.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Center, error) {
	return svc.repo.Get(ctx, id)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Center, error) {
	return svc.repo.GetByCode(ctx, normalizeCode(code))
}

func (svc *Service) List(ctx context.Context, activeOnly bool) ([]Center, error) {
	centers, err := svc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]Center, 0, len(centers))
	for _, c := range centers {
		if !activeOnly || c.IsActive {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Code < filtered[j].Code })
	return filtered, nil
}

func (svc *Service) Update(ctx context.Context, c Center, uc UpdateCenter) (Center, error) {
	c.Name = uc.Name
	c.Email = uc.Email
	c.Phone = uc.Phone
	c.Address = uc.Address
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, c)
}

func (svc *Service) CheckActive(ctx context.Context, id string) error {
	c, err := svc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return ErrDeactivated
	}
	return nil
}
