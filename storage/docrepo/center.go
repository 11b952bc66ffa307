package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/center"
)

type centerRepository struct {
	store core.DocStore
}

var _ center.Repository = (*centerRepository)(nil) // interface compliance check

func NewCenterRepository(store core.DocStore) *centerRepository {
	return &centerRepository{store: store}
}

func (repo centerRepository) Create(ctx context.Context, c center.Center) (center.Center, error) {
	if err := repo.store.Insert(ctx, core.CollCenters, c.ID, c); err != nil {
		return center.Center{}, errors.Wrap(err, "inserting center")
	}
	return c, nil
}

func (repo centerRepository) Get(ctx context.Context, id string) (center.Center, error) {
	var c center.Center
	if err := repo.store.Get(ctx, core.CollCenters, id, &c); err != nil {
		return center.Center{}, trapNoDocErr(err, center.ErrNotFound, "getting center")
	}
	return c, nil
}

func (repo centerRepository) GetByCode(ctx context.Context, code string) (center.Center, error) {
	var centers []center.Center
	if err := repo.store.Find(ctx, core.CollCenters, core.Filter{"code": code}, &centers); err != nil {
		return center.Center{}, errors.Wrap(err, "getting center by code")
	}
	if len(centers) == 0 {
		return center.Center{}, center.ErrNotFound
	}
	return centers[0], nil
}

func (repo centerRepository) List(ctx context.Context) ([]center.Center, error) {
	centers := []center.Center{}
	if err := repo.store.Find(ctx, core.CollCenters, nil, &centers); err != nil {
		return nil, errors.Wrap(err, "listing centers")
	}
	return centers, nil
}

func (repo centerRepository) Update(ctx context.Context, c center.Center) (center.Center, error) {
	if err := repo.store.Replace(ctx, core.CollCenters, c.ID, c); err != nil {
		return center.Center{}, trapNoDocErr(err, center.ErrNotFound, "updating center")
	}
	return c, nil
}
