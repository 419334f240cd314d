package location

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("location not found")

type (
	Repository interface {
		CreateLocation(ctx context.Context, loc Location) (Location, error)
		GetLocationByID(ctx context.Context, id string) (Location, error)
		QueryAllLocations(ctx context.Context) ([]Location, error)
		UpdateLocation(ctx context.Context, loc Location) (Location, error)
		DeleteLocationsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, nl NewLocation) (Location, error)
		GetByID(ctx context.Context, id string) (Location, error)
		QueryAll(ctx context.Context) ([]Location, error)
		Update(ctx context.Context, id string, ul UpdateLocation) (Location, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nl NewLocation) (Location, error) {
	now := time.Now().UTC()
	return svc.repo.CreateLocation(ctx, Location{
		Name:      nl.Name,
		Address:   nl.Address,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Location, error) {
	return svc.repo.GetLocationByID(ctx, id)
}

func (svc *service) QueryAll(ctx context.Context) ([]Location, error) {
	return svc.repo.QueryAllLocations(ctx)
}

func (svc *service) Update(ctx context.Context, id string, ul UpdateLocation) (Location, error) {
	return svc.repo.UpdateLocation(ctx, Location{
		ID:        id,
		Name:      ul.Name,
		Address:   ul.Address,
		UpdatedAt: time.Now().UTC(),
	})
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteLocationsByID(ctx, ids...)
}
