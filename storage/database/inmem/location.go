package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/location"
)

type locationRepository struct {
	db *DB
}

var _ location.Repository = (*locationRepository)(nil) // interface compliance check

func NewLocationRepository(db *DB) *locationRepository {
	return &locationRepository{db: db}
}

func (repo *locationRepository) CreateLocation(ctx context.Context, loc location.Location) (location.Location, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	loc.ID = uuid.New().String()
	repo.db.locations[loc.ID] = &loc
	return loc, nil
}

func (repo *locationRepository) GetLocationByID(ctx context.Context, id string) (location.Location, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if loc, ok := repo.db.locations[id]; ok {
		return *loc, nil
	}
	return location.Location{}, location.ErrNotFound
}

func (repo *locationRepository) QueryAllLocations(ctx context.Context) ([]location.Location, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	locs := make([]location.Location, 0, len(repo.db.locations))
	for _, loc := range repo.db.locations {
		locs = append(locs, *loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].Name < locs[j].Name })
	return locs, nil
}

func (repo *locationRepository) UpdateLocation(ctx context.Context, loc location.Location) (location.Location, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.locations[loc.ID]
	if !ok {
		return location.Location{}, location.ErrNotFound
	}
	if loc.Name != "" {
		orig.Name = loc.Name
	}
	orig.Address = loc.Address
	orig.UpdatedAt = loc.UpdatedAt
	return *orig, nil
}

func (repo *locationRepository) DeleteLocationsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.locations, id)
	}
	return nil
}
