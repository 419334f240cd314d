package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/location"
)

const locationCols = `id, name, address, created_at, updated_at`

type locationRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Address   null.String `db:"address"`
	CreatedAt null.Time   `db:"created_at"`
	UpdatedAt null.Time   `db:"updated_at"`
}

type locationRepository struct {
	db *sqlx.DB
}

var _ location.Repository = (*locationRepository)(nil) // interface compliance check

func NewLocationRepository(db *sqlx.DB) *locationRepository {
	return &locationRepository{db: db}
}

func (repo locationRepository) unmap(row locationRow) location.Location {
	return location.Location{
		ID:        row.ID,
		Name:      row.Name,
		Address:   row.Address.String,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo locationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return location.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo locationRepository) CreateLocation(ctx context.Context, loc location.Location) (location.Location, error) {
	loc.ID = uuid.New().String()
	row := locationRow{
		ID:        loc.ID,
		Name:      loc.Name,
		Address:   nullStr(loc.Address),
		CreatedAt: nullTime(loc.CreatedAt),
		UpdatedAt: nullTime(loc.UpdatedAt),
	}
	q := `INSERT INTO location (` + locationCols + `) VALUES (:id, :name, :address, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return location.Location{}, errors.Wrap(err, "inserting location")
	}
	return loc, nil
}

func (repo locationRepository) GetLocationByID(ctx context.Context, id string) (location.Location, error) {
	if _, err := uuid.Parse(id); err != nil {
		return location.Location{}, location.ErrNotFound
	}
	var row locationRow
	q := `SELECT ` + locationCols + ` FROM location WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return location.Location{}, repo.trapNoRowsErr(err, "finding location by ID")
	}
	return repo.unmap(row), nil
}

func (repo locationRepository) QueryAllLocations(ctx context.Context) ([]location.Location, error) {
	var rows []locationRow
	q := `SELECT ` + locationCols + ` FROM location ORDER BY name ASC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying locations")
	}
	locs := make([]location.Location, 0, len(rows))
	for _, row := range rows {
		locs = append(locs, repo.unmap(row))
	}
	return locs, nil
}

func (repo locationRepository) UpdateLocation(ctx context.Context, loc location.Location) (location.Location, error) {
	if _, err := uuid.Parse(loc.ID); err != nil {
		return location.Location{}, location.ErrNotFound
	}
	q := `
UPDATE location SET
    name       = COALESCE(NULLIF($2, ''), name),
    address    = $3,
    updated_at = $4
WHERE id = $1
RETURNING ` + locationCols
	var row locationRow
	if err := repo.db.GetContext(ctx, &row, q, loc.ID, loc.Name, nullStr(loc.Address), loc.UpdatedAt.UTC()); err != nil {
		return location.Location{}, repo.trapNoRowsErr(err, "updating location")
	}
	return repo.unmap(row), nil
}

func (repo locationRepository) DeleteLocationsByID(ctx context.Context, ids ...string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM location WHERE id::text = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting locations")
	}
	return nil
}
