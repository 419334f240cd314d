package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/teacher"
)

const teacherCols = `id, name, email, subject, grade_level, location_id, is_active, created_at, updated_at`

type teacherRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	Email      null.String `db:"email"`
	Subject    null.String `db:"subject"`
	GradeLevel null.String `db:"grade_level"`
	LocationID null.String `db:"location_id"`
	IsActive   null.Bool   `db:"is_active"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo teacherRepository) row(tch teacher.Teacher) teacherRow {
	return teacherRow{
		ID:         tch.ID,
		Name:       tch.Name,
		Email:      nullStr(tch.Email),
		Subject:    nullStr(tch.Subject),
		GradeLevel: nullStr(tch.GradeLevel),
		LocationID: nullStr(tch.LocationID),
		IsActive:   null.BoolFromPtr(tch.IsActive),
		CreatedAt:  nullTime(tch.CreatedAt),
		UpdatedAt:  nullTime(tch.UpdatedAt),
	}
}

func (repo teacherRepository) unmap(row teacherRow) teacher.Teacher {
	return teacher.Teacher{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email.String,
		Subject:    row.Subject.String,
		GradeLevel: row.GradeLevel.String,
		LocationID: row.LocationID.String,
		IsActive:   row.IsActive.Ptr(),
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

func (repo teacherRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return teacher.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, tch teacher.Teacher) (teacher.Teacher, error) {
	tch.ID = uuid.New().String()
	row := repo.row(tch)
	q := `
INSERT INTO teacher (` + teacherCols + `)
VALUES (:id, :name, :email, :subject, :grade_level, :location_id, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tch, nil
}

func (repo teacherRepository) GetTeacherByID(ctx context.Context, id string) (teacher.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	var row teacherRow
	q := `SELECT ` + teacherCols + ` FROM teacher WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return teacher.Teacher{}, repo.trapNoRowsErr(err, "finding teacher by ID")
	}
	return repo.unmap(row), nil
}

func (repo teacherRepository) FilterTeachers(ctx context.Context, filter teacher.QueryFilter) ([]teacher.Teacher, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR subject ILIKE $%d)", n, n, n))
	}
	if filter.LocationID != "" {
		args = append(args, filter.LocationID)
		where = append(where, fmt.Sprintf("location_id = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}

	q := `SELECT ` + teacherCols + ` FROM teacher`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name ASC"

	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, repo.unmap(row))
	}
	return teachers, nil
}

// UpdateTeacher only overwrites set fields.
func (repo teacherRepository) UpdateTeacher(ctx context.Context, tch teacher.Teacher, isActive *bool) (teacher.Teacher, error) {
	if _, err := uuid.Parse(tch.ID); err != nil {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	q := `
UPDATE teacher SET
    name        = COALESCE(NULLIF($2, ''), name),
    email       = COALESCE(NULLIF($3, ''), email),
    subject     = COALESCE(NULLIF($4, ''), subject),
    grade_level = COALESCE(NULLIF($5, ''), grade_level),
    location_id = COALESCE(NULLIF($6, '')::uuid, location_id),
    is_active   = COALESCE($7, is_active),
    updated_at  = $8
WHERE id = $1
RETURNING ` + teacherCols
	var row teacherRow
	err := repo.db.GetContext(ctx, &row, q,
		tch.ID, tch.Name, tch.Email, tch.Subject, tch.GradeLevel, tch.LocationID,
		null.BoolFromPtr(isActive), tch.UpdatedAt.UTC(),
	)
	if err != nil {
		return teacher.Teacher{}, repo.trapNoRowsErr(err, "updating teacher")
	}
	return repo.unmap(row), nil
}

func (repo teacherRepository) DeleteTeachersByID(ctx context.Context, ids ...string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM teacher WHERE id::text = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting teachers")
	}
	return nil
}
