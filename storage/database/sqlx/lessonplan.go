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

	"github.com/darasahq/darasa/core/lessonplan"
)

const lessonPlanCols = `id, teacher_id, created_by, title, subject, grade_level, objective, materials, activities, assessment, source_text, created_at, updated_at`

type lessonPlanRow struct {
	ID         string      `db:"id"`
	TeacherID  null.String `db:"teacher_id"`
	CreatedBy  null.String `db:"created_by"`
	Title      string      `db:"title"`
	Subject    null.String `db:"subject"`
	GradeLevel null.String `db:"grade_level"`
	Objective  null.String `db:"objective"`
	Materials  null.String `db:"materials"`
	Activities null.String `db:"activities"`
	Assessment null.String `db:"assessment"`
	SourceText null.String `db:"source_text"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

type lessonPlanRepository struct {
	db *sqlx.DB
}

var _ lessonplan.Repository = (*lessonPlanRepository)(nil) // interface compliance check

func NewLessonPlanRepository(db *sqlx.DB) *lessonPlanRepository {
	return &lessonPlanRepository{db: db}
}

func (repo lessonPlanRepository) row(lp lessonplan.LessonPlan) lessonPlanRow {
	return lessonPlanRow{
		ID:         lp.ID,
		TeacherID:  nullStr(lp.TeacherID),
		CreatedBy:  nullStr(lp.CreatedBy),
		Title:      lp.Title,
		Subject:    nullStr(lp.Subject),
		GradeLevel: nullStr(lp.GradeLevel),
		Objective:  nullStr(lp.Objective),
		Materials:  nullStr(lp.Materials),
		Activities: nullStr(lp.Activities),
		Assessment: nullStr(lp.Assessment),
		SourceText: nullStr(lp.SourceText),
		CreatedAt:  nullTime(lp.CreatedAt),
		UpdatedAt:  nullTime(lp.UpdatedAt),
	}
}

func (repo lessonPlanRepository) unmap(row lessonPlanRow) lessonplan.LessonPlan {
	return lessonplan.LessonPlan{
		ID:         row.ID,
		TeacherID:  row.TeacherID.String,
		CreatedBy:  row.CreatedBy.String,
		Title:      row.Title,
		Subject:    row.Subject.String,
		GradeLevel: row.GradeLevel.String,
		Objective:  row.Objective.String,
		Materials:  row.Materials.String,
		Activities: row.Activities.String,
		Assessment: row.Assessment.String,
		SourceText: row.SourceText.String,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

func (repo lessonPlanRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return lessonplan.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo lessonPlanRepository) CreateLessonPlan(ctx context.Context, lp lessonplan.LessonPlan) (lessonplan.LessonPlan, error) {
	lp.ID = uuid.New().String()
	row := repo.row(lp)
	q := `
INSERT INTO lesson_plan (` + lessonPlanCols + `)
VALUES (:id, :teacher_id, :created_by, :title, :subject, :grade_level, :objective, :materials, :activities, :assessment, :source_text, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return lessonplan.LessonPlan{}, errors.Wrap(err, "inserting lesson plan")
	}
	return lp, nil
}

func (repo lessonPlanRepository) GetLessonPlanByID(ctx context.Context, id string) (lessonplan.LessonPlan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return lessonplan.LessonPlan{}, lessonplan.ErrNotFound
	}
	var row lessonPlanRow
	q := `SELECT ` + lessonPlanCols + ` FROM lesson_plan WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return lessonplan.LessonPlan{}, repo.trapNoRowsErr(err, "finding lesson plan by ID")
	}
	return repo.unmap(row), nil
}

func (repo lessonPlanRepository) FilterLessonPlans(ctx context.Context, filter lessonplan.QueryFilter) ([]lessonplan.LessonPlan, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		where = append(where, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR subject ILIKE $%d OR objective ILIKE $%d)", n, n, n))
	}

	q := `SELECT ` + lessonPlanCols + ` FROM lesson_plan`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"

	var rows []lessonPlanRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering lesson plans")
	}
	plans := make([]lessonplan.LessonPlan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, repo.unmap(row))
	}
	return plans, nil
}

func (repo lessonPlanRepository) UpdateLessonPlan(ctx context.Context, lp lessonplan.LessonPlan) (lessonplan.LessonPlan, error) {
	if _, err := uuid.Parse(lp.ID); err != nil {
		return lessonplan.LessonPlan{}, lessonplan.ErrNotFound
	}
	row := repo.row(lp)
	q := `
UPDATE lesson_plan SET
    title       = :title,
    subject     = :subject,
    grade_level = :grade_level,
    objective   = :objective,
    materials   = :materials,
    activities  = :activities,
    assessment  = :assessment,
    updated_at  = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return lessonplan.LessonPlan{}, errors.Wrap(err, "updating lesson plan")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lessonplan.LessonPlan{}, lessonplan.ErrNotFound
	}
	return lp, nil
}

func (repo lessonPlanRepository) DeleteLessonPlansByID(ctx context.Context, ids ...string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM lesson_plan WHERE id::text = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting lesson plans")
	}
	return nil
}
