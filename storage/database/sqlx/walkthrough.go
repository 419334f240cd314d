package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/walkthrough"
)

const walkthroughCols = `id, observer_id, teacher_id, location_id, lesson_plan_id, subject, grade_level,
	objective, standards, strengths, areas_for_growth, additional_comments, notes, observed_at,
	assigned_reviewer_id, review_status, review_started_at, review_completed_at,
	reviewer_feedback, reviewer_comments, created_at, updated_at`

type walkthroughRow struct {
	ID                 string         `db:"id"`
	ObserverID         null.String    `db:"observer_id"`
	TeacherID          null.String    `db:"teacher_id"`
	LocationID         null.String    `db:"location_id"`
	LessonPlanID       null.String    `db:"lesson_plan_id"`
	Subject            null.String    `db:"subject"`
	GradeLevel         null.String    `db:"grade_level"`
	Objective          null.String    `db:"objective"`
	Standards          pq.StringArray `db:"standards"`
	Strengths          null.String    `db:"strengths"`
	AreasForGrowth     null.String    `db:"areas_for_growth"`
	AdditionalComments null.String    `db:"additional_comments"`
	Notes              null.String    `db:"notes"`
	ObservedAt         null.Time      `db:"observed_at"`
	AssignedReviewerID null.String    `db:"assigned_reviewer_id"`
	ReviewStatus       string         `db:"review_status"`
	ReviewStartedAt    null.Time      `db:"review_started_at"`
	ReviewCompletedAt  null.Time      `db:"review_completed_at"`
	ReviewerFeedback   null.String    `db:"reviewer_feedback"`
	ReviewerComments   null.String    `db:"reviewer_comments"`
	CreatedAt          null.Time      `db:"created_at"`
	UpdatedAt          null.Time      `db:"updated_at"`
}

type walkthroughRepository struct {
	db *sqlx.DB
}

var _ walkthrough.Repository = (*walkthroughRepository)(nil) // interface compliance check

func NewWalkthroughRepository(db *sqlx.DB) *walkthroughRepository {
	return &walkthroughRepository{db: db}
}

func (repo walkthroughRepository) row(wt walkthrough.Walkthrough) walkthroughRow {
	return walkthroughRow{
		ID:                 wt.ID,
		ObserverID:         nullStr(wt.ObserverID),
		TeacherID:          nullStr(wt.TeacherID),
		LocationID:         nullStr(wt.LocationID),
		LessonPlanID:       nullStr(wt.LessonPlanID),
		Subject:            nullStr(wt.Subject),
		GradeLevel:         nullStr(wt.GradeLevel),
		Objective:          nullStr(wt.Objective),
		Standards:          pq.StringArray(wt.Standards),
		Strengths:          nullStr(wt.Strengths),
		AreasForGrowth:     nullStr(wt.AreasForGrowth),
		AdditionalComments: nullStr(wt.AdditionalComments),
		Notes:              nullStr(wt.Notes),
		ObservedAt:         nullTime(wt.ObservedAt),
		AssignedReviewerID: nullStr(wt.AssignedReviewerID),
		ReviewStatus:       string(wt.ReviewStatus),
		ReviewStartedAt:    nullTime(wt.ReviewStartedAt),
		ReviewCompletedAt:  nullTime(wt.ReviewCompletedAt),
		ReviewerFeedback:   nullStr(wt.ReviewerFeedback),
		ReviewerComments:   nullStr(wt.ReviewerComments),
		CreatedAt:          nullTime(wt.CreatedAt),
		UpdatedAt:          nullTime(wt.UpdatedAt),
	}
}

func (repo walkthroughRepository) unmap(row walkthroughRow) walkthrough.Walkthrough {
	return walkthrough.Walkthrough{
		ID:                 row.ID,
		ObserverID:         row.ObserverID.String,
		TeacherID:          row.TeacherID.String,
		LocationID:         row.LocationID.String,
		LessonPlanID:       row.LessonPlanID.String,
		Subject:            row.Subject.String,
		GradeLevel:         row.GradeLevel.String,
		Objective:          row.Objective.String,
		Standards:          []string(row.Standards),
		Strengths:          row.Strengths.String,
		AreasForGrowth:     row.AreasForGrowth.String,
		AdditionalComments: row.AdditionalComments.String,
		Notes:              row.Notes.String,
		ObservedAt:         row.ObservedAt.Time,
		AssignedReviewerID: row.AssignedReviewerID.String,
		ReviewStatus:       walkthrough.ReviewStatus(row.ReviewStatus),
		ReviewStartedAt:    row.ReviewStartedAt.Time,
		ReviewCompletedAt:  row.ReviewCompletedAt.Time,
		ReviewerFeedback:   row.ReviewerFeedback.String,
		ReviewerComments:   row.ReviewerComments.String,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
}

func (repo walkthroughRepository) unmapSlice(rows []walkthroughRow) []walkthrough.Walkthrough {
	wts := make([]walkthrough.Walkthrough, 0, len(rows))
	for _, row := range rows {
		wts = append(wts, repo.unmap(row))
	}
	return wts
}

// trapNoRowsErr maps psql "no rows" err to walkthrough.ErrNotFound
func (repo walkthroughRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return walkthrough.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo walkthroughRepository) CreateWalkthrough(ctx context.Context, wt walkthrough.Walkthrough) (walkthrough.Walkthrough, error) {
	wt.ID = uuid.New().String()
	row := repo.row(wt)
	q := `
INSERT INTO walkthrough (` + walkthroughCols + `)
VALUES (:id, :observer_id, :teacher_id, :location_id, :lesson_plan_id, :subject, :grade_level,
	:objective, :standards, :strengths, :areas_for_growth, :additional_comments, :notes, :observed_at,
	:assigned_reviewer_id, :review_status, :review_started_at, :review_completed_at,
	:reviewer_feedback, :reviewer_comments, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return walkthrough.Walkthrough{}, errors.Wrap(err, "inserting walkthrough")
	}
	return wt, nil
}

func (repo walkthroughRepository) GetWalkthroughByID(ctx context.Context, id string) (walkthrough.Walkthrough, error) {
	if _, err := uuid.Parse(id); err != nil {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	var row walkthroughRow
	q := `SELECT ` + walkthroughCols + ` FROM walkthrough WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return walkthrough.Walkthrough{}, repo.trapNoRowsErr(err, "finding walkthrough by ID")
	}
	return repo.unmap(row), nil
}

func (repo walkthroughRepository) FilterWalkthroughs(ctx context.Context, filter walkthrough.QueryFilter, ordering ...core.DBOrdering) ([]walkthrough.Walkthrough, error) {
	where := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	if filter.ObserverID != "" {
		args = append(args, filter.ObserverID)
		where = append(where, fmt.Sprintf("observer_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.LocationID != "" {
		args = append(args, filter.LocationID)
		where = append(where, fmt.Sprintf("location_id = $%d", len(args)))
	}
	if filter.ReviewStatus != "" {
		args = append(args, string(filter.ReviewStatus))
		where = append(where, fmt.Sprintf("review_status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(subject ILIKE $%d OR objective ILIKE $%d OR strengths ILIKE $%d OR areas_for_growth ILIKE $%d OR notes ILIKE $%d)", n, n, n, n, n))
	}
	if !filter.ObservedFrom.IsZero() {
		args = append(args, filter.ObservedFrom.UTC())
		where = append(where, fmt.Sprintf("observed_at >= $%d", len(args)))
	}
	if !filter.ObservedTo.IsZero() {
		args = append(args, filter.ObservedTo.UTC())
		where = append(where, fmt.Sprintf("observed_at <= $%d", len(args)))
	}

	q := `SELECT ` + walkthroughCols + ` FROM walkthrough`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, "observed_at DESC")

	var rows []walkthroughRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering walkthroughs")
	}
	return repo.unmapSlice(rows), nil
}

func (repo walkthroughRepository) UpdateWalkthrough(ctx context.Context, wt walkthrough.Walkthrough) (walkthrough.Walkthrough, error) {
	if _, err := uuid.Parse(wt.ID); err != nil {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	row := repo.row(wt)
	q := `
UPDATE walkthrough SET
    lesson_plan_id       = :lesson_plan_id,
    subject              = :subject,
    grade_level          = :grade_level,
    objective            = :objective,
    standards            = :standards,
    strengths            = :strengths,
    areas_for_growth     = :areas_for_growth,
    additional_comments  = :additional_comments,
    notes                = :notes,
    observed_at          = :observed_at,
    assigned_reviewer_id = :assigned_reviewer_id,
    review_status        = :review_status,
    updated_at           = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return walkthrough.Walkthrough{}, errors.Wrap(err, "updating walkthrough")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	return wt, nil
}

// AdvanceReviewStatus performs the transition as a single conditional write:
// the row only moves when its current status still matches `from`. The losing
// side of a race sees zero rows updated and gets ErrInvalidTransition.
func (repo walkthroughRepository) AdvanceReviewStatus(ctx context.Context, id string, from, to walkthrough.ReviewStatus, upd *walkthrough.ReviewUpdate) (walkthrough.Walkthrough, error) {
	if _, err := uuid.Parse(id); err != nil {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	if !from.CanAdvanceTo(to) {
		return walkthrough.Walkthrough{}, walkthrough.ErrInvalidTransition
	}

	now := time.Now().UTC()
	sets := []string{"review_status = $1", "updated_at = $2"}
	args := []interface{}{string(to), now}
	switch to {
	case walkthrough.ReviewInProgress:
		sets = append(sets, "review_started_at = $2")
	case walkthrough.ReviewCompleted:
		sets = append(sets, "review_completed_at = $2")
	}
	if upd != nil {
		if upd.Feedback != nil {
			args = append(args, *upd.Feedback)
			sets = append(sets, fmt.Sprintf("reviewer_feedback = $%d", len(args)))
		}
		if upd.Comments != nil {
			args = append(args, *upd.Comments)
			sets = append(sets, fmt.Sprintf("reviewer_comments = $%d", len(args)))
		}
	}
	args = append(args, id, string(from))

	q := fmt.Sprintf(
		"UPDATE walkthrough SET %s WHERE id = $%d AND review_status = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, len(args), walkthroughCols)

	var row walkthroughRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err != sql.ErrNoRows {
			return walkthrough.Walkthrough{}, errors.Wrap(err, "advancing review status")
		}
		// no row updated: either the record is gone or the status precondition
		// no longer holds
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM walkthrough WHERE id = $1)`, id); err != nil {
			return walkthrough.Walkthrough{}, errors.Wrap(err, "checking walkthrough")
		}
		if exists {
			return walkthrough.Walkthrough{}, walkthrough.ErrInvalidTransition
		}
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	return repo.unmap(row), nil
}

func (repo walkthroughRepository) SaveReviewerFields(ctx context.Context, id string, upd walkthrough.ReviewUpdate) (walkthrough.Walkthrough, error) {
	if _, err := uuid.Parse(id); err != nil {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	q := `
UPDATE walkthrough SET
    reviewer_feedback = COALESCE($2, reviewer_feedback),
    reviewer_comments = COALESCE($3, reviewer_comments),
    updated_at        = $4
WHERE id = $1
RETURNING ` + walkthroughCols
	var row walkthroughRow
	err := repo.db.GetContext(ctx, &row, q,
		id, null.StringFromPtr(upd.Feedback), null.StringFromPtr(upd.Comments), time.Now().UTC())
	if err != nil {
		return walkthrough.Walkthrough{}, repo.trapNoRowsErr(err, "saving reviewer fields")
	}
	return repo.unmap(row), nil
}

func (repo walkthroughRepository) QueryReviews(ctx context.Context, reviewerID string, status walkthrough.ReviewStatus) ([]walkthrough.Walkthrough, error) {
	var rows []walkthroughRow
	q := `SELECT ` + walkthroughCols + ` FROM walkthrough
WHERE assigned_reviewer_id = $1 AND review_status = $2
ORDER BY observed_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, reviewerID, string(status)); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	return repo.unmapSlice(rows), nil
}

func (repo walkthroughRepository) DeleteWalkthroughsByID(ctx context.Context, ids ...string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM walkthrough WHERE id::text = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting walkthroughs")
	}
	return nil
}

// Analytics

func (repo walkthroughRepository) ReviewOverview(ctx context.Context) (walkthrough.Overview, error) {
	var row struct {
		Total       int `db:"total"`
		NotRequired int `db:"not_required"`
		Pending     int `db:"pending"`
		InProgress  int `db:"in_progress"`
		Completed   int `db:"completed"`
	}
	q := `
SELECT count(*) AS total,
       count(*) FILTER (WHERE review_status = 'not-required') AS not_required,
       count(*) FILTER (WHERE review_status = 'pending')      AS pending,
       count(*) FILTER (WHERE review_status = 'in-progress')  AS in_progress,
       count(*) FILTER (WHERE review_status = 'completed')    AS completed
FROM walkthrough`
	if err := repo.db.GetContext(ctx, &row, q); err != nil {
		return walkthrough.Overview{}, errors.Wrap(err, "querying review overview")
	}
	return walkthrough.Overview{
		TotalWalkthroughs:  row.Total,
		ReviewsNotRequired: row.NotRequired,
		ReviewsPending:     row.Pending,
		ReviewsInProgress:  row.InProgress,
		ReviewsCompleted:   row.Completed,
	}, nil
}

func (repo walkthroughRepository) LocationStats(ctx context.Context) ([]walkthrough.LocationStat, error) {
	var rows []struct {
		LocationID       string    `db:"location_id"`
		Walkthroughs     int       `db:"walkthroughs"`
		ReviewsCompleted int       `db:"reviews_completed"`
		LastObservedAt   null.Time `db:"last_observed_at"`
	}
	q := `
SELECT location_id,
       count(*) AS walkthroughs,
       count(*) FILTER (WHERE review_status = 'completed') AS reviews_completed,
       max(observed_at) AS last_observed_at
FROM walkthrough
WHERE location_id IS NOT NULL
GROUP BY location_id
ORDER BY walkthroughs DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying location stats")
	}
	stats := make([]walkthrough.LocationStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, walkthrough.LocationStat{
			LocationID:       row.LocationID,
			Walkthroughs:     row.Walkthroughs,
			ReviewsCompleted: row.ReviewsCompleted,
			LastObservedAt:   row.LastObservedAt.Time,
		})
	}
	return stats, nil
}

func (repo walkthroughRepository) TeacherStats(ctx context.Context) ([]walkthrough.TeacherStat, error) {
	var rows []struct {
		TeacherID      string    `db:"teacher_id"`
		Walkthroughs   int       `db:"walkthroughs"`
		LastObservedAt null.Time `db:"last_observed_at"`
	}
	q := `
SELECT teacher_id,
       count(*) AS walkthroughs,
       max(observed_at) AS last_observed_at
FROM walkthrough
WHERE teacher_id IS NOT NULL
GROUP BY teacher_id
ORDER BY walkthroughs DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying teacher stats")
	}
	stats := make([]walkthrough.TeacherStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, walkthrough.TeacherStat{
			TeacherID:      row.TeacherID,
			Walkthroughs:   row.Walkthroughs,
			LastObservedAt: row.LastObservedAt.Time,
		})
	}
	return stats, nil
}
