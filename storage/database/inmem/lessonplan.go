package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/lessonplan"
)

type lessonPlanRepository struct {
	db *DB
}

var _ lessonplan.Repository = (*lessonPlanRepository)(nil) // interface compliance check

func NewLessonPlanRepository(db *DB) *lessonPlanRepository {
	return &lessonPlanRepository{db: db}
}

func (repo *lessonPlanRepository) CreateLessonPlan(ctx context.Context, lp lessonplan.LessonPlan) (lessonplan.LessonPlan, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lp.ID = uuid.New().String()
	repo.db.lessonPlans[lp.ID] = &lp
	return lp, nil
}

func (repo *lessonPlanRepository) GetLessonPlanByID(ctx context.Context, id string) (lessonplan.LessonPlan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lp, ok := repo.db.lessonPlans[id]; ok {
		return *lp, nil
	}
	return lessonplan.LessonPlan{}, lessonplan.ErrNotFound
}

func (repo *lessonPlanRepository) FilterLessonPlans(ctx context.Context, filter lessonplan.QueryFilter) ([]lessonplan.LessonPlan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var plans []lessonplan.LessonPlan
	search := strings.ToLower(filter.Search)
	for _, lp := range repo.db.lessonPlans {
		if filter.TeacherID != "" && lp.TeacherID != filter.TeacherID {
			continue
		}
		if filter.CreatedBy != "" && lp.CreatedBy != filter.CreatedBy {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(lp.Title), search) &&
			!strings.Contains(strings.ToLower(lp.Subject), search) &&
			!strings.Contains(strings.ToLower(lp.Objective), search) {
			continue
		}
		plans = append(plans, *lp)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].CreatedAt.After(plans[j].CreatedAt) })
	return plans, nil
}

func (repo *lessonPlanRepository) UpdateLessonPlan(ctx context.Context, lp lessonplan.LessonPlan) (lessonplan.LessonPlan, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.lessonPlans[lp.ID]
	if !ok {
		return lessonplan.LessonPlan{}, lessonplan.ErrNotFound
	}
	orig.Title = lp.Title
	orig.Subject = lp.Subject
	orig.GradeLevel = lp.GradeLevel
	orig.Objective = lp.Objective
	orig.Materials = lp.Materials
	orig.Activities = lp.Activities
	orig.Assessment = lp.Assessment
	orig.UpdatedAt = lp.UpdatedAt
	return *orig, nil
}

func (repo *lessonPlanRepository) DeleteLessonPlansByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.lessonPlans, id)
	}
	return nil
}
