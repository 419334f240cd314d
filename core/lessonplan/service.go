package lessonplan

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	ErrNotFound  = errors.New("lesson plan not found")
	ErrForbidden = errors.New("permission denied")
)

type (
	Repository interface {
		CreateLessonPlan(ctx context.Context, lp LessonPlan) (LessonPlan, error)
		GetLessonPlanByID(ctx context.Context, id string) (LessonPlan, error)
		FilterLessonPlans(ctx context.Context, filter QueryFilter) ([]LessonPlan, error)
		UpdateLessonPlan(ctx context.Context, lp LessonPlan) (LessonPlan, error)
		DeleteLessonPlansByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, actor user.User, np NewLessonPlan) (LessonPlan, error)
		GetByID(ctx context.Context, id string) (LessonPlan, error)
		Filter(ctx context.Context, filter QueryFilter) ([]LessonPlan, error)
		Update(ctx context.Context, actor user.User, id string, up UpdateLessonPlan) (LessonPlan, error)
		Delete(ctx context.Context, actor user.User, ids ...string) error
		// ExtractFromDocument drafts lesson-plan fields from raw document text
		// via the assistant. Nothing is persisted; failures surface as
		// core.UpstreamError.
		ExtractFromDocument(ctx context.Context, documentText string) (core.LessonPlanFields, error)
	}

	service struct {
		repo      Repository
		assistSvc core.AssistService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, assistSvc core.AssistService) Service {
	return &service{repo: repo, assistSvc: assistSvc}
}

func (svc *service) Create(ctx context.Context, actor user.User, np NewLessonPlan) (LessonPlan, error) {
	now := time.Now().UTC()
	lp := LessonPlan{
		TeacherID:  np.TeacherID,
		CreatedBy:  actor.ID,
		Title:      np.Title,
		Subject:    np.Subject,
		GradeLevel: np.GradeLevel,
		Objective:  np.Objective,
		Materials:  np.Materials,
		Activities: np.Activities,
		Assessment: np.Assessment,
		SourceText: np.SourceText,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateLessonPlan(ctx, lp)
}

func (svc *service) GetByID(ctx context.Context, id string) (LessonPlan, error) {
	return svc.repo.GetLessonPlanByID(ctx, id)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]LessonPlan, error) {
	filter.Clean()
	return svc.repo.FilterLessonPlans(ctx, filter)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, up UpdateLessonPlan) (LessonPlan, error) {
	orig, err := svc.repo.GetLessonPlanByID(ctx, id)
	if err != nil {
		return LessonPlan{}, err
	}
	if orig.CreatedBy != actor.ID && !actor.IsAdmin() {
		return LessonPlan{}, ErrForbidden
	}

	lp := orig
	lp.Title = up.Title
	lp.Subject = up.Subject
	lp.GradeLevel = up.GradeLevel
	lp.Objective = up.Objective
	lp.Materials = up.Materials
	lp.Activities = up.Activities
	lp.Assessment = up.Assessment
	lp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLessonPlan(ctx, lp)
}

func (svc *service) Delete(ctx context.Context, actor user.User, ids ...string) error {
	if !actor.IsAdmin() {
		for _, id := range ids {
			lp, err := svc.repo.GetLessonPlanByID(ctx, id)
			if err != nil {
				return err
			}
			if lp.CreatedBy != actor.ID {
				return ErrForbidden
			}
		}
	}
	return svc.repo.DeleteLessonPlansByID(ctx, ids...)
}

func (svc *service) ExtractFromDocument(ctx context.Context, documentText string) (core.LessonPlanFields, error) {
	fields, err := svc.assistSvc.ExtractLessonPlanFields(ctx, documentText)
	if err != nil {
		return core.LessonPlanFields{}, core.NewUpstreamError("assist.extractLessonPlanFields", err)
	}
	return fields, nil
}
