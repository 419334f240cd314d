package teacher

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var ErrNotFound = errors.New("teacher not found")

type (
	Repository interface {
		CreateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		FilterTeachers(ctx context.Context, filter QueryFilter) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, tch Teacher, isActive *bool) (Teacher, error)
		DeleteTeachersByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Create(ctx context.Context, nt NewTeacher) (Teacher, error)
		GetByID(ctx context.Context, id string) (Teacher, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Teacher, error)
		Update(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error)
		Delete(ctx context.Context, ids ...string) error
		// Courses looks up the teacher's active courses with the configured
		// roster provider. Nothing is persisted.
		Courses(ctx context.Context, id string) ([]core.RosterCourse, error)
	}

	service struct {
		repo   Repository
		roster core.RosterProvider
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, roster core.RosterProvider) Service {
	return &service{repo: repo, roster: roster}
}

func (svc *service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	tch := Teacher{
		Name:       nt.Name,
		Email:      nt.Email,
		Subject:    nt.Subject,
		GradeLevel: nt.GradeLevel,
		LocationID: nt.LocationID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tch.SetActive(true)
	return svc.repo.CreateTeacher(ctx, tch)
}

func (svc *service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Teacher, error) {
	filter.Clean()
	return svc.repo.FilterTeachers(ctx, filter)
}

func (svc *service) Update(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error) {
	tch := Teacher{
		ID:         id,
		Name:       ut.Name,
		Email:      ut.Email,
		Subject:    ut.Subject,
		GradeLevel: ut.GradeLevel,
		LocationID: ut.LocationID,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpdateTeacher(ctx, tch, ut.IsActive)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteTeachersByID(ctx, ids...)
}

func (svc *service) Courses(ctx context.Context, id string) ([]core.RosterCourse, error) {
	tch, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return nil, err
	}

	courses, err := svc.roster.ListCourses(ctx, tch.Email)
	if err != nil {
		if errors.Cause(err) == core.ErrRosterNotImplemented {
			return nil, err
		}
		return nil, core.NewUpstreamError(svc.roster.Name(), err)
	}
	return courses, nil
}
