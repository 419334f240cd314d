package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, tch teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tch.ID = uuid.New().String()
	repo.db.teachers[tch.ID] = &tch
	return tch, nil
}

func (repo *teacherRepository) GetTeacherByID(ctx context.Context, id string) (teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tch, ok := repo.db.teachers[id]; ok {
		return *tch, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) FilterTeachers(ctx context.Context, filter teacher.QueryFilter) ([]teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var teachers []teacher.Teacher
	search := strings.ToLower(filter.Search)
	for _, tch := range repo.db.teachers {
		if search != "" &&
			!strings.Contains(strings.ToLower(tch.Name), search) &&
			!strings.Contains(strings.ToLower(tch.Email), search) &&
			!strings.Contains(strings.ToLower(tch.Subject), search) {
			continue
		}
		if filter.LocationID != "" && tch.LocationID != filter.LocationID {
			continue
		}
		if filter.IsActive != nil && (tch.IsActive == nil || *tch.IsActive != *filter.IsActive) {
			continue
		}
		teachers = append(teachers, *tch)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, tch teacher.Teacher, isActive *bool) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	orig, ok := repo.db.teachers[tch.ID]
	if !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if tch.Name != "" {
		orig.Name = tch.Name
	}
	if tch.Email != "" {
		orig.Email = tch.Email
	}
	if tch.Subject != "" {
		orig.Subject = tch.Subject
	}
	if tch.GradeLevel != "" {
		orig.GradeLevel = tch.GradeLevel
	}
	if tch.LocationID != "" {
		orig.LocationID = tch.LocationID
	}
	if isActive != nil {
		orig.SetActive(*isActive)
	}
	orig.UpdatedAt = tch.UpdatedAt
	return *orig, nil
}

func (repo *teacherRepository) DeleteTeachersByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.teachers, id)
	}
	return nil
}
