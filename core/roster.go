package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrRosterNotImplemented is returned by roster providers that are declared
// but not wired to a live backend yet.
var ErrRosterNotImplemented = errors.New("roster provider not implemented")

type (
	RosterCourse struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Section     string `json:"section"`
		TeacherName string `json:"teacher_name"`
		Room        string `json:"room"`
	}

	// RosterProvider is a class-data source (Google Classroom, Canvas, ...)
	// used to seed teacher and course records. Providers are read-only.
	RosterProvider interface {
		Name() string
		ListCourses(ctx context.Context, teacherEmail string) ([]RosterCourse, error)
	}
)
