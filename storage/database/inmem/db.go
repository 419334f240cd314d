// Package inmemdb provides map-backed repositories for tests and local
// development. All repositories share one DB and one lock so that
// conditional writes behave like their SQL counterparts.
package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/lessonplan"
	"github.com/darasahq/darasa/core/location"
	"github.com/darasahq/darasa/core/teacher"
	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/core/walkthrough"
)

type DB struct {
	mutex        sync.RWMutex
	users        map[string]*user.User
	walkthroughs map[string]*walkthrough.Walkthrough
	teachers     map[string]*teacher.Teacher
	locations    map[string]*location.Location
	lessonPlans  map[string]*lessonplan.LessonPlan
}

func NewDB() *DB {
	return &DB{
		users:        make(map[string]*user.User),
		walkthroughs: make(map[string]*walkthrough.Walkthrough),
		teachers:     make(map[string]*teacher.Teacher),
		locations:    make(map[string]*location.Location),
		lessonPlans:  make(map[string]*lessonplan.LessonPlan),
	}
}
