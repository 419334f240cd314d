package teacher

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Teacher is a staff member under observation; not a system user.
type Teacher struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Subject    string    `json:"subject"`
	GradeLevel string    `json:"grade_level"`
	LocationID string    `json:"location_id"`
	IsActive   *bool     `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (t *Teacher) SetActive(active bool) {
	t.IsActive = &active
}

type NewTeacher struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Subject    string `json:"subject"`
	GradeLevel string `json:"grade_level"`
	LocationID string `json:"location_id" validate:"required"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Subject = core.CleanString(nt.Subject)
	return validate.Struct(nt)
}

type UpdateTeacher struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Subject    string `json:"subject"`
	GradeLevel string `json:"grade_level"`
	LocationID string `json:"location_id"`
	IsActive   *bool  `json:"is_active"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate, orig Teacher) error {
	if name := core.CleanString(ut.Name); name != "" {
		ut.Name = name
	} else {
		ut.Name = orig.Name
	}
	if email := core.CleanString(ut.Email, true /* lower */); email != "" {
		ut.Email = email
	} else {
		ut.Email = orig.Email
	}
	if ut.LocationID == "" {
		ut.LocationID = orig.LocationID
	}
	return validate.Struct(ut)
}

type QueryFilter struct {
	Search     string `query:"search"`
	LocationID string `query:"location"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.LocationID == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
