package lessonplan

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// LessonPlan is a teacher-authored document that can pre-populate
// walkthrough fields.
type LessonPlan struct {
	ID         string    `json:"id"`
	TeacherID  string    `json:"teacher_id"`
	CreatedBy  string    `json:"created_by"` // user ID of the uploader
	Title      string    `json:"title"`
	Subject    string    `json:"subject"`
	GradeLevel string    `json:"grade_level"`
	Objective  string    `json:"objective"`
	Materials  string    `json:"materials"`
	Activities string    `json:"activities"`
	Assessment string    `json:"assessment"`
	SourceText string    `json:"source_text,omitempty"` // raw document text, when intake was AI-assisted
	CreatedAt  time.Time `json:"created_at"`            // UTC
	UpdatedAt  time.Time `json:"updated_at"`            // UTC
}

type NewLessonPlan struct {
	TeacherID  string `json:"teacher_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Subject    string `json:"subject"`
	GradeLevel string `json:"grade_level"`
	Objective  string `json:"objective"`
	Materials  string `json:"materials"`
	Activities string `json:"activities"`
	Assessment string `json:"assessment"`
	SourceText string `json:"source_text"`
}

func (np *NewLessonPlan) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Subject = core.CleanString(np.Subject)
	return validate.Struct(np)
}

type UpdateLessonPlan struct {
	Title      string `json:"title"`
	Subject    string `json:"subject"`
	GradeLevel string `json:"grade_level"`
	Objective  string `json:"objective"`
	Materials  string `json:"materials"`
	Activities string `json:"activities"`
	Assessment string `json:"assessment"`
}

func (up *UpdateLessonPlan) Validate(validate *validator.Validate, orig LessonPlan) error {
	if title := core.CleanString(up.Title); title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	return validate.Struct(up)
}

// ExtractRequest carries document text for AI-assisted intake. Parsing an
// uploaded file into text happens upstream; the API only ever sees text.
type ExtractRequest struct {
	DocumentText string `json:"document_text" validate:"required"`
}

func (er *ExtractRequest) Validate(validate *validator.Validate) error {
	er.DocumentText = core.CleanString(er.DocumentText)
	return validate.Struct(er)
}

type QueryFilter struct {
	TeacherID string `query:"teacher"`
	CreatedBy string `query:"created_by"`
	Search    string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TeacherID == "" && qf.CreatedBy == "" && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
