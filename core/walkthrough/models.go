package walkthrough

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// ReviewStatus is the workflow state of a walkthrough's post-observation review.
// The lifecycle is linear and monotonic:
//
//	not-required -> pending -> in-progress -> completed
//
// No regression, no skip-ahead.
type ReviewStatus string

const (
	ReviewNotRequired ReviewStatus = "not-required"
	ReviewPending     ReviewStatus = "pending"
	ReviewInProgress  ReviewStatus = "in-progress"
	ReviewCompleted   ReviewStatus = "completed"
)

var reviewStatusRank = map[ReviewStatus]int{
	ReviewNotRequired: 0,
	ReviewPending:     1,
	ReviewInProgress:  2,
	ReviewCompleted:   3,
}

func (s ReviewStatus) Valid() bool {
	_, ok := reviewStatusRank[s]
	return ok
}

// CanAdvanceTo only allows the single next step in the lifecycle.
func (s ReviewStatus) CanAdvanceTo(next ReviewStatus) bool {
	cur, ok := reviewStatusRank[s]
	if !ok {
		return false
	}
	nxt, ok := reviewStatusRank[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// Walkthrough is a single classroom-observation record. It is owned by its
// creator (the observer) and optionally carries one assigned reviewer.
type Walkthrough struct {
	ID                 string       `json:"id"`
	ObserverID         string       `json:"observer_id"` // creator/owner
	TeacherID          string       `json:"teacher_id"`
	LocationID         string       `json:"location_id"`
	LessonPlanID       string       `json:"lesson_plan_id,omitempty"`
	Subject            string       `json:"subject"`
	GradeLevel         string       `json:"grade_level"`
	Objective          string       `json:"objective"`
	Standards          []string     `json:"standards,omitempty"`
	Strengths          string       `json:"strengths"`
	AreasForGrowth     string       `json:"areas_for_growth"`
	AdditionalComments string       `json:"additional_comments"`
	Notes              string       `json:"notes"`
	ObservedAt         time.Time    `json:"observed_at"` // UTC
	AssignedReviewerID string       `json:"assigned_reviewer_id,omitempty"`
	ReviewStatus       ReviewStatus `json:"review_status"`
	ReviewStartedAt    time.Time    `json:"review_started_at"`   // UTC; zero until review starts
	ReviewCompletedAt  time.Time    `json:"review_completed_at"` // UTC; zero until review completes
	ReviewerFeedback   string       `json:"reviewer_feedback"`
	ReviewerComments   string       `json:"reviewer_comments"`
	CreatedAt          time.Time    `json:"created_at"` // UTC
	UpdatedAt          time.Time    `json:"updated_at"` // UTC
}

// ObservationData extracts the assistant-facing subset of the record.
func (w *Walkthrough) ObservationData() core.ObservationData {
	return core.ObservationData{
		Subject:        w.Subject,
		GradeLevel:     w.GradeLevel,
		Objective:      w.Objective,
		Strengths:      w.Strengths,
		AreasForGrowth: w.AreasForGrowth,
		Notes:          w.Notes,
	}
}

// NewWalkthrough contains information needed to record a new observation.
type NewWalkthrough struct {
	TeacherID          string    `json:"teacher_id" validate:"required"`
	LocationID         string    `json:"location_id" validate:"required"`
	LessonPlanID       string    `json:"lesson_plan_id"`
	Subject            string    `json:"subject" validate:"required"`
	GradeLevel         string    `json:"grade_level"`
	Objective          string    `json:"objective"`
	Standards          []string  `json:"standards"`
	Strengths          string    `json:"strengths"`
	AreasForGrowth     string    `json:"areas_for_growth"`
	AdditionalComments string    `json:"additional_comments"`
	Notes              string    `json:"notes"`
	ObservedAt         time.Time `json:"observed_at"`
	AssignedReviewerID string    `json:"assigned_reviewer_id"`
}

func (nw *NewWalkthrough) Validate(validate *validator.Validate) error {
	nw.Subject = core.CleanString(nw.Subject)
	nw.GradeLevel = core.CleanString(nw.GradeLevel)
	nw.Objective = core.CleanString(nw.Objective)
	return validate.Struct(nw)
}

// UpdateWalkthrough defines what the owner may modify on an existing record.
// The review status is never set directly; it only moves through the
// transition operations.
type UpdateWalkthrough struct {
	LessonPlanID       string    `json:"lesson_plan_id"`
	Subject            string    `json:"subject"`
	GradeLevel         string    `json:"grade_level"`
	Objective          string    `json:"objective"`
	Standards          []string  `json:"standards"`
	Strengths          string    `json:"strengths"`
	AreasForGrowth     string    `json:"areas_for_growth"`
	AdditionalComments string    `json:"additional_comments"`
	Notes              string    `json:"notes"`
	ObservedAt         time.Time `json:"observed_at"`
	AssignedReviewerID string    `json:"assigned_reviewer_id"`
}

func (uw *UpdateWalkthrough) Validate(validate *validator.Validate) error {
	uw.Subject = core.CleanString(uw.Subject)
	uw.GradeLevel = core.CleanString(uw.GradeLevel)
	uw.Objective = core.CleanString(uw.Objective)
	return validate.Struct(uw)
}

// ReviewSubmission is the payload completing a review.
type ReviewSubmission struct {
	ReviewerFeedback string `json:"reviewer_feedback" validate:"required"`
	ReviewerComments string `json:"reviewer_comments"`
}

func (rs *ReviewSubmission) Validate(validate *validator.Validate) error {
	rs.ReviewerFeedback = core.CleanString(rs.ReviewerFeedback)
	rs.ReviewerComments = core.CleanString(rs.ReviewerComments)
	return validate.Struct(rs)
}

// ReviewDraft persists reviewer fields without touching the review status.
// Nil fields were absent from the request and are left untouched.
type ReviewDraft struct {
	ReviewerFeedback *string `json:"reviewer_feedback"`
	ReviewerComments *string `json:"reviewer_comments"`
}

type QueryFilter struct {
	ObserverID   string       `query:"observer"`
	TeacherID    string       `query:"teacher"`
	LocationID   string       `query:"location"`
	ReviewStatus ReviewStatus `query:"review_status"`
	Search       string       `query:"search"`
	ObservedFrom time.Time    `query:"observed_from"`
	ObservedTo   time.Time    `query:"observed_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ObserverID == "" && qf.TeacherID == "" && qf.LocationID == "" &&
		qf.ReviewStatus == "" && qf.Search == "" && qf.ObservedFrom.IsZero() && qf.ObservedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Analytics aggregates (leadership dashboards).

type Overview struct {
	TotalWalkthroughs  int `json:"total_walkthroughs"`
	ReviewsNotRequired int `json:"reviews_not_required"`
	ReviewsPending     int `json:"reviews_pending"`
	ReviewsInProgress  int `json:"reviews_in_progress"`
	ReviewsCompleted   int `json:"reviews_completed"`
}

type LocationStat struct {
	LocationID       string    `json:"location_id"`
	Walkthroughs     int       `json:"walkthroughs"`
	ReviewsCompleted int       `json:"reviews_completed"`
	LastObservedAt   time.Time `json:"last_observed_at"`
}

type TeacherStat struct {
	TeacherID      string    `json:"teacher_id"`
	Walkthroughs   int       `json:"walkthroughs"`
	LastObservedAt time.Time `json:"last_observed_at"`
}
