package walkthrough

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("walkthrough not found")
	// ErrForbidden: caller is neither the assigned reviewer nor an admin.
	ErrForbidden = errors.New("permission denied")
	// ErrInvalidTransition: the review status precondition no longer holds.
	ErrInvalidTransition = errors.New("invalid review status transition")
)

type (
	// ReviewUpdate carries the reviewer fields persisted alongside a
	// status transition.
	ReviewUpdate struct {
		Feedback *string
		Comments *string
	}

	Repository interface {
		CreateWalkthrough(ctx context.Context, wt Walkthrough) (Walkthrough, error)
		GetWalkthroughByID(ctx context.Context, id string) (Walkthrough, error)
		// FilterWalkthroughs applies AND operation on available QueryFilter fields.
		FilterWalkthroughs(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Walkthrough, error)
		UpdateWalkthrough(ctx context.Context, wt Walkthrough) (Walkthrough, error)
		// AdvanceReviewStatus is a single conditional write: the status moves
		// from `from` to `to` only if it still equals `from`; the repo stamps
		// ReviewStartedAt/ReviewCompletedAt according to `to`. Returns
		// ErrInvalidTransition when the record exists but the precondition no
		// longer holds, so two concurrent actors can never double-advance.
		AdvanceReviewStatus(ctx context.Context, id string, from, to ReviewStatus, upd *ReviewUpdate) (Walkthrough, error)
		// SaveReviewerFields persists feedback/comments without touching the status.
		SaveReviewerFields(ctx context.Context, id string, upd ReviewUpdate) (Walkthrough, error)
		QueryReviews(ctx context.Context, reviewerID string, status ReviewStatus) ([]Walkthrough, error)
		DeleteWalkthroughsByID(ctx context.Context, ids ...string) error

		ReviewOverview(ctx context.Context) (Overview, error)
		LocationStats(ctx context.Context) ([]LocationStat, error)
		TeacherStats(ctx context.Context) ([]TeacherStat, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, nw NewWalkthrough) (Walkthrough, error)
		GetByID(ctx context.Context, actor user.User, id string) (Walkthrough, error)
		Filter(ctx context.Context, actor user.User, filter QueryFilter, ordering ...core.DBOrdering) ([]Walkthrough, error)
		Update(ctx context.Context, actor user.User, id string, uw UpdateWalkthrough) (Walkthrough, error)
		Delete(ctx context.Context, actor user.User, ids ...string) error

		StartReview(ctx context.Context, actor user.User, id string) (Walkthrough, error)
		CompleteReview(ctx context.Context, actor user.User, id string, sub ReviewSubmission) (Walkthrough, error)
		SaveReviewDraft(ctx context.Context, actor user.User, id string, draft ReviewDraft) (Walkthrough, error)
		Reviews(ctx context.Context, actor user.User, status ReviewStatus) ([]Walkthrough, error)

		Overview(ctx context.Context) (Overview, error)
		LocationStats(ctx context.Context) ([]LocationStat, error)
		TeacherStats(ctx context.Context) ([]TeacherStat, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService, conf *core.Config, logger core.Logger) Service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

func (svc *service) Create(ctx context.Context, actor user.User, nw NewWalkthrough) (Walkthrough, error) {
	reviewer, err := svc.resolveReviewer(ctx, nw.AssignedReviewerID)
	if err != nil {
		return Walkthrough{}, err
	}

	now := time.Now().UTC()
	observedAt := nw.ObservedAt
	if observedAt.IsZero() {
		observedAt = now
	}
	wt := Walkthrough{
		ObserverID:         actor.ID,
		TeacherID:          nw.TeacherID,
		LocationID:         nw.LocationID,
		LessonPlanID:       nw.LessonPlanID,
		Subject:            nw.Subject,
		GradeLevel:         nw.GradeLevel,
		Objective:          nw.Objective,
		Standards:          nw.Standards,
		Strengths:          nw.Strengths,
		AreasForGrowth:     nw.AreasForGrowth,
		AdditionalComments: nw.AdditionalComments,
		Notes:              nw.Notes,
		ObservedAt:         observedAt.UTC(),
		ReviewStatus:       ReviewNotRequired,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	// assigning a reviewer puts the record in the review pipeline
	if reviewer.ID != "" {
		wt.AssignedReviewerID = reviewer.ID
		wt.ReviewStatus = ReviewPending
	}

	wt, err = svc.repo.CreateWalkthrough(ctx, wt)
	if err != nil {
		return Walkthrough{}, errors.Wrap(err, "creating walkthrough")
	}

	if reviewer.ID != "" {
		svc.sendAssignmentMail(reviewer, wt)
	}
	return wt, nil
}

func (svc *service) GetByID(ctx context.Context, actor user.User, id string) (Walkthrough, error) {
	wt, err := svc.repo.GetWalkthroughByID(ctx, id)
	if err != nil {
		return Walkthrough{}, err
	}
	if !svc.canRead(actor, wt) {
		return Walkthrough{}, ErrForbidden
	}
	return wt, nil
}

func (svc *service) Filter(ctx context.Context, actor user.User, filter QueryFilter, ordering ...core.DBOrdering) ([]Walkthrough, error) {
	filter.Clean()
	// observers only ever see their own records
	if !actor.IsAdmin() && !actor.IsLeadership() {
		filter.ObserverID = actor.ID
	}
	return svc.repo.FilterWalkthroughs(ctx, filter, ordering...)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, uw UpdateWalkthrough) (Walkthrough, error) {
	orig, err := svc.repo.GetWalkthroughByID(ctx, id)
	if err != nil {
		return Walkthrough{}, err
	}
	if orig.ObserverID != actor.ID && !actor.IsAdmin() {
		return Walkthrough{}, ErrForbidden
	}

	var reviewer user.User
	if uw.AssignedReviewerID != orig.AssignedReviewerID {
		// the reviewer cannot change once the review has started
		if reviewStatusRank[orig.ReviewStatus] >= reviewStatusRank[ReviewInProgress] {
			return Walkthrough{}, core.NewValidationError(
				nil, core.FieldError{Field: "assigned_reviewer_id", Error: "reviewer cannot change after the review has started"})
		}
		// unassigning would regress the review status
		if uw.AssignedReviewerID == "" {
			return Walkthrough{}, core.NewValidationError(
				nil, core.FieldError{Field: "assigned_reviewer_id", Error: "reviewer cannot be unassigned"})
		}
		if reviewer, err = svc.resolveReviewer(ctx, uw.AssignedReviewerID); err != nil {
			return Walkthrough{}, err
		}
	}

	wt := orig
	wt.LessonPlanID = uw.LessonPlanID
	wt.Subject = uw.Subject
	wt.GradeLevel = uw.GradeLevel
	wt.Objective = uw.Objective
	wt.Standards = uw.Standards
	wt.Strengths = uw.Strengths
	wt.AreasForGrowth = uw.AreasForGrowth
	wt.AdditionalComments = uw.AdditionalComments
	wt.Notes = uw.Notes
	if !uw.ObservedAt.IsZero() {
		wt.ObservedAt = uw.ObservedAt.UTC()
	}
	wt.AssignedReviewerID = uw.AssignedReviewerID
	wt.UpdatedAt = time.Now().UTC()

	// newly assigned reviewer enters the record into the review pipeline
	newlyAssigned := reviewer.ID != "" && orig.ReviewStatus == ReviewNotRequired
	if newlyAssigned {
		wt.ReviewStatus = ReviewPending
	}

	wt, err = svc.repo.UpdateWalkthrough(ctx, wt)
	if err != nil {
		return Walkthrough{}, errors.Wrap(err, "updating walkthrough")
	}

	if reviewer.ID != "" {
		svc.sendAssignmentMail(reviewer, wt)
	}
	return wt, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, ids ...string) error {
	if !actor.IsAdmin() {
		for _, id := range ids {
			wt, err := svc.repo.GetWalkthroughByID(ctx, id)
			if err != nil {
				return err
			}
			if wt.ObserverID != actor.ID {
				return ErrForbidden
			}
		}
	}
	return svc.repo.DeleteWalkthroughsByID(ctx, ids...)
}

// Review workflow

// StartReview moves a pending review to in-progress and stamps ReviewStartedAt.
func (svc *service) StartReview(ctx context.Context, actor user.User, id string) (Walkthrough, error) {
	wt, err := svc.repo.GetWalkthroughByID(ctx, id)
	if err != nil {
		return Walkthrough{}, err
	}
	if err = svc.authorizeReviewer(actor, wt); err != nil {
		return Walkthrough{}, err
	}
	return svc.repo.AdvanceReviewStatus(ctx, id, ReviewPending, ReviewInProgress, nil)
}

// CompleteReview moves an in-progress review to completed, stamps
// ReviewCompletedAt and persists feedback/comments, all in one conditional
// write. The completion email to the observer is best-effort.
func (svc *service) CompleteReview(ctx context.Context, actor user.User, id string, sub ReviewSubmission) (Walkthrough, error) {
	if core.CleanString(sub.ReviewerFeedback) == "" {
		return Walkthrough{}, core.NewValidationError(
			nil, core.FieldError{Field: "reviewer_feedback", Error: "reviewer feedback is required"})
	}

	wt, err := svc.repo.GetWalkthroughByID(ctx, id)
	if err != nil {
		return Walkthrough{}, err
	}
	if err = svc.authorizeReviewer(actor, wt); err != nil {
		return Walkthrough{}, err
	}

	wt, err = svc.repo.AdvanceReviewStatus(ctx, id, ReviewInProgress, ReviewCompleted, &ReviewUpdate{
		Feedback: &sub.ReviewerFeedback,
		Comments: &sub.ReviewerComments,
	})
	if err != nil {
		return Walkthrough{}, err
	}

	svc.sendCompletionMail(ctx, wt)
	return wt, nil
}

// SaveReviewDraft persists reviewer fields at any status without a transition.
func (svc *service) SaveReviewDraft(ctx context.Context, actor user.User, id string, draft ReviewDraft) (Walkthrough, error) {
	wt, err := svc.repo.GetWalkthroughByID(ctx, id)
	if err != nil {
		return Walkthrough{}, err
	}
	if err = svc.authorizeReviewer(actor, wt); err != nil {
		return Walkthrough{}, err
	}
	return svc.repo.SaveReviewerFields(ctx, id, ReviewUpdate{
		Feedback: draft.ReviewerFeedback,
		Comments: draft.ReviewerComments,
	})
}

// Reviews returns the caller's review queue for the given status.
func (svc *service) Reviews(ctx context.Context, actor user.User, status ReviewStatus) ([]Walkthrough, error) {
	return svc.repo.QueryReviews(ctx, actor.ID, status)
}

// Analytics

func (svc *service) Overview(ctx context.Context) (Overview, error) {
	return svc.repo.ReviewOverview(ctx)
}

func (svc *service) LocationStats(ctx context.Context) ([]LocationStat, error) {
	return svc.repo.LocationStats(ctx)
}

func (svc *service) TeacherStats(ctx context.Context) ([]TeacherStat, error) {
	return svc.repo.TeacherStats(ctx)
}

// helpers

// authorizeReviewer enforces that only the assigned reviewer or an admin may
// act on a review. An admin acting on a review they are not assigned to is
// break-glass behavior and gets an audit warning.
func (svc *service) authorizeReviewer(actor user.User, wt Walkthrough) error {
	if actor.ID == wt.AssignedReviewerID && wt.AssignedReviewerID != "" {
		return nil
	}
	if actor.IsAdmin() {
		svc.logger.Warn(
			fmt.Sprintf("admin %q acting on review for walkthrough %q assigned to %q", actor.Username, wt.ID, wt.AssignedReviewerID),
			actor,
		)
		return nil
	}
	return ErrForbidden
}

func (svc *service) canRead(actor user.User, wt Walkthrough) bool {
	if actor.IsAdmin() || actor.IsLeadership() {
		return true
	}
	return actor.ID == wt.ObserverID || (wt.AssignedReviewerID != "" && actor.ID == wt.AssignedReviewerID)
}

// resolveReviewer looks up and vets a candidate reviewer; a zero User means
// no reviewer was requested.
func (svc *service) resolveReviewer(ctx context.Context, reviewerID string) (user.User, error) {
	if reviewerID == "" {
		return user.User{}, nil
	}
	reviewer, err := svc.usrSvc.GetByID(ctx, reviewerID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, core.NewValidationError(
				nil, core.FieldError{Field: "assigned_reviewer_id", Error: "no such user"})
		}
		return user.User{}, errors.Wrap(err, "finding reviewer")
	}
	if !reviewer.CanReview() {
		return user.User{}, core.NewValidationError(
			nil, core.FieldError{Field: "assigned_reviewer_id", Error: "assigned reviewer must be a coach or admin"})
	}
	return reviewer, nil
}

// Mails. Delivery failures are logged by the email service and never block
// the state transition that triggered them.

func (svc *service) sendAssignmentMail(reviewer user.User, wt Walkthrough) {
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: reviewer.Name, Address: reviewer.Email}},
			Subject:      "Walkthrough review assigned",
			TemplateName: "review-assigned",
			TemplateData: struct {
				Name, Subject, WalkthroughID string
			}{reviewer.Name, wt.Subject, wt.ID},
		},
	)
}

func (svc *service) sendCompletionMail(ctx context.Context, wt Walkthrough) {
	observer, err := svc.usrSvc.GetByID(ctx, wt.ObserverID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("finding observer %q for completion mail: %v", wt.ObserverID, err), err)
		return
	}
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: observer.Name, Address: observer.Email}},
			Subject:      "Walkthrough review completed",
			TemplateName: "review-completed",
			TemplateData: struct {
				Name, Subject, WalkthroughID string
			}{observer.Name, wt.Subject, wt.ID},
		},
	)
}
