package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/walkthrough"
)

type walkthroughRepository struct {
	db *DB
}

var _ walkthrough.Repository = (*walkthroughRepository)(nil) // interface compliance check

func NewWalkthroughRepository(db *DB) *walkthroughRepository {
	return &walkthroughRepository{db: db}
}

func (repo *walkthroughRepository) query() []walkthrough.Walkthrough {
	wts := make([]walkthrough.Walkthrough, 0, len(repo.db.walkthroughs))
	for _, wt := range repo.db.walkthroughs {
		wts = append(wts, *wt)
	}
	return wts
}

func (repo *walkthroughRepository) CreateWalkthrough(ctx context.Context, wt walkthrough.Walkthrough) (walkthrough.Walkthrough, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	wt.ID = uuid.New().String()
	repo.db.walkthroughs[wt.ID] = &wt
	return wt, nil
}

func (repo *walkthroughRepository) GetWalkthroughByID(ctx context.Context, id string) (walkthrough.Walkthrough, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if wt, ok := repo.db.walkthroughs[id]; ok {
		return *wt, nil
	}
	return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
}

func (repo *walkthroughRepository) FilterWalkthroughs(ctx context.Context, filter walkthrough.QueryFilter, ordering ...core.DBOrdering) ([]walkthrough.Walkthrough, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var wts []walkthrough.Walkthrough
	search := strings.ToLower(filter.Search)
	for _, wt := range repo.query() {
		if filter.ObserverID != "" && wt.ObserverID != filter.ObserverID {
			continue
		}
		if filter.TeacherID != "" && wt.TeacherID != filter.TeacherID {
			continue
		}
		if filter.LocationID != "" && wt.LocationID != filter.LocationID {
			continue
		}
		if filter.ReviewStatus != "" && wt.ReviewStatus != filter.ReviewStatus {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(wt.Subject), search) &&
			!strings.Contains(strings.ToLower(wt.Objective), search) &&
			!strings.Contains(strings.ToLower(wt.Strengths), search) &&
			!strings.Contains(strings.ToLower(wt.AreasForGrowth), search) &&
			!strings.Contains(strings.ToLower(wt.Notes), search) {
			continue
		}
		if !filter.ObservedFrom.IsZero() && wt.ObservedAt.Before(filter.ObservedFrom) {
			continue
		}
		if !filter.ObservedTo.IsZero() && wt.ObservedAt.After(filter.ObservedTo) {
			continue
		}
		wts = append(wts, wt)
	}
	sort.Slice(wts, func(i, j int) bool { return wts[i].ObservedAt.After(wts[j].ObservedAt) })
	return wts, nil
}

func (repo *walkthroughRepository) UpdateWalkthrough(ctx context.Context, wt walkthrough.Walkthrough) (walkthrough.Walkthrough, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.walkthroughs[wt.ID]
	if !ok {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	orig.LessonPlanID = wt.LessonPlanID
	orig.Subject = wt.Subject
	orig.GradeLevel = wt.GradeLevel
	orig.Objective = wt.Objective
	orig.Standards = wt.Standards
	orig.Strengths = wt.Strengths
	orig.AreasForGrowth = wt.AreasForGrowth
	orig.AdditionalComments = wt.AdditionalComments
	orig.Notes = wt.Notes
	orig.ObservedAt = wt.ObservedAt
	orig.AssignedReviewerID = wt.AssignedReviewerID
	orig.ReviewStatus = wt.ReviewStatus
	orig.UpdatedAt = wt.UpdatedAt
	return *orig, nil
}

// AdvanceReviewStatus compares and sets the status under the write lock, so
// concurrent transitions on the same record serialize and only one wins.
func (repo *walkthroughRepository) AdvanceReviewStatus(ctx context.Context, id string, from, to walkthrough.ReviewStatus, upd *walkthrough.ReviewUpdate) (walkthrough.Walkthrough, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	wt, ok := repo.db.walkthroughs[id]
	if !ok {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	if wt.ReviewStatus != from || !from.CanAdvanceTo(to) {
		return walkthrough.Walkthrough{}, walkthrough.ErrInvalidTransition
	}

	now := time.Now().UTC()
	wt.ReviewStatus = to
	wt.UpdatedAt = now
	switch to {
	case walkthrough.ReviewInProgress:
		wt.ReviewStartedAt = now
	case walkthrough.ReviewCompleted:
		wt.ReviewCompletedAt = now
	}
	if upd != nil {
		if upd.Feedback != nil {
			wt.ReviewerFeedback = *upd.Feedback
		}
		if upd.Comments != nil {
			wt.ReviewerComments = *upd.Comments
		}
	}
	return *wt, nil
}

func (repo *walkthroughRepository) SaveReviewerFields(ctx context.Context, id string, upd walkthrough.ReviewUpdate) (walkthrough.Walkthrough, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	wt, ok := repo.db.walkthroughs[id]
	if !ok {
		return walkthrough.Walkthrough{}, walkthrough.ErrNotFound
	}
	if upd.Feedback != nil {
		wt.ReviewerFeedback = *upd.Feedback
	}
	if upd.Comments != nil {
		wt.ReviewerComments = *upd.Comments
	}
	wt.UpdatedAt = time.Now().UTC()
	return *wt, nil
}

func (repo *walkthroughRepository) QueryReviews(ctx context.Context, reviewerID string, status walkthrough.ReviewStatus) ([]walkthrough.Walkthrough, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var wts []walkthrough.Walkthrough
	for _, wt := range repo.query() {
		if wt.AssignedReviewerID == reviewerID && wt.ReviewStatus == status {
			wts = append(wts, wt)
		}
	}
	sort.Slice(wts, func(i, j int) bool { return wts[i].ObservedAt.After(wts[j].ObservedAt) })
	return wts, nil
}

func (repo *walkthroughRepository) DeleteWalkthroughsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.walkthroughs, id)
	}
	return nil
}

// Analytics

func (repo *walkthroughRepository) ReviewOverview(ctx context.Context) (walkthrough.Overview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ov walkthrough.Overview
	for _, wt := range repo.db.walkthroughs {
		ov.TotalWalkthroughs++
		switch wt.ReviewStatus {
		case walkthrough.ReviewNotRequired:
			ov.ReviewsNotRequired++
		case walkthrough.ReviewPending:
			ov.ReviewsPending++
		case walkthrough.ReviewInProgress:
			ov.ReviewsInProgress++
		case walkthrough.ReviewCompleted:
			ov.ReviewsCompleted++
		}
	}
	return ov, nil
}

func (repo *walkthroughRepository) LocationStats(ctx context.Context) ([]walkthrough.LocationStat, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	byLoc := make(map[string]*walkthrough.LocationStat)
	for _, wt := range repo.db.walkthroughs {
		if wt.LocationID == "" {
			continue
		}
		stat, ok := byLoc[wt.LocationID]
		if !ok {
			stat = &walkthrough.LocationStat{LocationID: wt.LocationID}
			byLoc[wt.LocationID] = stat
		}
		stat.Walkthroughs++
		if wt.ReviewStatus == walkthrough.ReviewCompleted {
			stat.ReviewsCompleted++
		}
		if wt.ObservedAt.After(stat.LastObservedAt) {
			stat.LastObservedAt = wt.ObservedAt
		}
	}

	stats := make([]walkthrough.LocationStat, 0, len(byLoc))
	for _, stat := range byLoc {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Walkthroughs > stats[j].Walkthroughs })
	return stats, nil
}

func (repo *walkthroughRepository) TeacherStats(ctx context.Context) ([]walkthrough.TeacherStat, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	byTeacher := make(map[string]*walkthrough.TeacherStat)
	for _, wt := range repo.db.walkthroughs {
		if wt.TeacherID == "" {
			continue
		}
		stat, ok := byTeacher[wt.TeacherID]
		if !ok {
			stat = &walkthrough.TeacherStat{TeacherID: wt.TeacherID}
			byTeacher[wt.TeacherID] = stat
		}
		stat.Walkthroughs++
		if wt.ObservedAt.After(stat.LastObservedAt) {
			stat.LastObservedAt = wt.ObservedAt
		}
	}

	stats := make([]walkthrough.TeacherStat, 0, len(byTeacher))
	for _, stat := range byTeacher {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Walkthroughs > stats[j].Walkthroughs })
	return stats, nil
}
