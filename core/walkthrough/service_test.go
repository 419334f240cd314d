package walkthrough_test

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/core/walkthrough"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

type testEnv struct {
	svc     walkthrough.Service
	usrRepo user.Repository

	observer user.User
	coach    user.User
	admin    user.User
}

func setup(t *testing.T) testEnv {
	t.Helper()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)

	conf := &core.Config{AppName: "Darasa", TestMode: true}
	logger := testutil.NoopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf, logger)
	svc := walkthrough.NewService(inmemdb.NewWalkthroughRepository(db), usrSvc, mailSvc, conf, logger)

	return testEnv{
		svc:      svc,
		usrRepo:  usrRepo,
		observer: testutil.CreateUser(t, usrRepo, "Obs", "obs", "obs@test.test", "", user.RoleObserver, true),
		coach:    testutil.CreateUser(t, usrRepo, "Coach", "coach", "coach@test.test", "", user.RoleCoach, true),
		admin:    testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.test", "", user.RoleAdmin, true),
	}
}

func createWalkthrough(t *testing.T, env testEnv, reviewerID string) walkthrough.Walkthrough {
	t.Helper()

	wt, err := env.svc.Create(context.Background(), env.observer, walkthrough.NewWalkthrough{
		TeacherID:          "t1",
		LocationID:         "l1",
		Subject:            "Math",
		GradeLevel:         "5",
		Objective:          "Fractions",
		AssignedReviewerID: reviewerID,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return wt
}

func TestCreate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	t.Run("no reviewer means no review", func(t *testing.T) {
		wt := createWalkthrough(t, env, "")
		if wt.ReviewStatus != walkthrough.ReviewNotRequired {
			t.Errorf("ReviewStatus = %q, want %q", wt.ReviewStatus, walkthrough.ReviewNotRequired)
		}
	})

	t.Run("assigned reviewer enters the pipeline", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)
		if wt.ReviewStatus != walkthrough.ReviewPending {
			t.Errorf("ReviewStatus = %q, want %q", wt.ReviewStatus, walkthrough.ReviewPending)
		}
		if wt.AssignedReviewerID != env.coach.ID {
			t.Errorf("AssignedReviewerID = %q, want %q", wt.AssignedReviewerID, env.coach.ID)
		}
	})

	t.Run("reviewer must be able to review", func(t *testing.T) {
		_, err := env.svc.Create(ctx, env.observer, walkthrough.NewWalkthrough{
			TeacherID:          "t1",
			LocationID:         "l1",
			Subject:            "Math",
			AssignedReviewerID: env.observer.ID,
		})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Create() error = %v, want ValidationError", err)
		}
	})

	t.Run("unknown reviewer is a field error", func(t *testing.T) {
		_, err := env.svc.Create(ctx, env.observer, walkthrough.NewWalkthrough{
			TeacherID:          "t1",
			LocationID:         "l1",
			Subject:            "Math",
			AssignedReviewerID: "nope",
		})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Create() error = %v, want ValidationError", err)
		}
	})
}

func TestStartReview(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	t.Run("assigned reviewer starts a pending review", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)

		wt, err := env.svc.StartReview(ctx, env.coach, wt.ID)
		if err != nil {
			t.Fatalf("StartReview() failed: %v", err)
		}
		if wt.ReviewStatus != walkthrough.ReviewInProgress {
			t.Errorf("ReviewStatus = %q, want %q", wt.ReviewStatus, walkthrough.ReviewInProgress)
		}
		if wt.ReviewStartedAt.IsZero() {
			t.Error("ReviewStartedAt not stamped")
		}
	})

	t.Run("only the assigned reviewer may start", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)
		otherCoach := testutil.CreateUser(t, env.usrRepo, "C2", "c2", "c2@test.test", "", user.RoleCoach, true)

		if _, err := env.svc.StartReview(ctx, otherCoach, wt.ID); errors.Cause(err) != walkthrough.ErrForbidden {
			t.Errorf("StartReview() error = %v, want %v", err, walkthrough.ErrForbidden)
		}
	})

	t.Run("admin may start as break-glass", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)

		if _, err := env.svc.StartReview(ctx, env.admin, wt.ID); err != nil {
			t.Errorf("StartReview() failed: %v", err)
		}
	})

	t.Run("start is only valid from pending", func(t *testing.T) {
		wt := createWalkthrough(t, env, "") // not-required

		if _, err := env.svc.StartReview(ctx, env.admin, wt.ID); errors.Cause(err) != walkthrough.ErrInvalidTransition {
			t.Errorf("StartReview() error = %v, want %v", err, walkthrough.ErrInvalidTransition)
		}
	})

	t.Run("start twice conflicts", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)

		if _, err := env.svc.StartReview(ctx, env.coach, wt.ID); err != nil {
			t.Fatalf("StartReview() failed: %v", err)
		}
		if _, err := env.svc.StartReview(ctx, env.coach, wt.ID); errors.Cause(err) != walkthrough.ErrInvalidTransition {
			t.Errorf("StartReview() error = %v, want %v", err, walkthrough.ErrInvalidTransition)
		}
	})

	t.Run("unknown walkthrough", func(t *testing.T) {
		if _, err := env.svc.StartReview(ctx, env.coach, "nope"); errors.Cause(err) != walkthrough.ErrNotFound {
			t.Errorf("StartReview() error = %v, want %v", err, walkthrough.ErrNotFound)
		}
	})
}

func TestCompleteReview(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	startedReview := func(t *testing.T) walkthrough.Walkthrough {
		wt := createWalkthrough(t, env, env.coach.ID)
		wt, err := env.svc.StartReview(ctx, env.coach, wt.ID)
		if err != nil {
			t.Fatalf("StartReview() failed: %v", err)
		}
		return wt
	}

	t.Run("completes with feedback", func(t *testing.T) {
		wt := startedReview(t)

		wt, err := env.svc.CompleteReview(ctx, env.coach, wt.ID, walkthrough.ReviewSubmission{
			ReviewerFeedback: "Great pacing.",
			ReviewerComments: "Check in next month.",
		})
		if err != nil {
			t.Fatalf("CompleteReview() failed: %v", err)
		}
		if wt.ReviewStatus != walkthrough.ReviewCompleted {
			t.Errorf("ReviewStatus = %q, want %q", wt.ReviewStatus, walkthrough.ReviewCompleted)
		}
		if wt.ReviewCompletedAt.IsZero() {
			t.Error("ReviewCompletedAt not stamped")
		}
		if wt.ReviewerFeedback != "Great pacing." {
			t.Errorf("ReviewerFeedback = %q", wt.ReviewerFeedback)
		}
	})

	t.Run("blank feedback is rejected and nothing changes", func(t *testing.T) {
		wt := startedReview(t)

		_, err := env.svc.CompleteReview(ctx, env.coach, wt.ID, walkthrough.ReviewSubmission{ReviewerFeedback: "   "})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Fatalf("CompleteReview() error = %v, want ValidationError", err)
		}

		wt, err = env.svc.GetByID(ctx, env.coach, wt.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if wt.ReviewStatus != walkthrough.ReviewInProgress {
			t.Errorf("ReviewStatus = %q, want %q", wt.ReviewStatus, walkthrough.ReviewInProgress)
		}
	})

	t.Run("only the assigned reviewer may complete", func(t *testing.T) {
		wt := startedReview(t)
		otherCoach := testutil.CreateUser(t, env.usrRepo, "C4", "c4", "c4@test.test", "", user.RoleCoach, true)

		_, err := env.svc.CompleteReview(ctx, otherCoach, wt.ID, walkthrough.ReviewSubmission{ReviewerFeedback: "f"})
		if errors.Cause(err) != walkthrough.ErrForbidden {
			t.Errorf("CompleteReview() error = %v, want %v", err, walkthrough.ErrForbidden)
		}
	})

	t.Run("complete is only valid from in-progress", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID) // pending

		_, err := env.svc.CompleteReview(ctx, env.coach, wt.ID, walkthrough.ReviewSubmission{ReviewerFeedback: "f"})
		if errors.Cause(err) != walkthrough.ErrInvalidTransition {
			t.Errorf("CompleteReview() error = %v, want %v", err, walkthrough.ErrInvalidTransition)
		}
	})

	t.Run("completed review never regresses", func(t *testing.T) {
		wt := startedReview(t)

		if _, err := env.svc.CompleteReview(ctx, env.coach, wt.ID, walkthrough.ReviewSubmission{ReviewerFeedback: "f"}); err != nil {
			t.Fatalf("CompleteReview() failed: %v", err)
		}
		_, err := env.svc.CompleteReview(ctx, env.coach, wt.ID, walkthrough.ReviewSubmission{ReviewerFeedback: "again"})
		if errors.Cause(err) != walkthrough.ErrInvalidTransition {
			t.Errorf("CompleteReview() error = %v, want %v", err, walkthrough.ErrInvalidTransition)
		}
	})
}

func TestConcurrentStartReview(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	wt := createWalkthrough(t, env, env.coach.ID)

	// two racing actors; the conditional write lets exactly one through
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i, actor := range []user.User{env.coach, env.admin} {
		go func(i int, actor user.User) {
			defer wg.Done()
			_, errs[i] = env.svc.StartReview(ctx, actor, wt.ID)
		}(i, actor)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch errors.Cause(err) {
		case nil:
			won++
		case walkthrough.ErrInvalidTransition:
			lost++
		default:
			t.Fatalf("StartReview() unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Errorf("want exactly one winner, got %d winners and %d conflicts", won, lost)
	}
}

func TestSaveReviewDraft(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	wt := createWalkthrough(t, env, env.coach.ID)

	feedback := "draft notes"
	comments := "aside"
	wt, err := env.svc.SaveReviewDraft(ctx, env.coach, wt.ID, walkthrough.ReviewDraft{
		ReviewerFeedback: &feedback,
		ReviewerComments: &comments,
	})
	if err != nil {
		t.Fatalf("SaveReviewDraft() failed: %v", err)
	}
	if wt.ReviewerFeedback != "draft notes" {
		t.Errorf("ReviewerFeedback = %q, want %q", wt.ReviewerFeedback, "draft notes")
	}
	// drafting never moves the status
	if wt.ReviewStatus != walkthrough.ReviewPending {
		t.Errorf("ReviewStatus = %q, want %q", wt.ReviewStatus, walkthrough.ReviewPending)
	}

	// absent fields are left as they are
	feedback = "revised notes"
	wt, err = env.svc.SaveReviewDraft(ctx, env.coach, wt.ID, walkthrough.ReviewDraft{
		ReviewerFeedback: &feedback,
	})
	if err != nil {
		t.Fatalf("SaveReviewDraft() failed: %v", err)
	}
	if wt.ReviewerFeedback != "revised notes" {
		t.Errorf("ReviewerFeedback = %q, want %q", wt.ReviewerFeedback, "revised notes")
	}
	if wt.ReviewerComments != "aside" {
		t.Errorf("ReviewerComments = %q, want %q", wt.ReviewerComments, "aside")
	}
}

func TestVisibility(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	otherObs := testutil.CreateUser(t, env.usrRepo, "Obs2", "obs2", "obs2@test.test", "", user.RoleObserver, true)
	leadership := testutil.CreateUser(t, env.usrRepo, "Lead", "lead", "lead@test.test", "", user.RoleLeadership, true)

	wt := createWalkthrough(t, env, env.coach.ID)

	t.Run("observers only read their own", func(t *testing.T) {
		if _, err := env.svc.GetByID(ctx, otherObs, wt.ID); errors.Cause(err) != walkthrough.ErrForbidden {
			t.Errorf("GetByID() error = %v, want %v", err, walkthrough.ErrForbidden)
		}
	})

	t.Run("assigned reviewer and leadership may read", func(t *testing.T) {
		for _, actor := range []user.User{env.observer, env.coach, leadership, env.admin} {
			if _, err := env.svc.GetByID(ctx, actor, wt.ID); err != nil {
				t.Errorf("GetByID() as %q failed: %v", actor.Username, err)
			}
		}
	})

	t.Run("filter is scoped to the observer", func(t *testing.T) {
		wts, err := env.svc.Filter(ctx, otherObs, walkthrough.QueryFilter{})
		if err != nil {
			t.Fatalf("Filter() failed: %v", err)
		}
		if len(wts) != 0 {
			t.Errorf("Filter() returned %d records, want 0", len(wts))
		}

		wts, err = env.svc.Filter(ctx, env.observer, walkthrough.QueryFilter{})
		if err != nil {
			t.Fatalf("Filter() failed: %v", err)
		}
		if len(wts) != 1 {
			t.Errorf("Filter() returned %d records, want 1", len(wts))
		}
	})
}

func TestUpdateReviewerRules(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	upd := func(wt walkthrough.Walkthrough, reviewerID string) walkthrough.UpdateWalkthrough {
		return walkthrough.UpdateWalkthrough{
			LessonPlanID:       wt.LessonPlanID,
			Subject:            wt.Subject,
			GradeLevel:         wt.GradeLevel,
			Objective:          wt.Objective,
			Standards:          wt.Standards,
			Strengths:          wt.Strengths,
			AreasForGrowth:     wt.AreasForGrowth,
			AdditionalComments: wt.AdditionalComments,
			Notes:              wt.Notes,
			ObservedAt:         wt.ObservedAt,
			AssignedReviewerID: reviewerID,
		}
	}

	t.Run("assigning a reviewer moves to pending", func(t *testing.T) {
		wt := createWalkthrough(t, env, "")

		wt, err := env.svc.Update(ctx, env.observer, wt.ID, upd(wt, env.coach.ID))
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if wt.ReviewStatus != walkthrough.ReviewPending {
			t.Errorf("ReviewStatus = %q, want %q", wt.ReviewStatus, walkthrough.ReviewPending)
		}
	})

	t.Run("reviewer cannot be unassigned", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)

		_, err := env.svc.Update(ctx, env.observer, wt.ID, upd(wt, ""))
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Update() error = %v, want ValidationError", err)
		}
	})

	t.Run("reviewer cannot change once started", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)
		otherCoach := testutil.CreateUser(t, env.usrRepo, "C3", "c3", "c3@test.test", "", user.RoleCoach, true)

		wt, err := env.svc.StartReview(ctx, env.coach, wt.ID)
		if err != nil {
			t.Fatalf("StartReview() failed: %v", err)
		}
		_, err = env.svc.Update(ctx, env.observer, wt.ID, upd(wt, otherCoach.ID))
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Update() error = %v, want ValidationError", err)
		}
	})

	t.Run("only the owner or admin may update", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)

		if _, err := env.svc.Update(ctx, env.coach, wt.ID, upd(wt, env.coach.ID)); errors.Cause(err) != walkthrough.ErrForbidden {
			t.Errorf("Update() error = %v, want %v", err, walkthrough.ErrForbidden)
		}
	})
}

func TestOverview(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	createWalkthrough(t, env, "")
	wt := createWalkthrough(t, env, env.coach.ID)
	if _, err := env.svc.StartReview(ctx, env.coach, wt.ID); err != nil {
		t.Fatalf("StartReview() failed: %v", err)
	}
	if _, err := env.svc.CompleteReview(ctx, env.coach, wt.ID, walkthrough.ReviewSubmission{ReviewerFeedback: "f"}); err != nil {
		t.Fatalf("CompleteReview() failed: %v", err)
	}
	createWalkthrough(t, env, env.coach.ID) // pending

	ov, err := env.svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview() failed: %v", err)
	}
	want := walkthrough.Overview{
		TotalWalkthroughs:  3,
		ReviewsNotRequired: 1,
		ReviewsPending:     1,
		ReviewsCompleted:   1,
	}
	if ov != want {
		t.Errorf("Overview() = %+v, want %+v", ov, want)
	}
}

func TestReviewNotifications(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	core.ParseEmailTemplates(&core.Config{
		AppName:         "Darasa",
		TestMode:        true,
		WorkDir:         core.Getwd(),
		FrontendBaseURL: "http://front.test",
	}, testutil.NoopLogger{})

	t.Run("assignment mails the reviewer", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		wt := createWalkthrough(t, env, env.coach.ID)

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		want := mail.Address{Name: env.coach.Name, Address: env.coach.Email}
		if msg.To[0] != want {
			t.Errorf("To = %v; want %v", msg.To[0], want)
		}
		if !strings.Contains(msg.TextContent, env.coach.Name) {
			t.Errorf("text content does not contain reviewer's name %q", env.coach.Name)
		}
		if !strings.Contains(msg.TextContent, "/walkthroughs/"+wt.ID) {
			t.Errorf("text content does not link the walkthrough: %q", msg.TextContent)
		}
		if !strings.Contains(msg.HTMLContent, "/walkthroughs/"+wt.ID) {
			t.Error("HTML content does not link the walkthrough")
		}
	})

	t.Run("completion mails the observer", func(t *testing.T) {
		wt := createWalkthrough(t, env, env.coach.ID)
		if _, err := env.svc.StartReview(ctx, env.coach, wt.ID); err != nil {
			t.Fatalf("StartReview() failed: %v", err)
		}
		emailsvc.ClearSentMessages()

		_, err := env.svc.CompleteReview(ctx, env.coach, wt.ID, walkthrough.ReviewSubmission{ReviewerFeedback: "Good lesson"})
		if err != nil {
			t.Fatalf("CompleteReview() failed: %v", err)
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		want := mail.Address{Name: env.observer.Name, Address: env.observer.Email}
		if msg.To[0] != want {
			t.Errorf("To = %v; want %v", msg.To[0], want)
		}
		if !strings.Contains(msg.TextContent, "/walkthroughs/"+wt.ID) {
			t.Errorf("text content does not link the walkthrough: %q", msg.TextContent)
		}
	})

	t.Run("no reviewer, no mail", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		createWalkthrough(t, env, "")
		if len(emailsvc.SentMessages) != 0 {
			t.Errorf("len(SentMessages) = %d; want 0", len(emailsvc.SentMessages))
		}
	})
}
