package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/lessonplan"
	"github.com/darasahq/darasa/core/location"
	"github.com/darasahq/darasa/core/teacher"
	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/core/walkthrough"
	assistsvc "github.com/darasahq/darasa/services/assist"
	emailsvc "github.com/darasahq/darasa/services/email"
	rostersvc "github.com/darasahq/darasa/services/roster"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

type serverEnv struct {
	server Server
	wtSvc  walkthrough.Service

	usrRepo user.Repository

	observer   user.User
	coach      user.User
	leadership user.User
	admin      user.User
}

func setupServer(t *testing.T, assist core.AssistService) serverEnv {
	t.Helper()

	conf := &core.Config{
		Debug:     true,
		TestMode:  true,
		AppName:   "Darasa",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	logger := testutil.NoopLogger{}

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf, logger)
	wtSvc := walkthrough.NewService(inmemdb.NewWalkthroughRepository(db), usrSvc, mailSvc, conf, logger)
	tchSvc := teacher.NewService(inmemdb.NewTeacherRepository(db), rostersvc.NewCanvasService())
	locSvc := location.NewService(inmemdb.NewLocationRepository(db))
	lpSvc := lessonplan.NewService(inmemdb.NewLessonPlanRepository(db), assist)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		WalkthroughSvc: wtSvc,
		TeacherSvc:     tchSvc,
		LocationSvc:    locSvc,
		LessonPlanSvc:  lpSvc,
		AssistSvc:      assist,
		Validate:       validate,
		Translator:     translator,
	})

	return serverEnv{
		server:     server,
		wtSvc:      wtSvc,
		usrRepo:    usrRepo,
		observer:   testutil.CreateUser(t, usrRepo, "Obs", "obs", "obs@test.test", "pwd", user.RoleObserver, true),
		coach:      testutil.CreateUser(t, usrRepo, "Coach", "coach", "coach@test.test", "pwd", user.RoleCoach, true),
		leadership: testutil.CreateUser(t, usrRepo, "Lead", "lead", "lead@test.test", "pwd", user.RoleLeadership, true),
		admin:      testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.test", "pwd", user.RoleAdmin, true),
	}
}

func (env serverEnv) do(t *testing.T, method, path string, usr *user.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if usr != nil {
		token, err := GenerateToken(GetUserClaims(*usr))
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func newWalkthroughBody(reviewerID string) map[string]interface{} {
	return map[string]interface{}{
		"teacher_id":           "t1",
		"location_id":          "l1",
		"subject":              "Math",
		"grade_level":          "5",
		"assigned_reviewer_id": reviewerID,
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupServer(t, &assistsvc.FakeService{})

	for _, path := range []string{"/v1/walkthroughs", "/v1/users", "/v1/analytics/overview", "/v1/reviews/pending"} {
		if rec := env.do(t, http.MethodGet, path, nil, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestLogin(t *testing.T) {
	env := setupServer(t, &assistsvc.FakeService{})

	t.Run("ok", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/login", nil, map[string]string{"username": "obs", "password": "pwd"})
		if rec.Code != http.StatusOK {
			t.Fatalf("login = %d, body %s", rec.Code, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response failed: %v", err)
		}
		if resp.Token == "" {
			t.Error("empty token")
		}
	})

	t.Run("bad password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/login", nil, map[string]string{"username": "obs", "password": "nope"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("login = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestRoleGating(t *testing.T) {
	env := setupServer(t, &assistsvc.FakeService{})

	tests := []struct {
		name     string
		method   string
		path     string
		usr      *user.User
		body     interface{}
		wantCode int
	}{
		{"observer creates walkthroughs", http.MethodPost, "/v1/walkthroughs", &env.observer, newWalkthroughBody(""), http.StatusCreated},
		{"coach cannot create walkthroughs", http.MethodPost, "/v1/walkthroughs", &env.coach, newWalkthroughBody(""), http.StatusForbidden},
		{"observer cannot read analytics", http.MethodGet, "/v1/analytics/overview", &env.observer, nil, http.StatusForbidden},
		{"leadership reads analytics", http.MethodGet, "/v1/analytics/overview", &env.leadership, nil, http.StatusOK},
		{"admin reads analytics", http.MethodGet, "/v1/analytics/overview", &env.admin, nil, http.StatusOK},
		{"observer cannot list users", http.MethodGet, "/v1/users", &env.observer, nil, http.StatusForbidden},
		{"admin lists users", http.MethodGet, "/v1/users", &env.admin, nil, http.StatusOK},
		{"leadership cannot use assist", http.MethodPost, "/v1/assist/feedback", &env.leadership, map[string]string{}, http.StatusForbidden},
		{"observer lists own reviews not allowed", http.MethodGet, "/v1/reviews/pending", &env.observer, nil, http.StatusForbidden},
		{"coach lists reviews", http.MethodGet, "/v1/reviews/pending", &env.coach, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.usr, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("%s %s = %d, want %d; body %s", tt.method, tt.path, rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestReviewWorkflow(t *testing.T) {
	env := setupServer(t, &assistsvc.FakeService{})

	rec := env.do(t, http.MethodPost, "/v1/walkthroughs", &env.observer, newWalkthroughBody(env.coach.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}
	var wt walkthrough.Walkthrough
	if err := json.Unmarshal(rec.Body.Bytes(), &wt); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}

	t.Run("pending queue holds the record", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/reviews/pending", &env.coach, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("queue = %d", rec.Code)
		}
		var wts []walkthrough.Walkthrough
		if err := json.Unmarshal(rec.Body.Bytes(), &wts); err != nil {
			t.Fatalf("decoding response failed: %v", err)
		}
		if len(wts) != 1 || wts[0].ID != wt.ID {
			t.Errorf("queue = %+v, want the created record", wts)
		}
	})

	t.Run("start then complete", func(t *testing.T) {
		if rec := env.do(t, http.MethodPost, "/v1/reviews/"+wt.ID+"/start", &env.coach, nil); rec.Code != http.StatusOK {
			t.Fatalf("start = %d, body %s", rec.Code, rec.Body.String())
		}
		// repeated start conflicts
		if rec := env.do(t, http.MethodPost, "/v1/reviews/"+wt.ID+"/start", &env.coach, nil); rec.Code != http.StatusConflict {
			t.Errorf("second start = %d, want %d", rec.Code, http.StatusConflict)
		}

		rec := env.do(t, http.MethodPost, "/v1/reviews/"+wt.ID+"/complete", &env.coach,
			map[string]string{"reviewer_feedback": "solid lesson"})
		if rec.Code != http.StatusOK {
			t.Fatalf("complete = %d, body %s", rec.Code, rec.Body.String())
		}
		var done walkthrough.Walkthrough
		if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
			t.Fatalf("decoding response failed: %v", err)
		}
		if done.ReviewStatus != walkthrough.ReviewCompleted {
			t.Errorf("ReviewStatus = %q, want %q", done.ReviewStatus, walkthrough.ReviewCompleted)
		}
	})

	t.Run("complete without feedback is a field error", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/walkthroughs", &env.observer, newWalkthroughBody(env.coach.ID))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %d", rec.Code)
		}
		var wt2 walkthrough.Walkthrough
		if err := json.Unmarshal(rec.Body.Bytes(), &wt2); err != nil {
			t.Fatalf("decoding response failed: %v", err)
		}
		if rec := env.do(t, http.MethodPost, "/v1/reviews/"+wt2.ID+"/start", &env.coach, nil); rec.Code != http.StatusOK {
			t.Fatalf("start = %d", rec.Code)
		}
		rec = env.do(t, http.MethodPost, "/v1/reviews/"+wt2.ID+"/complete", &env.coach, map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("complete = %d, want %d; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("unrelated observer cannot read", func(t *testing.T) {
		other := testutil.CreateUser(t, env.usrRepo, "Obs2", "obs2", "obs2@test.test", "pwd", user.RoleObserver, true)
		if rec := env.do(t, http.MethodGet, "/v1/walkthroughs/"+wt.ID, &other, nil); rec.Code != http.StatusForbidden {
			t.Errorf("retrieve = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}

func TestAssist(t *testing.T) {
	t.Run("feedback draft", func(t *testing.T) {
		fake := &assistsvc.FakeService{Feedback: core.Feedback{Strengths: "clear objectives", Confidence: 0.9}}
		env := setupServer(t, fake)

		rec := env.do(t, http.MethodPost, "/v1/assist/feedback", &env.observer,
			map[string]string{"subject": "Math", "objective": "Fractions"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var fb core.Feedback
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fb))
		assert.Equal(t, "clear objectives", fb.Strengths)
	})

	t.Run("provider failure is a bad gateway", func(t *testing.T) {
		// the provider returns its errors raw; the API layer classifies them
		fake := &assistsvc.FakeService{FeedbackErr: errors.New("completion endpoint - status: 503")}
		env := setupServer(t, fake)

		rec := env.do(t, http.MethodPost, "/v1/assist/feedback", &env.observer, map[string]string{"subject": "Math"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("standards provider failure is a bad gateway", func(t *testing.T) {
		fake := &assistsvc.FakeService{StandardsErr: errors.New("completion response has no choices")}
		env := setupServer(t, fake)

		rec := env.do(t, http.MethodPost, "/v1/assist/standards", &env.observer,
			map[string]string{"subject": "Math", "objective": "Fractions"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("lesson plan extraction", func(t *testing.T) {
		fake := &assistsvc.FakeService{Fields: core.LessonPlanFields{Title: "Fractions 101", Subject: "Math"}}
		env := setupServer(t, fake)

		rec := env.do(t, http.MethodPost, "/v1/lesson-plans/extract", &env.observer,
			map[string]string{"document_text": "Lesson: Fractions 101 ..."})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var fields core.LessonPlanFields
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
		assert.Equal(t, "Fractions 101", fields.Title)
	})
}
