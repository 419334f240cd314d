package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

func setup(t *testing.T) (user.Service, user.Repository, *core.Config) {
	t.Helper()

	conf := &core.Config{
		AppName:                   "Darasa",
		SecretKey:                 "secret",
		TestMode:                  true,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	repo := inmemdb.NewUserRepository(inmemdb.NewDB())
	svc := user.NewService(repo, emailsvc.NewConsoleServiceMock(conf), conf, testutil.NoopLogger{})
	return svc, repo, conf
}

func TestCreate(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:     "Jo Obs",
		Username: "jo",
		Email:    "jo@test.test",
		Password: "s3cr3t!pwd",
		Role:     user.RoleObserver,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if usr.ID == "" {
		t.Error("empty ID")
	}
	if !usr.Active() {
		t.Error("new user not active")
	}
	if err := usr.CheckPassword("s3cr3t!pwd"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
}

func TestCheckUniqueness(t *testing.T) {
	svc, repo, _ := setup(t)
	usr := testutil.CreateUser(t, repo, "Jo", "jo", "jo@test.test", "", user.RoleObserver, true)

	tests := []struct {
		name     string
		uname    string
		email    string
		excl     []user.User
		wantErr  error
		wantNone bool
	}{
		{name: "username taken", uname: "jo", email: "new@test.test", wantErr: user.ErrUsernameExists},
		{name: "email taken", uname: "new", email: "jo@test.test", wantErr: user.ErrEmailExists},
		{name: "both free", uname: "new", email: "new@test.test", wantNone: true},
		{name: "self excluded", uname: "jo", email: "jo@test.test", excl: []user.User{usr}, wantNone: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckUniqueness(tt.uname, tt.email, tt.excl...)
			if tt.wantNone {
				if err != nil {
					t.Errorf("CheckUniqueness() failed: %v", err)
				}
				return
			}
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			if !ok {
				t.Fatalf("CheckUniqueness() error = %v, want ValidationError", err)
			}
			if errors.Cause(vErr.Err) != tt.wantErr {
				t.Errorf("CheckUniqueness() cause = %v, want %v", vErr.Err, tt.wantErr)
			}
		})
	}
}

func TestUpdatePartial(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Jo", "jo", "jo@test.test", "pwd", user.RoleObserver, true)

	// only the name is set; everything else must survive
	got, err := svc.Update(ctx, usr.ID, user.UpdateUser{Name: "Jo Renamed"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if got.Name != "Jo Renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "Jo Renamed")
	}
	if got.Username != "jo" || got.Email != "jo@test.test" || got.Role != user.RoleObserver {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if err := got.CheckPassword("pwd"); err != nil {
		t.Errorf("password was blanked: %v", err)
	}
	if !got.Active() {
		t.Error("IsActive was blanked")
	}
}

func TestSetLastLogin(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Jo", "jo", "jo@test.test", "pwd", user.RoleObserver, true)

	got, err := svc.SetLastLogin(ctx, usr)
	if err != nil {
		t.Fatalf("SetLastLogin() failed: %v", err)
	}
	if got.LastLogin.IsZero() {
		t.Error("LastLogin not stamped")
	}
	// stamping the login must not wipe the rest of the record
	if got.Username != "jo" || got.Role != user.RoleObserver {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if err := got.CheckPassword("pwd"); err != nil {
		t.Errorf("password was blanked: %v", err)
	}
}

func TestConfirmPasswordReset(t *testing.T) {
	svc, repo, conf := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Jo", "jo", "jo@test.test", "oldpwd", user.RoleObserver, true)

	token, err := user.MakeToken(usr, conf)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	t.Run("bad token", func(t *testing.T) {
		err := svc.ConfirmPasswordReset(ctx, user.ResetUserPassword{
			UID:      user.EncodeUID(usr),
			Token:    "nope-nope-nope",
			Password: "newpwd",
		})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("ConfirmPasswordReset() error = %v, want ValidationError", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		err := svc.ConfirmPasswordReset(ctx, user.ResetUserPassword{
			UID:      user.EncodeUID(usr),
			Token:    token,
			Password: "newpwd",
		})
		if err != nil {
			t.Fatalf("ConfirmPasswordReset() failed: %v", err)
		}
		got, err := svc.GetByID(ctx, usr.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if err := got.CheckPassword("newpwd"); err != nil {
			t.Errorf("CheckPassword() failed: %v", err)
		}
	})
}
