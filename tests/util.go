package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// NoopLogger discards everything; services under test require a core.Logger.
type NoopLogger struct{}

var _ core.Logger = (*NoopLogger)(nil)

func (NoopLogger) Enable(enabled bool)                   {}
func (NoopLogger) Debug(msg string, args ...interface{}) {}
func (NoopLogger) Info(msg string, args ...interface{})  {}
func (NoopLogger) Warn(msg string, args ...interface{})  {}
func (NoopLogger) Error(msg string, args ...interface{}) {}
func (NoopLogger) Fatal(msg string, args ...interface{}) {}
