package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/storage/jsondb"
)

// NewConfig returns a test configuration backed by a throwaway data dir.
// Usable from TestMain; panics on failure.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false // predictable error payloads
	conf.TestMode = true

	dir, err := os.MkdirTemp("", "ratiba-test-*")
	if err != nil {
		panic(fmt.Sprintf("testutil.NewConfig(): %v", err))
	}
	conf.DataDir = dir
	return conf
}

func OpenDB(conf *core.Config) *jsondb.DB {
	db, err := jsondb.Open(conf)
	if err != nil {
		panic(fmt.Sprintf("testutil.OpenDB(): %v", err))
	}
	return db
}

// ResetData wipes all data files so each test starts from a clean slate.
func ResetData(t *testing.T, conf *core.Config) {
	t.Helper()

	fps, err := filepath.Glob(filepath.Join(conf.DataDir, "*.json"))
	if err != nil {
		t.Fatalf("ResetData() failed: %v", err)
	}
	for _, fp := range fps {
		if err := os.Remove(fp); err != nil {
			t.Fatalf("ResetData() failed: %v", err)
		}
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
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

// Logger is a core.Logger that writes to the test log.
type Logger struct {
	T *testing.T
}

func NewLogger(t *testing.T) *Logger { return &Logger{T: t} }

func (l Logger) log(lvl, msg string, args []interface{}) {
	if l.T == nil {
		return
	}
	l.T.Helper()
	l.T.Logf("%s: %s %v", lvl, msg, args)
}

func (l Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) {
	if l.T != nil {
		l.T.Fatalf("FATAL: %s %v", msg, args)
	}
}
