package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/study"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/storage/jsondb"
	testutil "github.com/trezcool/ratiba/tests"
)

func setup(t *testing.T) (*commandLine, user.Repository, study.Repository, *core.Config) {
	t.Helper()

	conf := testutil.NewConfig()
	db := testutil.OpenDB(conf)
	usrRepo := jsondb.NewUserRepository(db)
	studyRepo := jsondb.NewStudyRepository(db)
	cli := &commandLine{usrRepo: usrRepo, studyRepo: studyRepo}

	t.Cleanup(func() { _ = os.RemoveAll(conf.DataDir) })
	return cli, usrRepo, studyRepo, conf
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()

	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_run_help(t *testing.T) {
	cli, _, _, _ := setup(t)

	tests := []struct {
		name string
		args []string
		pwd  string
	}{
		{name: "no command", args: []string{"admin"}},
		{name: "unknown command", args: []string{"admin", "dropusers"}},
		{name: "adduser missing flags", args: []string{"admin", "adduser", "-username", "kim"}},
		{name: "adduser empty password", args: []string{"admin", "adduser", "-username", "kim", "-email", "kim@test.test"}},
		{name: "resetpassword missing flags", args: []string{"admin", "resetpassword"}},
		{name: "resetpassword empty password", args: []string{"admin", "resetpassword", "-username", "kim"}},
		{name: "clearuserdata missing flags", args: []string{"admin", "clearuserdata"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			if err := cli.run(tt.args); err != errHelp {
				t.Errorf("run() error = %v, wantErr %v", err, errHelp)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, usrRepo, _, _ := setup(t)
	ctx := context.Background()

	mockPassword(t, "secret")
	if err := cli.run([]string{"admin", "adduser", "-username", "Kim", "-email", "KIM@test.test"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	usr, err := usrRepo.GetUserByUsername(ctx, "kim")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if usr.Email != "kim@test.test" || !usr.IsActive {
		t.Errorf("user = %+v", usr)
	}
	if err := usr.CheckPassword("secret"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}

	// running again updates the existing account
	mockPassword(t, "secret2")
	if err := cli.run([]string{"admin", "adduser", "-username", "kim", "-email", "kim@test.test"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	updated, err := usrRepo.GetUserByUsername(ctx, "kim")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if updated.ID != usr.ID {
		t.Errorf("ID = %v; want %v", updated.ID, usr.ID)
	}
	if err := updated.CheckPassword("secret2"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, usrRepo, _, _ := setup(t)
	ctx := context.Background()

	mockPassword(t, "n3w-pwd")
	if err := cli.run([]string{"admin", "resetpassword", "-username", "ghost"}); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("run() error = %v, wantErr %v", err, user.ErrNotFound)
	}

	testutil.CreateUser(t, usrRepo, "Kim", "kim", "kim@test.test", "old-pwd", true)

	// by email too
	if err := cli.run([]string{"admin", "resetpassword", "-username", "kim@test.test"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	usr, err := usrRepo.GetUserByUsername(ctx, "kim")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if err := usr.CheckPassword("n3w-pwd"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
}

func Test_commandLine_clearUserData(t *testing.T) {
	cli, usrRepo, studyRepo, conf := setup(t)
	ctx := context.Background()

	if err := cli.run([]string{"admin", "clearuserdata", "-username", "ghost"}); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("run() error = %v, wantErr %v", err, user.ErrNotFound)
	}

	testutil.CreateUser(t, usrRepo, "Kim", "kim", "kim@test.test", "", true)
	if err := studyRepo.SaveStreak(ctx, "kim", study.Streak{Current: 1, Best: 3}); err != nil {
		t.Fatalf("SaveStreak() error = %v", err)
	}

	if err := cli.run([]string{"admin", "clearuserdata", "-username", "kim"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(conf.DataDir, "kim.json")); !os.IsNotExist(err) {
		t.Errorf("study data file still present: %v", err)
	}
}
