package jsondb_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/study"
	"github.com/trezcool/ratiba/storage/jsondb"
	testutil "github.com/trezcool/ratiba/tests"
)

func setupStudy(t *testing.T) (study.Repository, *core.Config) {
	t.Helper()

	conf := testutil.NewConfig()
	db := testutil.OpenDB(conf)
	return jsondb.NewStudyRepository(db), conf
}

func Test_studyRepository_missingFileDefaults(t *testing.T) {
	repo, _ := setupStudy(t)
	ctx := context.Background()

	tasks, err := repo.LoadTasks(ctx, "kim")
	if err != nil {
		t.Fatalf("LoadTasks() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("LoadTasks() = %v; want none", tasks)
	}

	plan, err := repo.LoadPlan(ctx, "kim")
	if err != nil {
		t.Fatalf("LoadPlan() error = %v", err)
	}
	if plan != nil {
		t.Errorf("LoadPlan() = %+v; want nil", plan)
	}

	streak, err := repo.LoadStreak(ctx, "kim")
	if err != nil {
		t.Fatalf("LoadStreak() error = %v", err)
	}
	if streak != (study.Streak{}) {
		t.Errorf("LoadStreak() = %+v; want zero", streak)
	}
}

func Test_studyRepository_roundTrip(t *testing.T) {
	repo, conf := setupStudy(t)
	ctx := context.Background()

	deadline := time.Date(2021, time.March, 3, 0, 0, 0, 0, time.UTC)
	tasks := []study.StudyTask{
		{ID: "math", Subject: "Math", Deadline: deadline, EstimatedHours: 2},
	}
	if err := repo.SaveTasks(ctx, "kim", tasks); err != nil {
		t.Fatalf("SaveTasks() error = %v", err)
	}

	plan := study.StudyPlan{
		GeneratedAt: time.Now().UTC(),
		Sessions: []study.Session{
			{Date: deadline, TaskID: "math", Subject: "Math", Hours: 2},
		},
	}
	if err := repo.SavePlan(ctx, "kim", plan); err != nil {
		t.Fatalf("SavePlan() error = %v", err)
	}
	if err := repo.SaveStreak(ctx, "kim", study.Streak{Current: 2, Best: 5}); err != nil {
		t.Fatalf("SaveStreak() error = %v", err)
	}
	if err := repo.SaveNotifications(ctx, "kim", []study.Notification{{ID: "n1", Message: "hi"}}); err != nil {
		t.Fatalf("SaveNotifications() error = %v", err)
	}

	// everything lands in one file per user
	if _, err := os.Stat(filepath.Join(conf.DataDir, "kim.json")); err != nil {
		t.Fatalf("user data file missing: %v", err)
	}

	// saves do not clobber each other
	gotTasks, err := repo.LoadTasks(ctx, "kim")
	if err != nil {
		t.Fatalf("LoadTasks() error = %v", err)
	}
	if len(gotTasks) != 1 || gotTasks[0].ID != "math" {
		t.Errorf("LoadTasks() = %+v", gotTasks)
	}
	gotPlan, err := repo.LoadPlan(ctx, "kim")
	if err != nil {
		t.Fatalf("LoadPlan() error = %v", err)
	}
	if gotPlan == nil || len(gotPlan.Sessions) != 1 {
		t.Errorf("LoadPlan() = %+v", gotPlan)
	}
	gotStreak, err := repo.LoadStreak(ctx, "kim")
	if err != nil {
		t.Fatalf("LoadStreak() error = %v", err)
	}
	if gotStreak.Current != 2 || gotStreak.Best != 5 {
		t.Errorf("LoadStreak() = %+v", gotStreak)
	}
	gotNotes, err := repo.LoadNotifications(ctx, "kim")
	if err != nil {
		t.Fatalf("LoadNotifications() error = %v", err)
	}
	if len(gotNotes) != 1 || gotNotes[0].Message != "hi" {
		t.Errorf("LoadNotifications() = %+v", gotNotes)
	}

	// other users are isolated
	otherTasks, err := repo.LoadTasks(ctx, "sam")
	if err != nil {
		t.Fatalf("LoadTasks() error = %v", err)
	}
	if len(otherTasks) != 0 {
		t.Errorf("LoadTasks() = %+v; want none", otherTasks)
	}
}

func Test_studyRepository_DeleteUserData(t *testing.T) {
	repo, conf := setupStudy(t)
	ctx := context.Background()

	if err := repo.SaveStreak(ctx, "kim", study.Streak{Current: 1, Best: 1}); err != nil {
		t.Fatalf("SaveStreak() error = %v", err)
	}
	if err := repo.DeleteUserData(ctx, "kim"); err != nil {
		t.Fatalf("DeleteUserData() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(conf.DataDir, "kim.json")); !os.IsNotExist(err) {
		t.Errorf("user data file still present: %v", err)
	}
	// deleting absent data is a no-op
	if err := repo.DeleteUserData(ctx, "kim"); err != nil {
		t.Errorf("DeleteUserData() error = %v", err)
	}
}

func Test_studyRepository_malformedFile(t *testing.T) {
	repo, conf := setupStudy(t)

	if err := os.WriteFile(filepath.Join(conf.DataDir, "kim.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := repo.LoadTasks(context.Background(), "kim")
	if errors.Cause(err) != core.ErrStorageUnavailable {
		t.Errorf("LoadTasks() error = %v, wantErr %v", err, core.ErrStorageUnavailable)
	}
}
