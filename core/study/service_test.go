package study_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/study"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	"github.com/trezcool/ratiba/storage/jsondb"
	testutil "github.com/trezcool/ratiba/tests"
)

const uname = "kim"

func setup(t *testing.T) (study.Service, *core.Config) {
	t.Helper()

	conf := testutil.NewConfig()
	core.ParseEmailTemplates(conf, testutil.NewLogger(t))

	db := testutil.OpenDB(conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return study.NewService(conf, jsondb.NewStudyRepository(db), mailSvc), conf
}

func addTask(t *testing.T, svc study.Service, subject string, deadline time.Time, hours float64) study.StudyTask {
	t.Helper()

	task, err := svc.AddTask(context.Background(), uname, study.NewStudyTask{
		Subject:        subject,
		Deadline:       deadline,
		EstimatedHours: hours,
	})
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	return task
}

func date(d int) time.Time {
	return time.Date(2021, time.March, d, 0, 0, 0, 0, time.UTC)
}

func Test_service_tasks(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	tasks, err := svc.Tasks(ctx, uname)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Tasks() = %v; want none", tasks)
	}

	task := addTask(t, svc, "Math", date(3), 2)
	if task.ID == "" {
		t.Error("AddTask() did not assign an ID")
	}

	tasks, err = svc.Tasks(ctx, uname)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("Tasks() = %+v; want [%+v]", tasks, task)
	}

	// completion is idempotent
	for i := 0; i < 2; i++ {
		done, err := svc.CompleteTask(ctx, uname, task.ID)
		if err != nil {
			t.Fatalf("CompleteTask() error = %v", err)
		}
		if !done.Done || done.DoneAt.IsZero() {
			t.Errorf("CompleteTask() = %+v; want done", done)
		}
	}
	if _, err = svc.CompleteTask(ctx, uname, "nope"); errors.Cause(err) != study.ErrTaskNotFound {
		t.Errorf("CompleteTask() error = %v, wantErr %v", err, study.ErrTaskNotFound)
	}

	if err = svc.DeleteTask(ctx, uname, task.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if err = svc.DeleteTask(ctx, uname, task.ID); errors.Cause(err) != study.ErrTaskNotFound {
		t.Errorf("DeleteTask() error = %v, wantErr %v", err, study.ErrTaskNotFound)
	}
}

func Test_service_SaveTasks_invalidDuration(t *testing.T) {
	svc, _ := setup(t)

	err := svc.SaveTasks(context.Background(), uname, []study.StudyTask{
		{ID: "bad", Subject: "Bad", Deadline: date(1)},
	})
	if errors.Cause(err) != study.ErrInvalidTask {
		t.Errorf("SaveTasks() error = %v, wantErr %v", err, study.ErrInvalidTask)
	}
}

func Test_service_GeneratePlan(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	math := addTask(t, svc, "Math", date(3), 2)
	hist := addTask(t, svc, "History", date(1), 1)

	plan, err := svc.GeneratePlan(ctx, uname, study.PlanRequest{
		Slots: []study.Slot{{Date: date(1), Hours: 2}, {Date: date(2), Hours: 2}},
	})
	if err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}
	if plan.GeneratedAt.IsZero() {
		t.Error("GeneratePlan() did not set GeneratedAt")
	}
	if got := plan.TotalHours(); got != 3 {
		t.Errorf("TotalHours() = %v; want 3", got)
	}
	if plan.Sessions[0].TaskID != hist.ID {
		t.Errorf("first session = %+v; want %q first", plan.Sessions[0], hist.ID)
	}
	_ = math

	// the plan and its day progress are persisted
	stored, err := svc.Plan(ctx, uname)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if stored == nil || len(stored.Sessions) != len(plan.Sessions) {
		t.Errorf("Plan() = %+v; want %+v", stored, plan)
	}

	progress, err := svc.Progress(ctx, uname)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if len(progress) != 2 {
		t.Fatalf("Progress() has %d days; want 2", len(progress))
	}
	if progress[0].Completed || progress[1].Completed {
		t.Error("fresh progress must not be completed")
	}

	// regeneration overwrites the previous plan and resets progress
	if _, err = svc.CompleteDay(ctx, uname, date(1)); err != nil {
		t.Fatalf("CompleteDay() error = %v", err)
	}
	if _, err = svc.GeneratePlan(ctx, uname, study.PlanRequest{HoursPerDay: 2, Days: 2, StartDate: date(1)}); err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}
	progress, err = svc.Progress(ctx, uname)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	for _, dayP := range progress {
		if dayP.Completed {
			t.Errorf("progress for %v still completed after regeneration", dayP.Date)
		}
	}
}

func Test_service_days(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	addTask(t, svc, "Math", date(3), 4)
	if _, err := svc.GeneratePlan(ctx, uname, study.PlanRequest{HoursPerDay: 2, Days: 3, StartDate: date(1)}); err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}

	if _, err := svc.CompleteDay(ctx, uname, date(25)); errors.Cause(err) != study.ErrDayNotFound {
		t.Errorf("CompleteDay() error = %v, wantErr %v", err, study.ErrDayNotFound)
	}

	streak, err := svc.CompleteDay(ctx, uname, date(1))
	if err != nil {
		t.Fatalf("CompleteDay() error = %v", err)
	}
	if streak.Current != 1 || streak.Best != 1 {
		t.Errorf("streak = %+v; want current 1, best 1", streak)
	}

	// completing the same day again does not advance the streak
	streak, err = svc.CompleteDay(ctx, uname, date(1))
	if err != nil {
		t.Fatalf("CompleteDay() error = %v", err)
	}
	if streak.Current != 1 {
		t.Errorf("streak = %+v; want current 1", streak)
	}

	// skipping moves the day's sessions to the next day
	progress, err := svc.Progress(ctx, uname)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	var day2Sessions int
	for _, dayP := range progress {
		if dayP.Date.Equal(date(2)) {
			day2Sessions = len(dayP.Sessions)
		}
	}
	if day2Sessions == 0 {
		t.Fatal("expected sessions planned on day 2")
	}
	if err = svc.SkipDay(ctx, uname, date(2)); err != nil {
		t.Fatalf("SkipDay() error = %v", err)
	}
	progress, err = svc.Progress(ctx, uname)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	var day3Sessions int
	for _, dayP := range progress {
		if dayP.Date.Equal(date(2)) {
			t.Error("skipped day still present")
		}
		if dayP.Date.Equal(date(3)) {
			day3Sessions = len(dayP.Sessions)
		}
	}
	if day3Sessions != day2Sessions {
		t.Errorf("next day has %d sessions; want %d carried over", day3Sessions, day2Sessions)
	}

	if err = svc.SkipDay(ctx, uname, date(25)); errors.Cause(err) != study.ErrDayNotFound {
		t.Errorf("SkipDay() error = %v, wantErr %v", err, study.ErrDayNotFound)
	}
}

func Test_service_WeeklyReport(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	addTask(t, svc, "Math", date(3), 2)
	addTask(t, svc, "History", date(3), 1)
	if _, err := svc.GeneratePlan(ctx, uname, study.PlanRequest{HoursPerDay: 2, Days: 2, StartDate: date(1)}); err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}
	if _, err := svc.CompleteDay(ctx, uname, date(1)); err != nil {
		t.Fatalf("CompleteDay() error = %v", err)
	}

	report, err := svc.WeeklyReport(ctx, uname)
	if err != nil {
		t.Fatalf("WeeklyReport() error = %v", err)
	}
	if report.TotalDays != 2 || report.CompletedDays != 1 {
		t.Errorf("report = %+v; want 2 days, 1 completed", report)
	}
	if report.CompletionRate != 50 {
		t.Errorf("CompletionRate = %v; want 50", report.CompletionRate)
	}
	if report.TotalPlannedHours != 3 {
		t.Errorf("TotalPlannedHours = %v; want 3", report.TotalPlannedHours)
	}
	if report.FocusSubject != "History" {
		t.Errorf("FocusSubject = %q; want History", report.FocusSubject)
	}
}

func Test_service_EmailWeeklyReport(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr := user.User{Name: "Kim", Username: uname, Email: "kim@test.test"}

	sent := len(emailsvc.SentMessages)
	if err := svc.EmailWeeklyReport(ctx, usr); err != nil {
		t.Fatalf("EmailWeeklyReport() error = %v", err)
	}
	if len(emailsvc.SentMessages) != sent+1 {
		t.Fatalf("SentMessages = %d; want %d", len(emailsvc.SentMessages), sent+1)
	}
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	if msg.Subject != "Your Weekly Study Report" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.To[0].Address != usr.Email {
		t.Errorf("To = %v; want %s", msg.To, usr.Email)
	}
	if msg.TextContent == "" {
		t.Error("empty text content")
	}
}

func Test_service_notifications(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	note, err := svc.AddNotification(ctx, uname, "Exam in 3 days")
	if err != nil {
		t.Fatalf("AddNotification() error = %v", err)
	}
	if note.ID == "" || note.CreatedAt.IsZero() {
		t.Errorf("AddNotification() = %+v; want ID and CreatedAt set", note)
	}

	notes, err := svc.Notifications(ctx, uname)
	if err != nil {
		t.Fatalf("Notifications() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Message != "Exam in 3 days" {
		t.Errorf("Notifications() = %+v", notes)
	}
}

func Test_service_ClearAll(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	addTask(t, svc, "Math", date(3), 2)
	if _, err := svc.GeneratePlan(ctx, uname, study.PlanRequest{HoursPerDay: 2, Days: 2, StartDate: date(1)}); err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}

	if err := svc.ClearAll(ctx, uname); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	tasks, err := svc.Tasks(ctx, uname)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Tasks() = %v; want none", tasks)
	}
	plan, err := svc.Plan(ctx, uname)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan != nil {
		t.Errorf("Plan() = %+v; want nil", plan)
	}

	// clearing an already clean account is a no-op
	if err := svc.ClearAll(ctx, uname); err != nil {
		t.Errorf("ClearAll() error = %v", err)
	}
}
