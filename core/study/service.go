package study

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

var (
	// errors
	ErrTaskNotFound = errors.New("task not found")
	ErrDayNotFound  = errors.New("planned day not found")
)

type (
	// Repository persists a user's study data. Every save fully rewrites the
	// user's stored document; reads on missing data return empty defaults.
	Repository interface {
		LoadTasks(ctx context.Context, username string) ([]StudyTask, error)
		SaveTasks(ctx context.Context, username string, tasks []StudyTask) error
		LoadPlan(ctx context.Context, username string) (*StudyPlan, error)
		SavePlan(ctx context.Context, username string, plan StudyPlan) error
		LoadProgress(ctx context.Context, username string) ([]DayProgress, error)
		SaveProgress(ctx context.Context, username string, progress []DayProgress) error
		LoadStreak(ctx context.Context, username string) (Streak, error)
		SaveStreak(ctx context.Context, username string, streak Streak) error
		LoadNotifications(ctx context.Context, username string) ([]Notification, error)
		SaveNotifications(ctx context.Context, username string, notes []Notification) error
		DeleteUserData(ctx context.Context, username string) error
	}

	Service interface {
		Tasks(ctx context.Context, username string) ([]StudyTask, error)
		SaveTasks(ctx context.Context, username string, tasks []StudyTask) error
		AddTask(ctx context.Context, username string, nt NewStudyTask) (StudyTask, error)
		CompleteTask(ctx context.Context, username, taskID string) (StudyTask, error)
		DeleteTask(ctx context.Context, username, taskID string) error

		Plan(ctx context.Context, username string) (*StudyPlan, error)
		SavePlan(ctx context.Context, username string, plan StudyPlan) error
		GeneratePlan(ctx context.Context, username string, req PlanRequest) (StudyPlan, error)

		Progress(ctx context.Context, username string) ([]DayProgress, error)
		CompleteDay(ctx context.Context, username string, date time.Time) (Streak, error)
		SkipDay(ctx context.Context, username string, date time.Time) error
		Streak(ctx context.Context, username string) (Streak, error)

		WeeklyReport(ctx context.Context, username string) (WeeklyReport, error)
		EmailWeeklyReport(ctx context.Context, usr user.User) error

		Notifications(ctx context.Context, username string) ([]Notification, error)
		AddNotification(ctx context.Context, username, message string) (Notification, error)

		ClearAll(ctx context.Context, username string) error
	}

	service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) Service {
	return &service{
		conf:    conf,
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func (svc *service) Tasks(ctx context.Context, username string) ([]StudyTask, error) {
	return svc.repo.LoadTasks(ctx, username)
}

// SaveTasks overwrites the user's whole task collection.
func (svc *service) SaveTasks(ctx context.Context, username string, tasks []StudyTask) error {
	for _, t := range tasks {
		if t.EstimatedHours <= 0 {
			return errors.Wrapf(ErrInvalidTask, "task %q", t.Subject)
		}
	}
	return svc.repo.SaveTasks(ctx, username, tasks)
}

func (svc *service) AddTask(ctx context.Context, username string, nt NewStudyTask) (StudyTask, error) {
	tasks, err := svc.repo.LoadTasks(ctx, username)
	if err != nil {
		return StudyTask{}, err
	}

	task := StudyTask{
		ID:             uuid.New().String(),
		Subject:        nt.Subject,
		Description:    nt.Description,
		Deadline:       dateOf(nt.Deadline),
		EstimatedHours: nt.EstimatedHours,
		Priority:       nt.Priority,
		CreatedAt:      time.Now().UTC(),
	}
	tasks = append(tasks, task)
	if err = svc.repo.SaveTasks(ctx, username, tasks); err != nil {
		return StudyTask{}, err
	}
	return task, nil
}

func (svc *service) CompleteTask(ctx context.Context, username, taskID string) (StudyTask, error) {
	tasks, err := svc.repo.LoadTasks(ctx, username)
	if err != nil {
		return StudyTask{}, err
	}
	for i := range tasks {
		if tasks[i].ID != taskID {
			continue
		}
		if !tasks[i].Done {
			tasks[i].Done = true
			tasks[i].DoneAt = time.Now().UTC()
			if err = svc.repo.SaveTasks(ctx, username, tasks); err != nil {
				return StudyTask{}, err
			}
		}
		return tasks[i], nil
	}
	return StudyTask{}, ErrTaskNotFound
}

func (svc *service) DeleteTask(ctx context.Context, username, taskID string) error {
	tasks, err := svc.repo.LoadTasks(ctx, username)
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return svc.repo.SaveTasks(ctx, username, tasks)
		}
	}
	return ErrTaskNotFound
}

func (svc *service) Plan(ctx context.Context, username string) (*StudyPlan, error) {
	return svc.repo.LoadPlan(ctx, username)
}

// SavePlan overwrites the user's current plan.
func (svc *service) SavePlan(ctx context.Context, username string, plan StudyPlan) error {
	return svc.repo.SavePlan(ctx, username, plan)
}

// GeneratePlan runs the generator over the user's pending tasks and the
// requested slots, overwrites the stored plan and resets day progress.
func (svc *service) GeneratePlan(ctx context.Context, username string, req PlanRequest) (StudyPlan, error) {
	tasks, err := svc.repo.LoadTasks(ctx, username)
	if err != nil {
		return StudyPlan{}, err
	}

	plan, err := Generate(tasks, req.BuildSlots())
	if err != nil {
		return StudyPlan{}, err
	}
	plan.GeneratedAt = time.Now().UTC()

	if err = svc.repo.SavePlan(ctx, username, plan); err != nil {
		return StudyPlan{}, err
	}
	if err = svc.repo.SaveProgress(ctx, username, progressFromPlan(plan)); err != nil {
		return StudyPlan{}, err
	}
	return plan, nil
}

// progressFromPlan groups a plan's sessions into per-day progress entries.
func progressFromPlan(plan StudyPlan) []DayProgress {
	var days []DayProgress
	for _, s := range plan.Sessions {
		if n := len(days); n > 0 && sameDate(days[n-1].Date, s.Date) {
			days[n-1].Sessions = append(days[n-1].Sessions, s)
			continue
		}
		days = append(days, DayProgress{Date: dateOf(s.Date), Sessions: []Session{s}})
	}
	return days
}

func (svc *service) Progress(ctx context.Context, username string) ([]DayProgress, error) {
	return svc.repo.LoadProgress(ctx, username)
}

// CompleteDay marks a planned day done and advances the streak.
func (svc *service) CompleteDay(ctx context.Context, username string, date time.Time) (Streak, error) {
	progress, err := svc.repo.LoadProgress(ctx, username)
	if err != nil {
		return Streak{}, err
	}

	streak, err := svc.repo.LoadStreak(ctx, username)
	if err != nil {
		return Streak{}, err
	}

	for i := range progress {
		if !sameDate(progress[i].Date, date) {
			continue
		}
		if progress[i].Completed {
			return streak, nil // already done; streak unchanged
		}
		progress[i].Completed = true
		progress[i].CompletedAt = time.Now().UTC()
		if err = svc.repo.SaveProgress(ctx, username, progress); err != nil {
			return Streak{}, err
		}

		streak.Current++
		if streak.Current > streak.Best {
			streak.Best = streak.Current
		}
		if err = svc.repo.SaveStreak(ctx, username, streak); err != nil {
			return Streak{}, err
		}
		return streak, nil
	}
	return Streak{}, ErrDayNotFound
}

// SkipDay carries a day's sessions forward to the next day and drops the day.
func (svc *service) SkipDay(ctx context.Context, username string, date time.Time) error {
	progress, err := svc.repo.LoadProgress(ctx, username)
	if err != nil {
		return err
	}

	for i := range progress {
		if !sameDate(progress[i].Date, date) {
			continue
		}
		skipped := progress[i]
		next := dateOf(skipped.Date).AddDate(0, 0, 1)
		progress = append(progress[:i], progress[i+1:]...)

		var merged bool
		for j := range progress {
			if sameDate(progress[j].Date, next) {
				progress[j].Sessions = append(progress[j].Sessions, skipped.Sessions...)
				merged = true
				break
			}
		}
		if !merged {
			entry := DayProgress{Date: next, Sessions: skipped.Sessions}
			progress = append(progress, DayProgress{})
			copy(progress[i+1:], progress[i:])
			progress[i] = entry
		}
		return svc.repo.SaveProgress(ctx, username, progress)
	}
	return ErrDayNotFound
}

func (svc *service) Streak(ctx context.Context, username string) (Streak, error) {
	return svc.repo.LoadStreak(ctx, username)
}

func (svc *service) WeeklyReport(ctx context.Context, username string) (WeeklyReport, error) {
	progress, err := svc.repo.LoadProgress(ctx, username)
	if err != nil {
		return WeeklyReport{}, err
	}
	streak, err := svc.repo.LoadStreak(ctx, username)
	if err != nil {
		return WeeklyReport{}, err
	}
	return buildReport(progress, streak), nil
}

// EmailWeeklyReport sends the user their current weekly report.
func (svc *service) EmailWeeklyReport(ctx context.Context, usr user.User) error {
	report, err := svc.WeeklyReport(ctx, usr.Username)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your Weekly Study Report",
		TemplateName: "weekly-report",
		TemplateData: struct {
			User   user.User
			Report WeeklyReport
		}{usr, report},
	})
	return nil
}

func (svc *service) Notifications(ctx context.Context, username string) ([]Notification, error) {
	return svc.repo.LoadNotifications(ctx, username)
}

func (svc *service) AddNotification(ctx context.Context, username, message string) (Notification, error) {
	notes, err := svc.repo.LoadNotifications(ctx, username)
	if err != nil {
		return Notification{}, err
	}
	note := Notification{
		ID:        uuid.New().String(),
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	notes = append(notes, note)
	if err = svc.repo.SaveNotifications(ctx, username, notes); err != nil {
		return Notification{}, err
	}
	return note, nil
}

// ClearAll wipes the user's tasks, plan, progress, streak and notifications.
func (svc *service) ClearAll(ctx context.Context, username string) error {
	return svc.repo.DeleteUserData(ctx, username)
}
