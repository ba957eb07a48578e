package study

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

// Task priorities; higher schedules first on equal deadlines.
const (
	PriorityLow = iota
	PriorityNormal
	PriorityHigh
)

// StudyTask is a unit of work with a deadline and an estimated duration.
type StudyTask struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description,omitempty"`
	Deadline       time.Time `json:"deadline"` // date; end of that day, UTC
	EstimatedHours float64   `json:"estimated_hours"`
	Priority       int       `json:"priority"`
	Done           bool      `json:"done"`
	DoneAt         time.Time `json:"done_at"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// NewStudyTask contains information needed to create a new StudyTask.
type NewStudyTask struct {
	Subject        string    `json:"subject" validate:"required"`
	Description    string    `json:"description"`
	Deadline       time.Time `json:"deadline" validate:"required"`
	EstimatedHours float64   `json:"estimated_hours" validate:"required,gt=0"`
	Priority       int       `json:"priority" validate:"gte=0,lte=2"`
}

func (nt *NewStudyTask) Validate(validate *validator.Validate) error {
	nt.Subject = core.CleanString(nt.Subject)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// Slot is a unit of available time on a given date with finite capacity.
type Slot struct {
	Date  time.Time `json:"date"`
	Hours float64   `json:"hours"`
}

// Session is an allocation of part of a task to a slot.
type Session struct {
	Date    time.Time `json:"date"`
	TaskID  string    `json:"task_id"`
	Subject string    `json:"subject"`
	Hours   float64   `json:"hours"`
	Note    string    `json:"note,omitempty"`
}

// StudyPlan is an ordered assignment of tasks to time slots. It is regenerated
// wholesale each time the generator runs; the previous plan is overwritten.
type StudyPlan struct {
	GeneratedAt time.Time `json:"generated_at"`
	Sessions    []Session `json:"sessions"`
	// Unscheduled holds the IDs of tasks that could not be fully placed
	// before their deadline given the available capacity.
	Unscheduled []string `json:"unscheduled,omitempty"`
}

func (p StudyPlan) TotalHours() float64 {
	var total float64
	for _, s := range p.Sessions {
		total += s.Hours
	}
	return total
}

// DayProgress tracks completion of one planned day.
type DayProgress struct {
	Date        time.Time `json:"date"`
	Sessions    []Session `json:"sessions"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

type Streak struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// PlanRequest describes how to build the slots for a plan generation run:
// either an explicit slot list, or a daily-hours budget over a number of days
// starting at StartDate (today when zero).
type PlanRequest struct {
	Slots       []Slot    `json:"slots"`
	HoursPerDay float64   `json:"hours_per_day" validate:"omitempty,gt=0,lte=24"`
	Days        int       `json:"days" validate:"omitempty,gte=1,lte=60"`
	StartDate   time.Time `json:"start_date"`
}

func (pr *PlanRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(pr)
}

// BuildSlots returns the explicit slots when provided, otherwise one slot of
// HoursPerDay per day for Days days starting at StartDate.
func (pr *PlanRequest) BuildSlots() []Slot {
	if len(pr.Slots) > 0 {
		return pr.Slots
	}
	start := pr.StartDate
	if start.IsZero() {
		start = time.Now().UTC()
	}
	start = dateOf(start)

	slots := make([]Slot, 0, pr.Days)
	for d := 0; d < pr.Days; d++ {
		slots = append(slots, Slot{Date: start.AddDate(0, 0, d), Hours: pr.HoursPerDay})
	}
	return slots
}

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sameDate reports whether a and b fall on the same UTC calendar date.
func sameDate(a, b time.Time) bool {
	return dateOf(a).Equal(dateOf(b))
}
