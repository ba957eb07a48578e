package study

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// MinChunkHours is the smallest amount of leftover slot capacity worth
// allocating to a task.
const MinChunkHours = 0.25

// hoursEpsilon absorbs float drift when comparing hour amounts.
const hoursEpsilon = 1e-9

// ErrInvalidTask is returned when a task's estimated duration is zero or negative.
var ErrInvalidTask = errors.New("task estimated duration must be positive")

var focusNotes = []string{
	"Focus on problem solving",
	"Review weak topics first",
	"Practice previous questions",
	"Do a short self-quiz",
	"Summarize key formulas",
	"Teach this topic to an imaginary friend",
}

// Generate produces a study plan from the given tasks and available slots.
//
// Completed tasks are excluded. The rest are sorted by deadline ascending,
// ties broken by priority then estimated duration descending, and greedily
// assigned to the earliest slots dated on or before their deadline, splitting
// across slots as needed. A task that cannot be fully placed is reported in
// Unscheduled and consumes no capacity. Deterministic given identical inputs
// and slot ordering.
func Generate(tasks []StudyTask, slots []Slot) (StudyPlan, error) {
	for _, t := range tasks {
		if t.EstimatedHours <= 0 {
			return StudyPlan{}, errors.Wrapf(ErrInvalidTask, "task %q", t.Subject)
		}
	}

	pending := make([]StudyTask, 0, len(tasks))
	for _, t := range tasks {
		if !t.Done {
			pending = append(pending, t)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		di, dj := dateOf(pending[i].Deadline), dateOf(pending[j].Deadline)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return pending[i].EstimatedHours > pending[j].EstimatedHours
	})

	// process slots earliest first without reordering the caller's slice
	order := make([]int, len(slots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return slots[order[i]].Date.Before(slots[order[j]].Date)
	})

	capLeft := make([]float64, len(slots))
	for i, s := range slots {
		capLeft[i] = s.Hours
	}

	type allocation struct {
		slot  int
		hours float64
	}

	var plan StudyPlan
	for _, t := range pending {
		need := t.EstimatedHours
		deadline := dateOf(t.Deadline)

		var allocs []allocation
		for _, si := range order {
			if need <= hoursEpsilon {
				break
			}
			if dateOf(slots[si].Date).After(deadline) {
				continue
			}
			if capLeft[si] < MinChunkHours-hoursEpsilon {
				continue
			}
			h := math.Min(capLeft[si], need)
			capLeft[si] -= h
			need -= h
			allocs = append(allocs, allocation{slot: si, hours: h})
		}

		if need > hoursEpsilon {
			// all or nothing: give back whatever was claimed
			for _, a := range allocs {
				capLeft[a.slot] += a.hours
			}
			plan.Unscheduled = append(plan.Unscheduled, t.ID)
			continue
		}
		for _, a := range allocs {
			plan.Sessions = append(plan.Sessions, Session{
				Date:    slots[a.slot].Date,
				TaskID:  t.ID,
				Subject: t.Subject,
				Hours:   a.hours,
				Note:    focusNote(t.Subject),
			})
		}
	}

	sort.SliceStable(plan.Sessions, func(i, j int) bool {
		return plan.Sessions[i].Date.Before(plan.Sessions[j].Date)
	})
	return plan, nil
}

// focusNote picks a deterministic study tip for a subject.
func focusNote(subject string) string {
	var sum int
	for _, c := range subject {
		sum += int(c)
	}
	return focusNotes[sum%len(focusNotes)]
}
