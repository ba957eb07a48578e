package study

import "math"

// WeeklyReport summarizes a user's planned hours and completion over the
// current plan period.
type WeeklyReport struct {
	HoursPerSubject   map[string]float64 `json:"hours_per_subject"`
	TotalPlannedHours float64            `json:"total_planned_hours"`
	TotalDays         int                `json:"total_days"`
	CompletedDays     int                `json:"completed_days"`
	CompletionRate    float64            `json:"completion_rate"` // percent
	ProductivityScore int                `json:"productivity_score"`
	Streak            Streak             `json:"streak"`
	// FocusSubject is the subject with the fewest planned hours; worth prioritizing.
	FocusSubject string `json:"focus_subject,omitempty"`
}

func buildReport(progress []DayProgress, streak Streak) WeeklyReport {
	report := WeeklyReport{
		HoursPerSubject: make(map[string]float64),
		TotalDays:       len(progress),
		Streak:          streak,
	}

	for _, day := range progress {
		for _, s := range day.Sessions {
			report.HoursPerSubject[s.Subject] += s.Hours
			report.TotalPlannedHours += s.Hours
		}
		if day.Completed {
			report.CompletedDays++
		}
	}

	if report.TotalDays > 0 {
		rate := float64(report.CompletedDays) / float64(report.TotalDays) * 100
		report.CompletionRate = math.Round(rate*10) / 10
	}
	report.ProductivityScore = productivityScore(report.CompletionRate, report.TotalPlannedHours)

	var minHours float64
	for subject, hours := range report.HoursPerSubject {
		if report.FocusSubject == "" || hours < minHours ||
			(hours == minHours && subject < report.FocusSubject) {
			report.FocusSubject = subject
			minHours = hours
		}
	}
	return report
}

// productivityScore blends the completion rate with the weekly hour volume
// into a 0-100 score.
func productivityScore(completionRate, totalHours float64) int {
	hoursFactor := math.Min(totalHours/7, 6)
	score := int((completionRate*0.6 + hoursFactor*10) / 1.6)
	if score > 100 {
		return 100
	}
	return score
}
