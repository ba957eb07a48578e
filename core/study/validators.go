package study

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	slotsOrHoursTag  = "slots_or_hours"
	slotsOrHoursText = "either slots or hours_per_day and days are required"
)

// InitValidators registers the study package's struct validations and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(planRequestStructValidation, PlanRequest{})
	core.RegisterCustomTranslation(validate, translator, slotsOrHoursTag, slotsOrHoursText)
}

// planRequestStructValidation checks that a PlanRequest carries either
// explicit slots or a usable daily budget.
func planRequestStructValidation(sl validator.StructLevel) {
	if pr, ok := sl.Current().Interface().(PlanRequest); ok {
		if len(pr.Slots) == 0 && (pr.HoursPerDay <= 0 || pr.Days <= 0) {
			sl.ReportError(pr.Slots, "slots", "Slots", slotsOrHoursTag, "")
		}
	}
}
