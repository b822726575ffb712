package screening

import (
	"fmt"
	"strings"

	"socialrisk/internal/model"
)

// MissingAnswersError is returned when a submission lacks required answers.
type MissingAnswersError struct {
	IDs []string
}

func (e *MissingAnswersError) Error() string {
	return fmt.Sprintf("missing answers: %s", strings.Join(e.IDs, ", "))
}

// Validate returns the ids of unanswered required fields in the order of questions.
// It never mutates its inputs.
func Validate(questions []model.Question, answers model.AnswerSet) []string {
	missing := []string{}
	for _, q := range questions {
		if !q.Required {
			continue
		}
		v := answers.Get(q.ID)

		switch s := q.Shape.(type) {
		case model.RadioWithSub:
			if v.IsEmpty() {
				missing = append(missing, q.ID)
				continue
			}
			if sub := s.SelectedSub(v.Str()); sub != nil && sub.Required && answers.Get(sub.ID).IsEmpty() {
				missing = append(missing, sub.ID)
			}
		case model.YesNoDetails:
			if v.IsEmpty() {
				missing = append(missing, q.ID)
				continue
			}
			if s.Detail != nil && s.Detail.Required && v.Str() == s.TriggerValue() && answers.Get(s.Detail.ID).IsEmpty() {
				missing = append(missing, s.Detail.ID)
			}
		case model.IncomeCombo, model.Checkbox, model.Radio, model.Slider:
			if v.IsEmpty() {
				missing = append(missing, q.ID)
			}
		default:
			panic(fmt.Sprintf("screening: unhandled question shape %T", q.Shape))
		}
	}
	return missing
}

// Check wraps Validate, returning a *MissingAnswersError when anything is missing.
func Check(questions []model.Question, answers model.AnswerSet) error {
	if missing := Validate(questions, answers); len(missing) > 0 {
		return &MissingAnswersError{IDs: missing}
	}
	return nil
}
