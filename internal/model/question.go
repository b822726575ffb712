package model

import "encoding/json"

// QuestionType names the shape of a question or nested field.
type QuestionType string

const (
	TypeIncomeCombo  QuestionType = "income-combo"
	TypeCheckbox     QuestionType = "checkbox"
	TypeRadio        QuestionType = "radio"
	TypeSlider       QuestionType = "slider"
	TypeRadioWithSub QuestionType = "radio-with-sub"
	TypeYesNoDetails QuestionType = "yn-with-details"
	TypeText         QuestionType = "text" // nested fields only
)

// Reserved option values.
const (
	OptionNone  = "none"
	OptionOther = "other"
)

// Yes/no values used by detail questions.
const (
	YesNoYes = "Y"
	YesNoNo  = "N"
)

// Option is one selectable value. Sub is only used by RadioWithSub questions.
type Option struct {
	Value string       `json:"value"`
	Label string       `json:"label"`
	Sub   *SubQuestion `json:"sub,omitempty"`
}

// SubQuestion is a field that only applies while its parent branch is selected.
type SubQuestion struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"` // radio, checkbox or text
	Label    string       `json:"label"`
	Options  []Option     `json:"options,omitempty"`
	Required bool         `json:"required"`
	OtherKey string       `json:"otherKey,omitempty"`
}

// Shape is the type-specific part of a question. The concrete types below are
// the only implementations.
type Shape interface {
	questionType() QuestionType
}

// IncomeCombo pairs an income bracket with a numeric household-size field.
type IncomeCombo struct {
	Options     []Option `json:"options"`
	HouseholdID string   `json:"householdId"`
}

// Checkbox is a multi-select. The "none" option excludes every other option.
type Checkbox struct {
	Options  []Option `json:"options"`
	OtherKey string   `json:"otherKey,omitempty"`
}

// Radio is a single-select.
type Radio struct {
	Options  []Option `json:"options"`
	OtherKey string   `json:"otherKey,omitempty"`
}

// Slider is an integer scale answered as a numeric string.
type Slider struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Step     int    `json:"step"`
	MinLabel string `json:"minLabel,omitempty"`
	MaxLabel string `json:"maxLabel,omitempty"`
}

// RadioWithSub is a single-select whose options may open a nested question.
type RadioWithSub struct {
	Options []Option `json:"options"`
}

// YesNoDetails is a Y/N question whose Trigger answer opens Detail.
type YesNoDetails struct {
	Trigger string       `json:"trigger"`
	Detail  *SubQuestion `json:"detail,omitempty"`
}

func (IncomeCombo) questionType() QuestionType  { return TypeIncomeCombo }
func (Checkbox) questionType() QuestionType     { return TypeCheckbox }
func (Radio) questionType() QuestionType        { return TypeRadio }
func (Slider) questionType() QuestionType       { return TypeSlider }
func (RadioWithSub) questionType() QuestionType { return TypeRadioWithSub }
func (YesNoDetails) questionType() QuestionType { return TypeYesNoDetails }

// TriggerValue returns the configured trigger, defaulting to "Y".
func (y YesNoDetails) TriggerValue() string {
	if y.Trigger == "" {
		return YesNoYes
	}
	return y.Trigger
}

// SelectedSub returns the nested question of the option with the given value.
func (r RadioWithSub) SelectedSub(value string) *SubQuestion {
	for _, opt := range r.Options {
		if opt.Value == value {
			return opt.Sub
		}
	}
	return nil
}

// Question is an immutable catalog entry. An empty Category means the question
// is always shown.
type Question struct {
	ID       string
	Order    float64
	Category Category
	Label    string
	Required bool
	Shape    Shape
}

// Type returns the question's shape tag.
func (q Question) Type() QuestionType {
	if q.Shape == nil {
		return ""
	}
	return q.Shape.questionType()
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string       `json:"id"`
		Order    float64      `json:"order"`
		Type     QuestionType `json:"type"`
		Category Category     `json:"category,omitempty"`
		Label    string       `json:"label"`
		Required bool         `json:"required"`
		Config   Shape        `json:"config"`
	}{q.ID, q.Order, q.Type(), q.Category, q.Label, q.Required, q.Shape})
}

// Dependent is a field whose answer is owned by a controlling question and
// must be reset when that question's answer changes.
type Dependent struct {
	ID    string `json:"id"`
	Multi bool   `json:"multi"`
}

// Empty returns the type-appropriate empty answer for the dependent.
func (d Dependent) Empty() AnswerValue {
	if d.Multi {
		return List()
	}
	return Text("")
}
