package catalog

import (
	"sort"

	"socialrisk/internal/model"
)

// Field describes an answerable id: a question itself or one of the fields it
// synthesizes (household size, "other" text, sub-questions, details).
type Field struct {
	ID       string
	Parent   string // owning question id; equal to ID for top-level questions
	Type     model.QuestionType
	Numeric  bool
	Options  []model.Option
	Slider   *model.Slider
	OtherKey string // free-text field opened by the "other" option
}

// Multi reports whether the field holds a selection list.
func (f Field) Multi() bool {
	return f.Type == model.TypeCheckbox
}

// Allows reports whether value is one of the field's options. Fields without
// options accept anything.
func (f Field) Allows(value string) bool {
	if len(f.Options) == 0 {
		return true
	}
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Catalog is an immutable, ordered list of questions with lookup indexes.
type Catalog struct {
	questions  []model.Question
	byID       map[string]int
	fields     map[string]Field
	dependents map[string][]model.Dependent
}

// New indexes questions. It panics on duplicate ids since catalogs are
// declared in code.
func New(questions []model.Question) *Catalog {
	c := &Catalog{
		questions:  questions,
		byID:       make(map[string]int, len(questions)),
		fields:     make(map[string]Field),
		dependents: make(map[string][]model.Dependent),
	}
	for i, q := range questions {
		if _, dup := c.byID[q.ID]; dup {
			panic("catalog: duplicate question id " + q.ID)
		}
		c.byID[q.ID] = i
		c.index(q)
	}
	return c
}

func (c *Catalog) index(q model.Question) {
	top := Field{ID: q.ID, Parent: q.ID, Type: q.Type()}

	switch s := q.Shape.(type) {
	case model.IncomeCombo:
		top.Options = s.Options
		c.addField(Field{ID: s.HouseholdID, Parent: q.ID, Type: model.TypeText, Numeric: true})
	case model.Checkbox:
		top.Options = s.Options
		top.OtherKey = s.OtherKey
		if s.OtherKey != "" {
			c.addField(Field{ID: s.OtherKey, Parent: q.ID, Type: model.TypeText})
		}
	case model.Radio:
		top.Options = s.Options
		top.OtherKey = s.OtherKey
		if s.OtherKey != "" {
			c.addField(Field{ID: s.OtherKey, Parent: q.ID, Type: model.TypeText})
			c.dependents[q.ID] = append(c.dependents[q.ID], model.Dependent{ID: s.OtherKey})
		}
	case model.Slider:
		slider := s
		top.Numeric = true
		top.Slider = &slider
	case model.RadioWithSub:
		top.Options = s.Options
		for _, opt := range s.Options {
			if opt.Sub != nil {
				c.addSub(q.ID, opt.Sub)
			}
		}
	case model.YesNoDetails:
		top.Options = []model.Option{{Value: model.YesNoYes, Label: "예"}, {Value: model.YesNoNo, Label: "아니오"}}
		if s.Detail != nil {
			c.addSub(q.ID, s.Detail)
		}
	}
	c.addField(top)
}

func (c *Catalog) addSub(parent string, sub *model.SubQuestion) {
	c.addField(Field{ID: sub.ID, Parent: parent, Type: sub.Type, Options: sub.Options, OtherKey: sub.OtherKey})
	c.dependents[parent] = append(c.dependents[parent], model.Dependent{ID: sub.ID, Multi: sub.Type == model.TypeCheckbox})
	if sub.OtherKey != "" {
		c.addField(Field{ID: sub.OtherKey, Parent: parent, Type: model.TypeText})
		c.dependents[parent] = append(c.dependents[parent], model.Dependent{ID: sub.OtherKey})
	}
}

func (c *Catalog) addField(f Field) {
	if _, dup := c.fields[f.ID]; dup {
		panic("catalog: duplicate field id " + f.ID)
	}
	c.fields[f.ID] = f
}

// Questions returns the questions in declaration order.
func (c *Catalog) Questions() []model.Question {
	out := make([]model.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Len returns the number of top-level questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// ByID returns the top-level question with the given id.
func (c *Catalog) ByID(id string) (model.Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Question{}, false
	}
	return c.questions[i], true
}

// Field returns the description of any answerable id.
func (c *Catalog) Field(id string) (Field, bool) {
	f, ok := c.fields[id]
	return f, ok
}

// ForCategory returns the questions of one category in declaration order.
func (c *Catalog) ForCategory(cat model.Category) []model.Question {
	var out []model.Question
	for _, q := range c.questions {
		if q.Category == cat {
			out = append(out, q)
		}
	}
	return out
}

// Dependents returns the fields owned by a controlling question. They must be
// reset whenever the controlling answer changes.
func (c *Catalog) Dependents(id string) []model.Dependent {
	deps := c.dependents[id]
	out := make([]model.Dependent, len(deps))
	copy(out, deps)
	return out
}

// FieldsOf returns every field id owned by the question, including its own.
func (c *Catalog) FieldsOf(id string) []string {
	var out []string
	for fid, f := range c.fields {
		if f.Parent == id {
			out = append(out, fid)
		}
	}
	sort.Strings(out)
	return out
}
