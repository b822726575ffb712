package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind tags the variant held by an AnswerValue.
type ValueKind uint8

const (
	KindUnset ValueKind = iota
	KindText
	KindList
)

// AnswerValue is an answer to a single field: unset, a string, or a set of strings.
// Unset means "not applicable / never answered" and is distinct from an
// empty string or an empty selection.
type AnswerValue struct {
	kind ValueKind
	text string
	list []string
}

// Unset returns the unset value.
func Unset() AnswerValue { return AnswerValue{} }

// Text returns a string answer.
func Text(s string) AnswerValue { return AnswerValue{kind: KindText, text: s} }

// List returns a selection answer. Duplicates are dropped, first occurrence wins.
func List(values ...string) AnswerValue {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return AnswerValue{kind: KindList, list: out}
}

func (v AnswerValue) Kind() ValueKind { return v.kind }

func (v AnswerValue) IsSet() bool { return v.kind != KindUnset }

// IsEmpty reports whether the value carries no answer: unset, "" or an empty selection.
func (v AnswerValue) IsEmpty() bool {
	switch v.kind {
	case KindText:
		return v.text == ""
	case KindList:
		return len(v.list) == 0
	default:
		return true
	}
}

// Str returns the string answer, or "" for any other variant.
func (v AnswerValue) Str() string {
	if v.kind != KindText {
		return ""
	}
	return v.text
}

// Items returns a copy of the selection, or nil for any other variant.
func (v AnswerValue) Items() []string {
	if v.kind != KindList {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// Contains reports whether the selection includes s.
func (v AnswerValue) Contains(s string) bool {
	for _, item := range v.list {
		if item == s {
			return true
		}
	}
	return false
}

func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.kind != o.kind || v.text != o.text || len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// Export returns the plain Go value used in persisted documents.
func (v AnswerValue) Export() interface{} {
	switch v.kind {
	case KindText:
		return v.text
	case KindList:
		return v.Items()
	default:
		return nil
	}
}

func (v AnswerValue) String() string {
	switch v.kind {
	case KindText:
		return fmt.Sprintf("%q", v.text)
	case KindList:
		return fmt.Sprintf("%q", v.list)
	default:
		return "<unset>"
	}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindList:
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Unset()
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = List(items...)
	default:
		return fmt.Errorf("answer must be a string, an array of strings or null, got %s", data)
	}
	return nil
}

// AnswerSet maps field ids (question ids and synthesized sub ids) to answers.
// Unset values are never stored.
type AnswerSet map[string]AnswerValue

// Get returns the answer for id, or Unset.
func (a AnswerSet) Get(id string) AnswerValue {
	return a[id]
}

// Set stores v under id; storing Unset deletes the entry.
func (a AnswerSet) Set(id string, v AnswerValue) {
	if !v.IsSet() {
		delete(a, id)
		return
	}
	a[id] = v
}

// Clone returns an independent copy.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		if v.kind == KindList {
			v = List(v.list...)
		}
		out[k] = v
	}
	return out
}

// Export converts the set into plain values for persistence.
func (a AnswerSet) Export() map[string]interface{} {
	out := make(map[string]interface{}, len(a))
	for k, v := range a {
		out[k] = v.Export()
	}
	return out
}
