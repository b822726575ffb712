package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Gating answer values.
const (
	GatingYes = "예"
	GatingNo  = "아니오"
)

// GatingQuestionCount is the fixed size of the gating stage.
const GatingQuestionCount = 12

// HighRiskThreshold is the number of "yes" gating answers that marks a patient as high risk.
const HighRiskThreshold = 5

var ErrInvalidGating = errors.New("invalid gating answers")

// GatingAnswerSet holds the q1..q12 yes/no answers of the gating stage.
// Missing keys are unset.
type GatingAnswerSet map[string]string

// GatingKey returns the answer key of the n-th gating question (1-based).
func GatingKey(n int) string {
	return "q" + strconv.Itoa(n)
}

// ParseGating validates raw input and returns a normalized set.
func ParseGating(raw map[string]string) (GatingAnswerSet, error) {
	g := GatingAnswerSet{}
	for k, v := range raw {
		n, ok := gatingIndex(k)
		if !ok {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidGating, k)
		}
		v = strings.TrimSpace(v)
		switch v {
		case GatingYes, GatingNo:
			g[GatingKey(n)] = v
		case "":
		default:
			return nil, fmt.Errorf("%w: %s must be %q or %q, got %q", ErrInvalidGating, k, GatingYes, GatingNo, v)
		}
	}
	return g, nil
}

func gatingIndex(key string) (int, bool) {
	if !strings.HasPrefix(key, "q") {
		return 0, false
	}
	n, err := strconv.Atoi(key[1:])
	if err != nil || n < 1 || n > GatingQuestionCount {
		return 0, false
	}
	return n, true
}

// Yes reports whether the n-th gating question (1-based) was answered "예".
func (g GatingAnswerSet) Yes(n int) bool {
	return g[GatingKey(n)] == GatingYes
}

// YesCount returns the number of gating questions answered "예".
func (g GatingAnswerSet) YesCount() int {
	count := 0
	for n := 1; n <= GatingQuestionCount; n++ {
		if g.Yes(n) {
			count++
		}
	}
	return count
}

// Clone returns an independent copy.
func (g GatingAnswerSet) Clone() GatingAnswerSet {
	out := make(GatingAnswerSet, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}
