package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type AnswerKind string

const (
	AnswerNone    AnswerKind = "NONE"
	AnswerString  AnswerKind = "STRING"
	AnswerInteger AnswerKind = "INTEGER"
	AnswerFloat   AnswerKind = "FLOAT"
)

// NoAnswerSentinel is submitted in place of an answer when every extraction
// strategy came up empty. Graders treat it as a wrong answer, which keeps the
// chain moving instead of erroring out.
const NoAnswerSentinel = "no-answer-found"

// Answer is the scalar extracted from a quiz page. The grader accepts a
// string, an integer, or a float; the tagged kind keeps serialization
// exhaustive instead of shipping an interface{} around.
type Answer struct {
	Kind  AnswerKind
	Str   string
	Int   int64
	Float float64
}

func NoAnswer() Answer             { return Answer{Kind: AnswerNone} }
func StringAnswer(s string) Answer { return Answer{Kind: AnswerString, Str: s} }
func IntAnswer(n int64) Answer     { return Answer{Kind: AnswerInteger, Int: n} }
func FloatAnswer(f float64) Answer { return Answer{Kind: AnswerFloat, Float: f} }

// AnswerFromJSONValue converts a decoded JSON scalar (as produced by
// encoding/json into any) to an Answer. Whole-number floats become integers
// so that {"answer": 42} round-trips as 42, not 42.0. Non-scalar values are
// flattened to their string form.
func AnswerFromJSONValue(v any) Answer {
	switch t := v.(type) {
	case nil:
		return NoAnswer()
	case string:
		return StringAnswer(t)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && math.Abs(t) < 1e15 {
			return IntAnswer(int64(t))
		}
		return FloatAnswer(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return IntAnswer(n)
		}
		if f, err := t.Float64(); err == nil {
			return FloatAnswer(f)
		}
		return StringAnswer(t.String())
	case bool:
		return StringAnswer(strconv.FormatBool(t))
	default:
		return StringAnswer(fmt.Sprintf("%v", t))
	}
}

func (a Answer) IsNone() bool { return a.Kind == AnswerNone || a.Kind == "" }

// WireValue returns the value placed in the submission body.
func (a Answer) WireValue() any {
	switch a.Kind {
	case AnswerString:
		return a.Str
	case AnswerInteger:
		return a.Int
	case AnswerFloat:
		return a.Float
	default:
		return NoAnswerSentinel
	}
}

func (a Answer) String() string {
	switch a.Kind {
	case AnswerString:
		return a.Str
	case AnswerInteger:
		return strconv.FormatInt(a.Int, 10)
	case AnswerFloat:
		return strconv.FormatFloat(a.Float, 'f', -1, 64)
	default:
		return NoAnswerSentinel
	}
}

// MarshalJSON emits the bare scalar, matching the grader wire format.
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.WireValue())
}
