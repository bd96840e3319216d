package domain

import (
	"encoding"
	"time"
)

type RunState string

const (
	RunRunning   RunState = "RUNNING"
	RunRetrying  RunState = "RETRYING"
	RunAdvancing RunState = "ADVANCING"
	RunDone      RunState = "DONE"
	RunAborted   RunState = "ABORTED"
)

func (s RunState) Terminal() bool { return s == RunDone || s == RunAborted }

type TaskOutcome string

const (
	OutcomeCorrect         TaskOutcome = "CORRECT"
	OutcomeAdvanced        TaskOutcome = "ADVANCED"          // grader moved us on without confirming
	OutcomeFallbackAdvance TaskOutcome = "FALLBACK_ADVANCE"  // no submit target, followed a URL found in page text
	OutcomeAbandoned       TaskOutcome = "ABANDONED"         // retries exhausted, no next URL
	OutcomeEndOfChain      TaskOutcome = "END_OF_CHAIN"
)

// TaskResult is one entry in a run's trail: a single page that was rendered,
// extracted, and (usually) submitted.
type TaskResult struct {
	Seq      int         `json:"seq"`
	URL      string      `json:"url"`
	Answer   string      `json:"answer,omitempty"`
	Attempts int         `json:"attempts"`
	Outcome  TaskOutcome `json:"outcome"`
}

// ChainRun is the persisted record of one solver invocation: the chain of
// tasks linked by grader-provided next URLs, plus the terminal summary.
type ChainRun struct {
	ID             string       `json:"id"`
	StartURL       string       `json:"startUrl"`
	Email          string       `json:"email,omitempty"`
	State          RunState     `json:"state"`
	Reason         string       `json:"reason,omitempty"`
	TasksProcessed int          `json:"tasksProcessed"`
	ElapsedMs      int64        `json:"elapsedMs"`
	Tasks          []TaskResult `json:"tasks,omitempty"`
	StartedAt      time.Time    `json:"startedAt"`
	FinishedAt     time.Time    `json:"finishedAt,omitempty"`
}

// Submission is the payload posted to the grading endpoint.
type Submission struct {
	Email  string `json:"email,omitempty"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Answer Answer `json:"answer"`
}

// GraderResponse is the grader's reply to a submission. Correct is a pointer
// because an absent flag means "not confirmed", which the solver must not
// conflate with either true or false. NonJSON carries the raw body when the
// grader returned something that failed to parse.
type GraderResponse struct {
	Correct *bool  `json:"correct,omitempty"`
	URL     string `json:"url,omitempty"`
	NonJSON string `json:"non_json_response,omitempty"`
}

// Confirmed reports whether the grader affirmatively accepted the answer.
func (g GraderResponse) Confirmed() bool { return g.Correct != nil && *g.Correct }

var (
	_ encoding.BinaryMarshaler = RunState("")
	_ encoding.TextMarshaler   = RunState("")
	_ encoding.BinaryMarshaler = TaskOutcome("")
	_ encoding.TextMarshaler   = TaskOutcome("")
)

func (s RunState) MarshalBinary() ([]byte, error) { return []byte(string(s)), nil }
func (s RunState) MarshalText() ([]byte, error)   { return []byte(string(s)), nil }

func (o TaskOutcome) MarshalBinary() ([]byte, error) { return []byte(string(o)), nil }
func (o TaskOutcome) MarshalText() ([]byte, error)   { return []byte(string(o)), nil }
