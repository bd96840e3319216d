// Package solver drives a quiz task chain: render a page, extract a candidate
// answer, submit it to the grader, and follow the grader's next URL, all under
// a global wall-clock deadline and a per-task retry budget. The solver alone
// owns timing and retry state; the renderer, extractor, and submission client
// are stateless collaborators invoked once per attempt.
package solver

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lmartins/quizchain/internal/backoff"
	"github.com/lmartins/quizchain/internal/extract"
	"github.com/lmartins/quizchain/internal/htmldoc"
	"github.com/lmartins/quizchain/internal/metrics"
	"github.com/lmartins/quizchain/internal/render"
	"github.com/lmartins/quizchain/internal/submit"
	"github.com/lmartins/quizchain/pkg/domain"
)

// maxRetryBackoff caps the computed delay between attempts so a
// misconfigured backoff policy cannot eat the session budget.
const maxRetryBackoff = 30 * time.Second

// Options is the solver's configuration, passed in at construction.
type Options struct {
	Secret            string
	Email             string
	Deadline          time.Duration
	PerTaskRetries    int
	RetryBackoff      time.Duration
	BackoffPolicy     string
	MinRetryWindow    time.Duration
	FallbackScanChars int
}

func (o Options) withDefaults() Options {
	if o.Deadline <= 0 {
		o.Deadline = 170 * time.Second
	}
	if o.PerTaskRetries <= 0 {
		o.PerTaskRetries = 2
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	if o.BackoffPolicy == "" {
		o.BackoffPolicy = "fixed"
	}
	if o.MinRetryWindow <= 0 {
		o.MinRetryWindow = 8 * time.Second
	}
	if o.FallbackScanChars <= 0 {
		o.FallbackScanChars = 3000
	}
	return o
}

// AnswerExtractor produces a candidate answer from a rendered page. It never
// fails; a page that defeats every heuristic yields the no-answer sentinel.
type AnswerExtractor interface {
	Extract(ctx context.Context, doc *htmldoc.Document) domain.Answer
}

type Solver struct {
	renderer  render.Renderer
	extractor AnswerExtractor
	submitter submit.Submitter
	opts      Options
	logger    *slog.Logger

	// OnUpdate, when set, is called after every state change with the
	// current run record, so callers can persist progress.
	OnUpdate func(run *domain.ChainRun)

	now   func() time.Time
	sleep func(time.Duration)
}

func New(renderer render.Renderer, extractor AnswerExtractor, submitter submit.Submitter, opts Options, logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{
		renderer:  renderer,
		extractor: extractor,
		submitter: submitter,
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

type action int

const (
	actionRetry action = iota
	actionAdvance
	actionEnd
)

// stepResult is the decision from one render-extract-submit attempt.
type stepResult struct {
	action  action
	nextURL string
	answer  domain.Answer
	outcome domain.TaskOutcome
	reason  string
	cause   string
}

// Solve runs one chain to completion and returns its record. Every failure is
// absorbed into the record's terminal state; Solve itself never fails.
func (s *Solver) Solve(ctx context.Context, startURL string) *domain.ChainRun {
	return s.SolveAs(ctx, uuid.NewString(), startURL, "")
}

// SolveAs is Solve with a caller-assigned run ID and submitter email, so a
// caller can hand out the ID before the chain finishes. An empty email falls
// back to the configured default. A Solver handles concurrent chains; all
// per-chain state lives in this call.
func (s *Solver) SolveAs(ctx context.Context, id, startURL, email string) *domain.ChainRun {
	start := s.now()
	rng := rand.New(rand.NewSource(start.UnixNano()))
	if email == "" {
		email = s.opts.Email
	}
	run := &domain.ChainRun{
		ID:        id,
		StartURL:  startURL,
		Email:     email,
		State:     domain.RunRunning,
		StartedAt: start,
	}
	metrics.RunsStartedTotal.Inc()
	s.logger.Info("chain run started", "run_id", run.ID, "start_url", startURL)

	if IsLocalTarget(startURL) {
		s.logger.Warn("start url rejected as local target", "run_id", run.ID, "start_url", startURL)
		s.finish(run, domain.RunAborted, "start url resolves to a local address", start)
		return run
	}

	deadline := start.Add(s.opts.Deadline)
	current := startURL
	retriesLeft := s.opts.PerTaskRetries
	attempts := 0
	seq := 0

	for current != "" {
		if !s.now().Before(deadline) {
			s.finish(run, domain.RunDone, "deadline reached", start)
			return run
		}
		attempts++
		attemptStart := s.now()
		res := s.step(ctx, current, email, retriesLeft, deadline)
		metrics.AttemptDurationSeconds.WithLabelValues(string(res.outcome)).
			Observe(s.now().Sub(attemptStart).Seconds())

		switch res.action {
		case actionRetry:
			retriesLeft--
			metrics.RetriesTotal.WithLabelValues(res.cause).Inc()
			s.logger.Info("retrying task", "run_id", run.ID, "url", current,
				"cause", res.cause, "retries_left", retriesLeft)
			s.setState(run, domain.RunRetrying)
			s.sleep(backoff.Compute(s.opts.BackoffPolicy, s.opts.RetryBackoff, maxRetryBackoff, attempts-1, rng))

		case actionAdvance:
			seq++
			s.recordTask(run, seq, current, res.answer, attempts, res.outcome)
			s.logger.Info("advancing to next task", "run_id", run.ID, "from", current,
				"to", res.nextURL, "outcome", res.outcome)
			current = res.nextURL
			retriesLeft = s.opts.PerTaskRetries
			attempts = 0
			s.setState(run, domain.RunAdvancing)

		case actionEnd:
			seq++
			s.recordTask(run, seq, current, res.answer, attempts, res.outcome)
			s.finish(run, domain.RunDone, res.reason, start)
			return run
		}
	}

	s.finish(run, domain.RunDone, "chain ended", start)
	return run
}

// step performs one attempt against the current URL and decides what the loop
// does next. It only asks for a retry when the retry budget and the deadline
// allow one; otherwise it converts the condition into an advance or an end,
// so the loop never stalls on a single task.
func (s *Solver) step(ctx context.Context, current, email string, retriesLeft int, deadline time.Time) stepResult {
	doc, err := s.renderer.Render(ctx, current)
	if err != nil {
		s.logger.Warn("render failed", "url", current, "err", err)
		if s.canRetry(retriesLeft, deadline) {
			return stepResult{action: actionRetry, cause: "render"}
		}
		return stepResult{
			action:  actionEnd,
			answer:  domain.NoAnswer(),
			outcome: domain.OutcomeAbandoned,
			reason:  "render failed with no retries left",
		}
	}

	answer := s.extractor.Extract(ctx, doc)

	submitURL := extract.ResolveSubmitURL(doc)
	if submitURL == "" {
		fallback := extract.FindAnyURL(doc.Text(), s.opts.FallbackScanChars)
		if fallback != "" && fallback != current {
			return stepResult{
				action:  actionAdvance,
				nextURL: fallback,
				answer:  answer,
				outcome: domain.OutcomeFallbackAdvance,
			}
		}
		return stepResult{
			action:  actionEnd,
			answer:  answer,
			outcome: domain.OutcomeEndOfChain,
			reason:  "no submit target and no fallback url",
		}
	}

	verdict, err := s.submitter.Submit(ctx, submitURL, domain.Submission{
		Email:  email,
		Secret: s.opts.Secret,
		URL:    current,
		Answer: answer,
	})
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("submission failed", "url", current, "submit_url", submitURL, "err", err)
		if s.canRetry(retriesLeft, deadline) {
			return stepResult{action: actionRetry, cause: "submit"}
		}
		return stepResult{
			action:  actionEnd,
			answer:  answer,
			outcome: domain.OutcomeAbandoned,
			reason:  "submission failed with no retries left",
		}
	}
	if verdict.NonJSON != "" {
		s.logger.Info("grader replied with non-json body", "url", current, "body", verdict.NonJSON)
	}

	if verdict.Confirmed() {
		metrics.SubmissionsTotal.WithLabelValues("correct").Inc()
		if verdict.URL != "" {
			return stepResult{action: actionAdvance, nextURL: verdict.URL, answer: answer, outcome: domain.OutcomeCorrect}
		}
		return stepResult{
			action:  actionEnd,
			answer:  answer,
			outcome: domain.OutcomeCorrect,
			reason:  "grader confirmed the final answer",
		}
	}

	metrics.SubmissionsTotal.WithLabelValues("unconfirmed").Inc()
	if verdict.URL != "" {
		if s.canReanswer(retriesLeft, deadline) {
			return stepResult{action: actionRetry, cause: "unconfirmed"}
		}
		// Grader offered forward progress; take it over local certainty.
		return stepResult{action: actionAdvance, nextURL: verdict.URL, answer: answer, outcome: domain.OutcomeAdvanced}
	}
	if s.canReanswer(retriesLeft, deadline) {
		return stepResult{action: actionRetry, cause: "unconfirmed"}
	}
	return stepResult{
		action:  actionEnd,
		answer:  answer,
		outcome: domain.OutcomeAbandoned,
		reason:  "answer not confirmed and retries exhausted",
	}
}

// canRetry gates recoverable-failure retries on the remaining budget and the
// deadline alone.
func (s *Solver) canRetry(retriesLeft int, deadline time.Time) bool {
	return retriesLeft > 0 && s.now().Before(deadline)
}

// canReanswer additionally requires a minimum window before the deadline.
// Re-answering an unconfirmed question only pays off when enough time is
// left to render and submit the new attempt.
func (s *Solver) canReanswer(retriesLeft int, deadline time.Time) bool {
	return retriesLeft > 0 && deadline.Sub(s.now()) > s.opts.MinRetryWindow
}

func (s *Solver) recordTask(run *domain.ChainRun, seq int, url string, answer domain.Answer, attempts int, outcome domain.TaskOutcome) {
	metrics.TasksProcessedTotal.WithLabelValues(string(outcome)).Inc()
	run.Tasks = append(run.Tasks, domain.TaskResult{
		Seq:      seq,
		URL:      url,
		Answer:   answer.String(),
		Attempts: attempts,
		Outcome:  outcome,
	})
	run.TasksProcessed = len(run.Tasks)
}

func (s *Solver) setState(run *domain.ChainRun, state domain.RunState) {
	run.State = state
	if s.OnUpdate != nil {
		s.OnUpdate(run)
	}
}

func (s *Solver) finish(run *domain.ChainRun, state domain.RunState, reason string, start time.Time) {
	end := s.now()
	run.State = state
	run.Reason = reason
	run.FinishedAt = end
	run.ElapsedMs = end.Sub(start).Milliseconds()
	run.TasksProcessed = len(run.Tasks)
	metrics.RunsFinishedTotal.WithLabelValues(string(state)).Inc()
	metrics.RunDurationSeconds.WithLabelValues(string(state)).Observe(end.Sub(start).Seconds())
	s.logger.Info("chain run finished", "run_id", run.ID, "state", state,
		"reason", reason, "tasks", run.TasksProcessed, "elapsed_ms", run.ElapsedMs)
	if s.OnUpdate != nil {
		s.OnUpdate(run)
	}
}

// IsLocalTarget reports whether a URL points at loopback, link-local, or
// mDNS-style local hostnames. Such targets are rejected before any network
// call so the automation cannot be steered into internal services. An
// unparseable URL is treated as local (rejected).
func IsLocalTarget(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return true
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
	}
	return false
}
