package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/lmartins/quizchain/internal/extract"
	"github.com/lmartins/quizchain/internal/htmldoc"
	"github.com/lmartins/quizchain/internal/repository"
	"github.com/lmartins/quizchain/internal/solver"
	"github.com/lmartins/quizchain/pkg/domain"
)

type fakeRenderer struct {
	docs map[string]*htmldoc.Document
}

func (f *fakeRenderer) Render(_ context.Context, pageURL string) (*htmldoc.Document, error) {
	doc, ok := f.docs[pageURL]
	if !ok {
		return nil, errors.New("unknown page")
	}
	return doc, nil
}

func (f *fakeRenderer) Close() error { return nil }

type fakeSubmitter struct {
	fn func(sub domain.Submission) (*domain.GraderResponse, error)
}

func (f *fakeSubmitter) Submit(_ context.Context, _ string, sub domain.Submission) (*domain.GraderResponse, error) {
	return f.fn(sub)
}

func newTestService(t *testing.T, r *fakeRenderer, sub *fakeSubmitter) RunService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := repository.NewRunRepository(rdb, time.Hour)
	ex := extract.New(time.Second, "value", nil)
	sv := solver.New(r, ex, sub, solver.Options{Secret: "s3cret"}, nil)
	return NewRunService(sv, repo, r, ex, nil)
}

func waitForTerminal(t *testing.T, svc RunService, id string) *domain.ChainRun {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		run, err := svc.GetRun(context.Background(), id)
		if err == nil && run.State.Terminal() {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run never reached a terminal state")
	return nil
}

func TestStartRunCompletesChain(t *testing.T) {
	truth := true
	r := &fakeRenderer{docs: map[string]*htmldoc.Document{
		"https://x/q1": htmldoc.New("https://x/q1", "q",
			[]htmldoc.Link{{Href: "https://x/q1/submit", Text: "submit"}},
			[]string{`{"answer": 42}`}),
	}}
	sub := &fakeSubmitter{fn: func(domain.Submission) (*domain.GraderResponse, error) {
		return &domain.GraderResponse{Correct: &truth}, nil
	}}
	svc := newTestService(t, r, sub)

	id, err := svc.StartRun(context.Background(), "https://x/q1", "")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	// The initial record is visible before the chain finishes.
	if _, err := svc.GetRun(context.Background(), id); err != nil {
		t.Fatalf("GetRun() right after start: %v", err)
	}

	run := waitForTerminal(t, svc, id)
	if run.State != domain.RunDone || run.TasksProcessed != 1 {
		t.Errorf("run = %+v", run)
	}
	if run.Tasks[0].Outcome != domain.OutcomeCorrect {
		t.Errorf("outcome = %v", run.Tasks[0].Outcome)
	}
}

func TestStartRunForwardsRequestEmail(t *testing.T) {
	truth := true
	r := &fakeRenderer{docs: map[string]*htmldoc.Document{
		"https://x/q1": htmldoc.New("https://x/q1", "q",
			[]htmldoc.Link{{Href: "https://x/q1/submit", Text: "submit"}},
			[]string{`{"answer": 42}`}),
	}}
	var gotEmail string
	sub := &fakeSubmitter{fn: func(s domain.Submission) (*domain.GraderResponse, error) {
		gotEmail = s.Email
		return &domain.GraderResponse{Correct: &truth}, nil
	}}
	svc := newTestService(t, r, sub)

	id, err := svc.StartRun(context.Background(), "https://x/q1", "student@example.com")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	run := waitForTerminal(t, svc, id)
	if gotEmail != "student@example.com" {
		t.Errorf("submission email = %q, want the request email", gotEmail)
	}
	if run.Email != "student@example.com" {
		t.Errorf("run email = %q, want the request email", run.Email)
	}
}

func TestStartRunRejectsBadTargets(t *testing.T) {
	svc := newTestService(t, &fakeRenderer{}, &fakeSubmitter{fn: nil})

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"loopback", "http://127.0.0.1:9999/quiz", ErrLocalTarget},
		{"mdns host", "http://grader.local/q1", ErrLocalTarget},
		{"relative", "/quiz/q1", ErrInvalidURL},
		{"wrong scheme", "ftp://quiz.example/q1", ErrInvalidURL},
		{"empty", "", ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.StartRun(context.Background(), tt.url, ""); !errors.Is(err, tt.want) {
				t.Errorf("StartRun(%q) error = %v, want %v", tt.url, err, tt.want)
			}
		})
	}
}

func TestInspectPage(t *testing.T) {
	r := &fakeRenderer{docs: map[string]*htmldoc.Document{
		"https://x/q1": htmldoc.New("https://x/q1", "The result is 17 items",
			[]htmldoc.Link{{Href: "https://x/api/submit", Text: "submit here"}}, nil),
	}}
	svc := newTestService(t, r, &fakeSubmitter{fn: nil})

	insp, err := svc.InspectPage(context.Background(), "https://x/q1")
	if err != nil {
		t.Fatalf("InspectPage() error = %v", err)
	}
	if insp.Answer != domain.IntAnswer(17) {
		t.Errorf("Answer = %+v", insp.Answer)
	}
	if insp.SubmitURL != "https://x/api/submit" {
		t.Errorf("SubmitURL = %q", insp.SubmitURL)
	}
}

func TestListRecentAfterRuns(t *testing.T) {
	truth := true
	r := &fakeRenderer{docs: map[string]*htmldoc.Document{
		"https://x/q1": htmldoc.New("https://x/q1", "q",
			[]htmldoc.Link{{Href: "https://x/q1/submit", Text: "submit"}},
			[]string{`{"answer": 1}`}),
	}}
	sub := &fakeSubmitter{fn: func(domain.Submission) (*domain.GraderResponse, error) {
		return &domain.GraderResponse{Correct: &truth}, nil
	}}
	svc := newTestService(t, r, sub)

	id, err := svc.StartRun(context.Background(), "https://x/q1", "")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	waitForTerminal(t, svc, id)

	runs, err := svc.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != id {
		t.Errorf("ListRecent() = %+v", runs)
	}
}
