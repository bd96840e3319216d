package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lmartins/quizchain/internal/extract"
	"github.com/lmartins/quizchain/internal/render"
	"github.com/lmartins/quizchain/internal/repository"
	"github.com/lmartins/quizchain/internal/solver"
	"github.com/lmartins/quizchain/pkg/domain"
)

var (
	ErrInvalidURL  = errors.New("start url is not a valid absolute http(s) url")
	ErrLocalTarget = errors.New("start url resolves to a local address")
)

// PageInspection is the result of rendering and extracting a single page
// without submitting anything. It exists as a diagnostic for operators
// checking what the heuristics would do with a given page.
type PageInspection struct {
	URL       string        `json:"url"`
	Answer    domain.Answer `json:"answer"`
	SubmitURL string        `json:"submitUrl,omitempty"`
}

// RunService starts and tracks chain runs.
type RunService interface {
	StartRun(ctx context.Context, startURL, email string) (string, error)
	GetRun(ctx context.Context, id string) (*domain.ChainRun, error)
	ListRecent(ctx context.Context, limit int64) ([]*domain.ChainRun, error)
	InspectPage(ctx context.Context, pageURL string) (*PageInspection, error)
	StartRetentionLoop(ctx context.Context)
}

type runService struct {
	solver        *solver.Solver
	repo          repository.RunRepository
	renderer      render.Renderer
	extractor     solver.AnswerExtractor
	logger        *slog.Logger
	sweepInterval time.Duration
	now           func() time.Time
}

func NewRunService(sv *solver.Solver, repo repository.RunRepository, renderer render.Renderer, extractor solver.AnswerExtractor, logger *slog.Logger) RunService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &runService{
		solver:        sv,
		repo:          repo,
		renderer:      renderer,
		extractor:     extractor,
		logger:        logger,
		sweepInterval: time.Hour,
		now:           time.Now,
	}
	sv.OnUpdate = s.persist
	return s
}

func (s *runService) persist(run *domain.ChainRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveRun(ctx, run); err != nil {
		s.logger.Warn("persist run failed", "run_id", run.ID, "err", err)
	}
}

func checkTarget(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	if solver.IsLocalTarget(rawURL) {
		return ErrLocalTarget
	}
	return nil
}

// StartRun validates the target, writes an initial RUNNING record, and kicks
// off the chain in the background. An empty email leaves the solver on its
// configured default. The returned ID can be polled immediately.
func (s *runService) StartRun(ctx context.Context, startURL, email string) (string, error) {
	if err := checkTarget(startURL); err != nil {
		return "", err
	}

	id := uuid.NewString()
	run := &domain.ChainRun{
		ID:        id,
		StartURL:  startURL,
		Email:     email,
		State:     domain.RunRunning,
		StartedAt: s.now(),
	}
	if err := s.repo.SaveRun(ctx, run); err != nil {
		return "", err
	}

	go func() {
		// The chain outlives the HTTP request that started it; the
		// solver's own deadline bounds this goroutine.
		s.solver.SolveAs(context.Background(), id, startURL, email)
	}()
	return id, nil
}

func (s *runService) GetRun(ctx context.Context, id string) (*domain.ChainRun, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *runService) ListRecent(ctx context.Context, limit int64) ([]*domain.ChainRun, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *runService) InspectPage(ctx context.Context, pageURL string) (*PageInspection, error) {
	if err := checkTarget(pageURL); err != nil {
		return nil, err
	}
	doc, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return &PageInspection{
		URL:       pageURL,
		Answer:    s.extractor.Extract(ctx, doc),
		SubmitURL: extract.ResolveSubmitURL(doc),
	}, nil
}

// StartRetentionLoop periodically removes runs past their retention window.
// Returns when ctx is cancelled.
func (s *runService) StartRetentionLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn("run retention sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Info("run retention sweep", "removed", n)
			}
		}
	}
}
