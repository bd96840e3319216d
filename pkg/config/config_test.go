package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, "quizSecret: abc\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.SolveDeadlineSeconds != 170 {
		t.Errorf("SolveDeadlineSeconds = %d, want 170", cfg.SolveDeadlineSeconds)
	}
	if cfg.PerQuestionRetries != 2 {
		t.Errorf("PerQuestionRetries = %d, want 2", cfg.PerQuestionRetries)
	}
	if cfg.SubmitTimeoutSeconds != 25 {
		t.Errorf("SubmitTimeoutSeconds = %d, want 25", cfg.SubmitTimeoutSeconds)
	}
	if cfg.PageRenderWaitMs != 800 {
		t.Errorf("PageRenderWaitMs = %d, want 800", cfg.PageRenderWaitMs)
	}
	if cfg.RenderTimeoutMs != 30000 {
		t.Errorf("RenderTimeoutMs = %d, want 30000", cfg.RenderTimeoutMs)
	}
	if cfg.PDFColumnName != "value" {
		t.Errorf("PDFColumnName = %q, want value", cfg.PDFColumnName)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("QUIZ_SECRET", "env-secret")
	t.Setenv("SOLVE_DEADLINE_SECONDS", "120")
	t.Setenv("PER_QUESTION_RETRIES", "5")

	path := writeTempConfig(t, "quizSecret: file-secret\nsolveDeadlineSeconds: 60\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.QuizSecret != "env-secret" {
		t.Errorf("QuizSecret = %q, want env override", cfg.QuizSecret)
	}
	if cfg.SolveDeadlineSeconds != 120 {
		t.Errorf("SolveDeadlineSeconds = %d, want 120", cfg.SolveDeadlineSeconds)
	}
	if cfg.PerQuestionRetries != 5 {
		t.Errorf("PerQuestionRetries = %d, want 5", cfg.PerQuestionRetries)
	}
}

func TestValidateRequiresSecret(t *testing.T) {
	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional() error = %v", err)
	}
	cfg.QuizSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted empty quizSecret")
	}
}

func TestValidateDeadlineCeiling(t *testing.T) {
	cfg, _ := LoadConfigOptional("")
	cfg.QuizSecret = "s"
	cfg.SolveDeadlineSeconds = 180
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted deadline at the request-timeout ceiling")
	}
	cfg.SolveDeadlineSeconds = 179
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v for deadline below ceiling", err)
	}
}

func TestValidateRenderer(t *testing.T) {
	cfg, _ := LoadConfigOptional("")
	cfg.QuizSecret = "s"
	cfg.Renderer = "firefox"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() accepted unknown renderer")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg, _ := LoadConfigOptional("")
	if cfg.SolveDeadline() != 170*time.Second {
		t.Errorf("SolveDeadline() = %v", cfg.SolveDeadline())
	}
	if cfg.PageRenderWait() != 800*time.Millisecond {
		t.Errorf("PageRenderWait() = %v", cfg.PageRenderWait())
	}
	if cfg.RetryBackoff() != 500*time.Millisecond {
		t.Errorf("RetryBackoff() = %v", cfg.RetryBackoff())
	}
}
