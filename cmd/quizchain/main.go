package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) request(method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, nil
}

type ui struct {
	ok   func(a ...any) string
	info func(a ...any) string
	warn func(a ...any) string
	err  func(a ...any) string
	dim  func(a ...any) string
}

func newUI() *ui {
	return &ui{
		ok:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		info: color.New(color.FgCyan).SprintFunc(),
		warn: color.New(color.FgYellow).SprintFunc(),
		err:  color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:  color.New(color.Faint).SprintFunc(),
	}
}

type runView struct {
	ID             string `json:"id"`
	StartURL       string `json:"startUrl"`
	State          string `json:"state"`
	Reason         string `json:"reason"`
	TasksProcessed int    `json:"tasksProcessed"`
	ElapsedMs      int64  `json:"elapsedMs"`
	Tasks          []struct {
		Seq      int    `json:"seq"`
		URL      string `json:"url"`
		Answer   string `json:"answer"`
		Attempts int    `json:"attempts"`
		Outcome  string `json:"outcome"`
	} `json:"tasks"`
}

func (r runView) terminal() bool { return r.State == "DONE" || r.State == "ABORTED" }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// resolveSecret returns the secret from flag/env, or prompts for it on a TTY.
func resolveSecret(secret string, ui *ui) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret != "" {
		return secret, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("secret is required (set QUIZ_SECRET or --secret)")
	}
	fmt.Fprint(os.Stderr, ui.dim("Quiz secret: "))
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	secret = strings.TrimSpace(string(b))
	if secret == "" {
		return "", errors.New("secret is required")
	}
	return secret, nil
}

func printRun(run runView, ui *ui) {
	state := ui.ok(run.State)
	if run.State != "DONE" {
		state = ui.warn(run.State)
	}
	fmt.Printf("%s run %s  %s  tasks=%d  elapsed=%s\n",
		state, run.ID, ui.dim(run.Reason), run.TasksProcessed,
		(time.Duration(run.ElapsedMs) * time.Millisecond).String())
	for _, task := range run.Tasks {
		fmt.Printf("  %2d. %-10s %s %s %s\n", task.Seq, task.Outcome, task.URL,
			ui.info("answer="+task.Answer), ui.dim(fmt.Sprintf("attempts=%d", task.Attempts)))
	}
}

func fetchRun(c *client, id string) (runView, error) {
	var run runView
	status, resp, err := c.request(http.MethodGet, "/v1/quiz/runs/"+url.PathEscape(id), nil)
	if err != nil {
		return run, err
	}
	if status >= 300 {
		return run, fmt.Errorf("error (%d): %s", status, string(resp))
	}
	err = json.Unmarshal(resp, &run)
	return run, err
}

func solveCmd(baseURL, secret *string, ui *ui) *cobra.Command {
	var noWait bool
	var waitSec int
	email := os.Getenv("QUIZ_EMAIL")
	cmd := &cobra.Command{
		Use:     "solve <url>",
		Short:   "Start a quiz chain run and wait for it to finish",
		Example: "quizchain solve --email student@example.com https://quiz.example/q1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sec, err := resolveSecret(*secret, ui)
			if err != nil {
				return err
			}
			c := newClient(*baseURL)
			body := map[string]string{"url": args[0], "secret": sec}
			if email != "" {
				body["email"] = email
			}
			status, resp, err := c.request(http.MethodPost, "/v1/quiz/solve", body)
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var accepted struct {
				RunID string `json:"runId"`
			}
			if err := json.Unmarshal(resp, &accepted); err != nil || accepted.RunID == "" {
				fmt.Println(string(resp))
				return nil
			}
			fmt.Printf("%s Run started: %s\n", ui.ok("[OK]"), accepted.RunID)
			if noWait {
				return nil
			}

			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Solving chain..."
			spin.Start()
			deadline := time.Now().Add(time.Duration(waitSec) * time.Second)
			var run runView
			for {
				if time.Now().After(deadline) {
					spin.Stop()
					return fmt.Errorf("timed out waiting for run %s (last state %s)", accepted.RunID, run.State)
				}
				run, err = fetchRun(c, accepted.RunID)
				if err != nil {
					spin.Stop()
					return err
				}
				if run.terminal() {
					break
				}
				time.Sleep(time.Second)
			}
			spin.Stop()
			printRun(run, ui)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return immediately after starting the run")
	cmd.Flags().IntVar(&waitSec, "wait-seconds", 200, "How long to wait for the run to finish")
	cmd.Flags().StringVar(&email, "email", email, "Submitter email forwarded to the grader")
	return cmd
}

func answerCmd(baseURL, secret *string, ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:     "answer <url>",
		Short:   "Render one page and show the extracted answer without submitting",
		Example: "quizchain answer https://quiz.example/q1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sec, err := resolveSecret(*secret, ui)
			if err != nil {
				return err
			}
			c := newClient(*baseURL)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Rendering page..."
			spin.Start()
			status, resp, err := c.request(http.MethodPost, "/v1/quiz/answer",
				map[string]string{"url": args[0], "secret": sec})
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			fmt.Println(string(resp))
			return nil
		},
	}
}

func runCmd(baseURL *string, ui *ui) *cobra.Command {
	run := &cobra.Command{
		Use:   "run",
		Short: "Inspect chain runs",
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL)
			view, err := fetchRun(c, args[0])
			if err != nil {
				return err
			}
			printRun(view, ui)
			return nil
		},
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL)
			status, resp, err := c.request(http.MethodGet,
				fmt.Sprintf("/v1/quiz/runs?limit=%d", limit), nil)
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out struct {
				Runs []runView `json:"runs"`
			}
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			for _, r := range out.Runs {
				printRun(r, ui)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Max runs to list")

	run.AddCommand(get, list)
	return run
}

func main() {
	baseURL := getenv("QUIZCHAIN_BASE_URL", "http://localhost:8080")
	secret := os.Getenv("QUIZ_SECRET")
	ui := newUI()

	root := &cobra.Command{
		Use:   "quizchain",
		Short: "quizchain CLI",
		Long:  "quizchain CLI for starting and inspecting quiz chain runs.",
	}
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "Base URL for the quizchain server")
	root.PersistentFlags().StringVar(&secret, "secret", secret, "Shared quiz secret")

	root.AddCommand(solveCmd(&baseURL, &secret, ui))
	root.AddCommand(answerCmd(&baseURL, &secret, ui))
	root.AddCommand(runCmd(&baseURL, ui))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}
