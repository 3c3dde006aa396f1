/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Chat Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"pgedge-postgres-insights/internal/logging"
	"pgedge-postgres-insights/internal/report"
)

// ReportService answers questions. APIClient is the production
// implementation.
type ReportService interface {
	Ask(ctx context.Context, question string) (*report.Result, error)
	TestDB(ctx context.Context) (time.Time, error)
}

// Client is the interactive chat client
type Client struct {
	config      *Config
	ui          *UI
	api         ReportService
	state       State
	prefs       *Preferences
	prefsPath   string
	interactive bool
}

// NewClient creates a chat client talking to the configured server
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prefsPath := GetPreferencesPath()
	prefs, err := LoadPreferences(prefsPath, PreferencesFromConfig(cfg.UI))
	if err != nil {
		logging.Warn("failed to load preferences, using defaults", "error", err)
		prefs = PreferencesFromConfig(cfg.UI)
	}

	c := newClient(cfg, NewAPIClient(cfg.Server.URL, cfg.Server.TimeoutDuration()), os.Stdout, prefs)
	c.prefsPath = prefsPath
	c.interactive = true
	return c, nil
}

func newClient(cfg *Config, svc ReportService, out io.Writer, prefs *Preferences) *Client {
	return &Client{
		config: cfg,
		ui:     NewUI(out, cfg.UI.NoColor),
		api:    svc,
		state:  InitialState(),
		prefs:  prefs,
	}
}

// State returns the current conversation state
func (c *Client) State() State {
	return c.state
}

func (c *Client) dispatch(ev Event) {
	c.state = Reduce(c.state, ev)
}

func (c *Client) renderOptions() RenderOptions {
	return RenderOptions{
		Markdown: c.prefs.RenderMarkdown,
		ShowSQL:  c.prefs.ShowSQL,
		ShowData: c.prefs.ShowData,
	}
}

func (c *Client) savePreferences() {
	if c.prefsPath == "" {
		return
	}
	if err := SavePreferences(c.prefsPath, c.prefs); err != nil {
		c.ui.PrintError(fmt.Sprintf("Failed to save preferences: %v", err))
	}
}

// Run starts the chat loop and returns when the user quits or ctx is
// cancelled
func (c *Client) Run(ctx context.Context) error {
	c.ui.PrintWelcome(c.config.Server.URL)
	if _, err := c.api.TestDB(ctx); err != nil {
		c.ui.PrintError("Server is not ready: " + ErrorMessage(err))
	}
	if c.state.ShowSamples {
		c.ui.PrintSamples(SampleQuestions)
	}
	c.ui.PrintSeparator()

	return c.chatLoop(ctx)
}

// chatLoop runs the interactive readline loop
func (c *Client) chatLoop(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            c.ui.GetPrompt(),
		HistoryFile:       c.config.HistoryFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	// Closing readline unblocks Readline when ctx is cancelled
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				c.ui.PrintSystemMessage("Goodbye!")
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		if quit := c.HandleInput(ctx, line); quit {
			c.ui.PrintSystemMessage("Goodbye!")
			return nil
		}
	}
}

// HandleInput processes one line of input and reports whether the user
// asked to quit
func (c *Client) HandleInput(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if isQuit(input) {
		return true
	}

	if cmd := ParseSlashCommand(input); cmd != nil {
		if !c.HandleSlashCommand(ctx, cmd) {
			c.ui.PrintError(fmt.Sprintf("Unknown command: /%s (type /help for available commands)", cmd.Command))
		}
		return false
	}

	c.Ask(ctx, input)
	c.ui.PrintSeparator()
	return false
}

// Ask sends a question to the server and prints the answer or error.
// In interactive mode Esc cancels the request.
func (c *Client) Ask(ctx context.Context, question string) {
	c.dispatch(QuestionSubmitted{Question: question})
	if !c.state.Loading {
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopLoading := c.ui.StartLoading()
	done := make(chan struct{})
	if c.interactive {
		go ListenForEscape(reqCtx, done, cancel)
	}

	result, err := c.api.Ask(reqCtx, question)
	close(done)
	stopLoading()

	switch {
	case err != nil && reqCtx.Err() != nil && ctx.Err() == nil:
		c.dispatch(RequestFailed{Message: "request canceled"})
	case err != nil:
		c.dispatch(RequestFailed{Message: ErrorMessage(err)})
	default:
		c.dispatch(ReportReceived{Result: result})
	}

	if last, ok := c.state.Last(); ok {
		c.ui.PrintEntry(last, c.renderOptions())
	}
}
