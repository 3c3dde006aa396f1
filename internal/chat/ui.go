/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Chat Client UI
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"pgedge-postgres-insights/internal/summarizer"
	"pgedge-postgres-insights/internal/tsv"
)

// Color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)

// maxRenderWidth keeps tables readable on very wide terminals
const maxRenderWidth = 120

// RenderOptions selects the optional parts of an answer
type RenderOptions struct {
	Markdown bool
	ShowSQL  bool
	ShowData bool
}

// UI handles the user interface
type UI struct {
	out     io.Writer
	noColor bool
}

// NewUI creates a UI writing to out
func NewUI(out io.Writer, noColor bool) *UI {
	return &UI{out: out, noColor: noColor}
}

// colorize applies color if colors are enabled
func (ui *UI) colorize(color, text string) string {
	if ui.noColor {
		return text
	}
	return color + text + ColorReset
}

func (ui *UI) println(a ...interface{}) {
	fmt.Fprintln(ui.out, a...)
}

// PrintWelcome prints the welcome banner
// ASCII art credit: https://ascii.co.uk/art/elephant
func (ui *UI) PrintWelcome(serverURL string) {
	elephant := `
          _
   ______/ \-.   _           pgEdge Postgres Insights
.-/     (    o\_//           Ask a question about your data, /help for commands
 |  ___  \_/\---'
 |_||  |_||
`
	ui.println(ui.colorize(ColorCyan, elephant))
	ui.PrintSystemMessage("Server: " + serverURL)
}

// GetPrompt returns the prompt string for readline
func (ui *UI) GetPrompt() string {
	return ui.colorize(ColorGreen+ColorBold, "You: ")
}

// PrintSystemMessage prints a system message
func (ui *UI) PrintSystemMessage(text string) {
	ui.println(ui.colorize(ColorYellow, "System: ") + text)
}

// PrintError prints an error message
func (ui *UI) PrintError(text string) {
	ui.println(ui.colorize(ColorRed, "Error: ") + text)
}

// PrintSeparator prints a separator line
func (ui *UI) PrintSeparator() {
	ui.println(ui.colorize(ColorGray, strings.Repeat("─", 80)))
}

// PrintSamples lists the sample questions with their numbers
func (ui *UI) PrintSamples(questions []string) {
	ui.println(ui.colorize(ColorCyan, "Sample questions (run one with /sample <n>):"))
	for i, q := range questions {
		ui.println(fmt.Sprintf("  %d. %s", i+1, q))
	}
}

// PrintEntry prints one conversation entry
func (ui *UI) PrintEntry(e Entry, opts RenderOptions) {
	if e.Sender == SenderUser {
		ui.println(ui.colorize(ColorGreen, "You: ") + e.Text)
		return
	}
	if e.IsError() {
		ui.println(ui.colorize(ColorRed, e.Text))
		return
	}

	ui.println()
	ui.println(ui.colorize(ColorBlue, "Assistant: ") + ui.colorize(ColorGray, "("+e.Result.Intent.String()+")"))

	if opts.Markdown {
		if rendered, ok := ui.renderMarkdown(answerMarkdown(e, opts)); ok {
			fmt.Fprint(ui.out, rendered)
			return
		}
	}
	fmt.Fprintln(ui.out, answerPlain(e, opts))
}

// answerMarkdown assembles the narrative, chart data and optional parts
// of an answer as one markdown document
func answerMarkdown(e Entry, opts RenderOptions) string {
	var sb strings.Builder
	sb.WriteString(narrativeMarkdown(e.Text))

	if v := e.Result.Report.Visualization; v != nil {
		sb.WriteString("\n\n**Chart:** " + string(v.Kind) + "\n\n")
		sb.WriteString(visualizationMarkdown(v))
	}
	if opts.ShowSQL && e.Result.SQL != "" {
		sb.WriteString("\n\n```sql\n" + e.Result.SQL + "\n```\n")
	}
	if opts.ShowData && !e.Result.Data.Empty() {
		sb.WriteString("\n\n**Data:**\n\n```\n" + tsv.FormatResultSet(e.Result.Data) + "\n```\n")
	}
	return sb.String()
}

// answerPlain is the answer without markdown, with TSV tables
func answerPlain(e Entry, opts RenderOptions) string {
	parts := []string{e.Text}
	if v := e.Result.Report.Visualization; v != nil {
		parts = append(parts, "Chart: "+string(v.Kind), tsv.FormatVisualization(v))
	}
	if opts.ShowSQL && e.Result.SQL != "" {
		parts = append(parts, "SQL:", e.Result.SQL)
	}
	if opts.ShowData && !e.Result.Data.Empty() {
		parts = append(parts, "Data:", tsv.FormatResultSet(e.Result.Data))
	}
	return strings.Join(parts, "\n\n")
}

// narrativeMarkdown turns bullet lines into a markdown list and keeps
// every other line as its own paragraph
func narrativeMarkdown(narrative string) string {
	lines := strings.Split(narrative, "\n")
	var sb strings.Builder
	prevBullet := false
	for i, line := range lines {
		bullet := strings.HasPrefix(line, "• ")
		if i > 0 {
			if bullet && prevBullet {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		if bullet {
			sb.WriteString("- " + strings.TrimPrefix(line, "• "))
		} else {
			sb.WriteString(line)
		}
		prevBullet = bullet
	}
	return sb.String()
}

// visualizationMarkdown renders a chart payload as a markdown table
func visualizationMarkdown(v *summarizer.Visualization) string {
	var columns []string
	var rows [][]interface{}

	if v.IsTable() {
		columns, rows = v.Columns, v.Rows
	} else {
		xTitle, yTitle := "Label", "Value"
		if v.Axes != nil {
			if v.Axes.X.Title != "" {
				xTitle = v.Axes.X.Title
			}
			if v.Axes.Y.Title != "" {
				yTitle = v.Axes.Y.Title
			}
		}
		columns = []string{xTitle, yTitle}
		for _, p := range v.Points {
			rows = append(rows, []interface{}{p.X, p.Y})
		}
	}
	if len(columns) == 0 {
		return ""
	}

	cell := func(val interface{}) string {
		return strings.ReplaceAll(tsv.FormatValue(val), "|", "\\|")
	}

	var sb strings.Builder
	header := make([]string, len(columns))
	rule := make([]string, len(columns))
	for i, c := range columns {
		header[i] = cell(c)
		rule[i] = "---"
	}
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("| " + strings.Join(rule, " | ") + " |\n")
	for _, row := range rows {
		values := make([]string, len(row))
		for i, val := range row {
			values[i] = cell(val)
		}
		sb.WriteString("| " + strings.Join(values, " | ") + " |\n")
	}
	return sb.String()
}

func (ui *UI) renderMarkdown(text string) (string, bool) {
	style := "dark"
	if ui.noColor {
		style = "notty"
	}

	width := ui.getTerminalWidth()
	if width > maxRenderWidth {
		width = maxRenderWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", false
	}
	rendered, err := r.Render(text)
	if err != nil {
		return "", false
	}
	return rendered, true
}

// getTerminalWidth returns the usable terminal width, 80 if unknown
func (ui *UI) getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 2 {
		return width - 2
	}
	return 80
}

// PostgreSQL/Elephant themed action words for the loading indicator
var elephantActions = []string{
	"Consulting the herd",
	"Stampeding through data",
	"Trumpeting queries",
	"Roaming the database",
	"Grazing on metadata",
	"Foraging for answers",
	"Dusting off schemas",
	"Counting the herd",
}

// StartLoading shows a spinner until the returned function is called
func (ui *UI) StartLoading() (stop func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(ui.out))
	s.Suffix = " " + elephantActions[rand.Intn(len(elephantActions))] + "... (Esc to cancel)"
	if !ui.noColor {
		_ = s.Color("cyan") //nolint:errcheck // Unknown colors are only ignored
	}
	s.Start()
	return s.Stop
}

// PrintHelp prints the help message
func (ui *UI) PrintHelp() {
	help := `
Commands:
  /help               - Show this help message
  /samples            - Show or hide the sample questions
  /sample <n>         - Ask sample question n
  /clear              - Clear the conversation and the screen
  /sql on|off         - Show the generated SQL with each answer
  /data on|off        - Show the raw result rows with each answer
  /markdown on|off    - Render answers as markdown
  /show               - Show current settings
  /last               - Reprint the last answer with SQL and data
  /test-db            - Check the server's database connection
  /quit, /exit        - Exit the chat client

History navigation:
  Up/Down   - Navigate through question history
  Ctrl+R    - Reverse search history

Press Esc while an answer is loading to cancel it.
Anything else is sent to the server as a question.
`
	ui.println(ui.colorize(ColorCyan, help))
}

// ClearScreen clears the terminal screen
func (ui *UI) ClearScreen() {
	fmt.Fprint(ui.out, "\033[H\033[2J")
}
