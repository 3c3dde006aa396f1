/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Chat Slash Commands
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SampleQuestions are the canonical questions, one per report type
var SampleQuestions = []string{
	"Compare sales between Electronics and Furniture",
	"Show revenue trends over time",
	"Who are our top 10 customers by spending?",
	"What are our most popular products?",
	"How has our customer base grown over time?",
	"Show order status distribution",
	"Are there any data quality issues in our database?",
}

// SlashCommand represents a parsed slash command
type SlashCommand struct {
	Command string
	Args    []string
}

// ParseSlashCommand parses a slash command from user input. It returns
// nil when input is not a command.
func ParseSlashCommand(input string) *SlashCommand {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := parseQuotedArgs(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}

	return &SlashCommand{
		Command: strings.ToLower(parts[0]),
		Args:    parts[1:],
	}
}

// parseQuotedArgs splits a string on spaces, keeping single or double
// quoted sections together
func parseQuotedArgs(input string) []string {
	args := []string{}
	var current strings.Builder
	var quote rune

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0 && r == '\\' && i+1 < len(runes) && (runes[i+1] == quote || runes[i+1] == '\\'):
			current.WriteRune(runes[i+1])
			i++
		case quote == 0 && (r == ' ' || r == '\t'):
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// isQuit reports whether input asks to leave the client
func isQuit(input string) bool {
	switch strings.ToLower(input) {
	case "quit", "exit", "/quit", "/exit":
		return true
	}
	return false
}

// parseOnOff accepts on/off style toggles
func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid value %q (use on or off)", value)
}

// HandleSlashCommand runs a command and reports whether it was
// recognized
func (c *Client) HandleSlashCommand(ctx context.Context, cmd *SlashCommand) bool {
	if cmd == nil {
		return false
	}

	switch cmd.Command {
	case "help":
		c.ui.PrintHelp()
	case "samples":
		c.dispatch(SamplesToggled{})
		if c.state.ShowSamples {
			c.ui.PrintSamples(SampleQuestions)
		} else {
			c.ui.PrintSystemMessage("Sample questions hidden")
		}
	case "sample":
		c.handleSample(ctx, cmd.Args)
	case "clear":
		c.dispatch(ConversationCleared{})
		c.ui.ClearScreen()
		c.ui.PrintSystemMessage("Conversation cleared")
		c.ui.PrintSamples(SampleQuestions)
	case "sql":
		c.handleToggle(cmd.Command, cmd.Args, "SQL display", &c.prefs.ShowSQL)
	case "data":
		c.handleToggle(cmd.Command, cmd.Args, "Data display", &c.prefs.ShowData)
	case "markdown":
		c.handleToggle(cmd.Command, cmd.Args, "Markdown rendering", &c.prefs.RenderMarkdown)
	case "show":
		c.printSettings()
	case "last":
		c.printLast()
	case "test-db":
		c.handleTestDB(ctx)
	default:
		return false
	}
	return true
}

func (c *Client) handleSample(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.ui.PrintError(fmt.Sprintf("Usage: /sample <1-%d>", len(SampleQuestions)))
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(SampleQuestions) {
		c.ui.PrintError(fmt.Sprintf("Sample number must be between 1 and %d", len(SampleQuestions)))
		return
	}
	question := SampleQuestions[n-1]
	c.ui.PrintEntry(Entry{Sender: SenderUser, Text: question}, c.renderOptions())
	c.Ask(ctx, question)
}

func (c *Client) handleToggle(name string, args []string, label string, target *bool) {
	if len(args) != 1 {
		c.ui.PrintError(fmt.Sprintf("Usage: /%s on|off (current: %s)", name, onOff(*target)))
		return
	}
	value, err := parseOnOff(args[0])
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}

	*target = value
	c.ui.PrintSystemMessage(fmt.Sprintf("%s: %s", label, onOff(value)))
	c.savePreferences()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (c *Client) printSettings() {
	c.ui.PrintSystemMessage(fmt.Sprintf("Server:    %s", c.config.Server.URL))
	c.ui.PrintSystemMessage(fmt.Sprintf("SQL:       %s", onOff(c.prefs.ShowSQL)))
	c.ui.PrintSystemMessage(fmt.Sprintf("Data:      %s", onOff(c.prefs.ShowData)))
	c.ui.PrintSystemMessage(fmt.Sprintf("Markdown:  %s", onOff(c.prefs.RenderMarkdown)))
	c.ui.PrintSystemMessage(fmt.Sprintf("Messages:  %d", len(c.state.Conversation)))
}

func (c *Client) printLast() {
	res := c.state.LastResult()
	if res == nil {
		c.ui.PrintSystemMessage("No answers yet")
		return
	}
	opts := c.renderOptions()
	opts.ShowSQL = true
	opts.ShowData = true
	c.ui.PrintEntry(Entry{Sender: SenderAssistant, Text: res.Report.Narrative, Result: res}, opts)
}

func (c *Client) handleTestDB(ctx context.Context) {
	now, err := c.api.TestDB(ctx)
	if err != nil {
		c.ui.PrintError(ErrorMessage(err))
		return
	}
	c.ui.PrintSystemMessage("Database connection OK, server time " + now.Format("2006-01-02 15:04:05 MST"))
}
