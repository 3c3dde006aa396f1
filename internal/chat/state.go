/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Chat Conversation State
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"strings"

	"pgedge-postgres-insights/internal/report"
)

// Sender identifies who produced a conversation entry
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Entry is one message in the conversation. Result is set only for
// successful assistant answers.
type Entry struct {
	Sender Sender
	Text   string
	Result *report.Result
}

// IsError reports whether the entry is a failed request
func (e Entry) IsError() bool {
	return e.Sender == SenderAssistant && e.Result == nil
}

// State is everything the terminal client displays
type State struct {
	Conversation []Entry
	Loading      bool
	ShowSamples  bool
}

// InitialState is an empty conversation with the sample questions shown
func InitialState() State {
	return State{ShowSamples: true}
}

// Event is an input to Reduce
type Event interface {
	isEvent()
}

// QuestionSubmitted is sent when the user enters a question
type QuestionSubmitted struct {
	Question string
}

// ReportReceived carries a successful answer
type ReportReceived struct {
	Result *report.Result
}

// RequestFailed carries the message of a failed request
type RequestFailed struct {
	Message string
}

// ConversationCleared empties the conversation
type ConversationCleared struct{}

// SamplesToggled shows or hides the sample questions
type SamplesToggled struct{}

func (QuestionSubmitted) isEvent()   {}
func (ReportReceived) isEvent()      {}
func (RequestFailed) isEvent()       {}
func (ConversationCleared) isEvent() {}
func (SamplesToggled) isEvent()      {}

// Reduce returns the state after applying ev. The input state is not
// modified. Blank questions and questions submitted while a request is
// in flight are ignored, as are answers that arrive while idle.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case QuestionSubmitted:
		q := strings.TrimSpace(e.Question)
		if q == "" || s.Loading {
			return s
		}
		s.Conversation = appendEntry(s.Conversation, Entry{Sender: SenderUser, Text: q})
		s.Loading = true
		s.ShowSamples = false

	case ReportReceived:
		if !s.Loading || e.Result == nil {
			return s
		}
		s.Conversation = appendEntry(s.Conversation, Entry{
			Sender: SenderAssistant,
			Text:   e.Result.Report.Narrative,
			Result: e.Result,
		})
		s.Loading = false

	case RequestFailed:
		if !s.Loading {
			return s
		}
		s.Conversation = appendEntry(s.Conversation, Entry{
			Sender: SenderAssistant,
			Text:   "Error: " + e.Message,
		})
		s.Loading = false

	case ConversationCleared:
		s.Conversation = nil
		s.ShowSamples = true

	case SamplesToggled:
		s.ShowSamples = !s.ShowSamples
	}
	return s
}

// appendEntry copies before appending so earlier states are unaffected
func appendEntry(entries []Entry, e Entry) []Entry {
	out := make([]Entry, len(entries), len(entries)+1)
	copy(out, entries)
	return append(out, e)
}

// Last returns the most recent entry
func (s State) Last() (Entry, bool) {
	if len(s.Conversation) == 0 {
		return Entry{}, false
	}
	return s.Conversation[len(s.Conversation)-1], true
}

// LastResult returns the most recent successful answer
func (s State) LastResult() *report.Result {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if r := s.Conversation[i].Result; r != nil {
			return r
		}
	}
	return nil
}
