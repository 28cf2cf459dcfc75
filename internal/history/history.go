// Package history bounds the model context of an unbounded conversation.
//
// A conversation grows without limit, but each turn only sends the most
// recent windowSize turns verbatim. Everything older (the tail) is replaced
// by a standing summary carried in a synthetic system message. The returned
// context therefore never exceeds windowSize+1 messages regardless of total
// conversation length.
package history

import "fmt"

// Message is one conversational message in model-context form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config carries the two context thresholds.
type Config struct {
	// WindowSize is the maximum number of raw turns kept in context.
	WindowSize int
	// RefreshThreshold is the turn count past which the standing summary
	// is due for regeneration.
	RefreshThreshold int
}

// Optimize trims history to the active window and decides whether the
// standing summary needs a refresh.
//
// The refresh signal compares total history length against RefreshThreshold,
// not the growth since the last refresh. This reproduces the source policy
// and can resummarize an unchanged tail when RefreshThreshold < WindowSize.
func Optimize(history []Message, standingSummary string, cfg Config) ([]Message, bool) {
	if len(history) <= cfg.WindowSize {
		return history, false
	}

	needsRefresh := len(history) > cfg.RefreshThreshold
	window := history[len(history)-cfg.WindowSize:]

	if standingSummary == "" {
		return window, needsRefresh
	}

	context := make([]Message, 0, len(window)+1)
	context = append(context, Message{
		Role:    "system",
		Content: fmt.Sprintf("[Context of past conversation: %s]", standingSummary),
	})
	context = append(context, window...)
	return context, needsRefresh
}

// Tail returns the turns older than the active window, the candidates for
// summarization. Empty when the whole history fits in the window.
func Tail(history []Message, cfg Config) []Message {
	if len(history) <= cfg.WindowSize {
		return nil
	}
	return history[:len(history)-cfg.WindowSize]
}
