package domain

import "fmt"

// History controls what happens to the current snapshot when a view state is exited.
type History string

const (
	// HistoryPreserve keeps the snapshot so the user can navigate back to it.
	HistoryPreserve History = "preserve"
	// HistoryDiscard removes the snapshot of the view state being exited.
	HistoryDiscard History = "discard"
	// HistoryInvalidate removes every snapshot of the conversation.
	HistoryInvalidate History = "invalidate"
)

// ParseHistory converts a configuration string. The empty string means preserve.
func ParseHistory(s string) (History, error) {
	switch History(s) {
	case "", HistoryPreserve:
		return HistoryPreserve, nil
	case HistoryDiscard:
		return HistoryDiscard, nil
	case HistoryInvalidate:
		return HistoryInvalidate, nil
	}
	return "", fmt.Errorf("unknown history policy %q", s)
}
