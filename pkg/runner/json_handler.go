package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// JSONHandler implements IOHandler with JSON lines. Views are written as one
// JSON object per line; commands are read as {"event": ..., "params": {...}}
// objects or as bare JSON strings naming the event.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

type jsonMessage struct {
	Type    string `json:"type"`
	View    *View  `json:"view,omitempty"`
	Message string `json:"message,omitempty"`
}

// Output implements IOHandler.
func (h *JSONHandler) Output(ctx context.Context, view View) error {
	return h.Encoder.Encode(jsonMessage{Type: "view", View: &view})
}

// Input implements IOHandler.
func (h *JSONHandler) Input(ctx context.Context) (Command, error) {
	for {
		text, err := h.Reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text == "" {
			if err != nil {
				return Command{}, err
			}
			continue
		}

		clean, serr := SanitizeInput(text)
		if serr != nil {
			return Command{}, serr
		}
		cmd, perr := decodeCommand(clean)
		if perr != nil {
			return Command{}, perr
		}
		return cmd, nil
	}
}

func decodeCommand(text string) (Command, error) {
	if strings.HasPrefix(text, "{") {
		var cmd Command
		if err := json.Unmarshal([]byte(text), &cmd); err != nil {
			return Command{}, fmt.Errorf("invalid command: %w", err)
		}
		if cmd.Event == "" {
			return Command{}, fmt.Errorf("invalid command: missing event")
		}
		return cmd, nil
	}
	var event string
	if err := json.Unmarshal([]byte(text), &event); err == nil {
		text = event
	}
	if text == "exit" || text == "quit" {
		return Command{}, io.EOF
	}
	return ParseCommand(text)
}

// SystemOutput implements IOHandler.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonMessage{Type: "system", Message: msg})
}
