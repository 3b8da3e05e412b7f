package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
)

// View is what a paused execution shows to the user.
type View struct {
	FlowID string            `json:"flow_id"`
	Key    string            `json:"execution"`
	ViewID string            `json:"view"`
	Model  domain.Attributes `json:"model,omitempty"`
	Popup  bool              `json:"popup,omitempty"`
}

// Command is the user's answer to a view: an event and its request parameters.
type Command struct {
	Event  string            `json:"event"`
	Params domain.Attributes `json:"params,omitempty"`
}

// Parameters returns the request parameters that signal the command.
func (c Command) Parameters() domain.Attributes {
	params := c.Params.Clone()
	if c.Event != "" {
		params[domain.ParamEventID] = c.Event
	}
	return params
}

// ParseCommand reads "event key=value ...". Values may be quoted.
func ParseCommand(line string) (Command, error) {
	fields, err := splitFields(line)
	if err != nil {
		return Command{}, err
	}
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	cmd := Command{Event: fields[0], Params: domain.NewAttributes()}
	if strings.Contains(cmd.Event, "=") {
		return Command{}, fmt.Errorf("command must start with an event, got %q", cmd.Event)
	}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return Command{}, fmt.Errorf("expected key=value, got %q", f)
		}
		cmd.Params[k] = v
	}
	return cmd, nil
}

func splitFields(line string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		quote  rune
		inWord bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				fields = append(fields, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inWord {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (console) and JSON (structured) modes.
type IOHandler interface {
	// Output presents a paused view.
	Output(ctx context.Context, view View) error

	// Input reads the user's next command. It returns io.EOF when the user is done.
	Input(ctx context.Context) (Command, error)

	// SystemOutput presents a meta-message, such as a redirect or the final outcome.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms markdown before it is written, e.g. into ANSI output.
type ContentRenderer func(string) (string, error)

// Markdown describes a view as a markdown document.
func Markdown(view View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", view.ViewID)
	writeModel(&sb, view.Model, 0)
	return sb.String()
}

func writeModel(sb *strings.Builder, m map[string]any, depth int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	indent := strings.Repeat("  ", depth)
	for _, k := range keys {
		switch v := m[k].(type) {
		case domain.Attributes:
			fmt.Fprintf(sb, "%s- **%s**\n", indent, k)
			writeModel(sb, v, depth+1)
		case map[string]any:
			fmt.Fprintf(sb, "%s- **%s**\n", indent, k)
			writeModel(sb, v, depth+1)
		default:
			fmt.Fprintf(sb, "%s- **%s**: %v\n", indent, k, v)
		}
	}
}
