package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/internal/presentation/tui"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/runner"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	FlowsDir  string
	FlowID    string
	Execution string // key of a paused execution to continue
	Input     string // raw JSON object
	StorePath string // keeps executions across runs when set
	JSON      bool
	Headless  bool
	Debug     bool

	Stdin  io.Reader
	Stdout io.Writer
}

// RunSession drives one flow execution on the console until it ends or the
// user quits, leaving it paused.
func RunSession(ctx context.Context, opts RunOptions) (*webflow.Result, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	logger := createLogger(opts.Debug)

	input, err := parseInput(opts.Input)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	cfg.Flows.Dir = opts.FlowsDir
	cfg.Server.Metrics = false
	cfg.Execution.RedirectOnPause = false
	if opts.StorePath != "" {
		cfg.Store.Type = config.StoreFile
		cfg.Store.Path = opts.StorePath
	}
	app, err := NewApp(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	defer app.Close()

	quiet := opts.JSON || opts.Headless
	if !quiet {
		tui.PrintBanner(opts.Stdout, webflow.Version)
	}

	r := runner.NewRunner(app.Executor,
		runner.WithInputHandler(newIOHandler(opts)),
		runner.WithLogger(logger),
		runner.WithSignals(true),
	)

	if opts.Execution != "" {
		return r.Continue(ctx, opts.Execution)
	}
	flowID, err := entryFlow(opts.FlowID, app.FlowIDs())
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, flowID, input)
}

func newIOHandler(opts RunOptions) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(opts.Stdin, opts.Stdout)
	}
	var hopts []runner.TextHandlerOption
	if !opts.Headless && runner.IsTerminal(opts.Stdin) {
		hopts = append(hopts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
	}
	return runner.NewTextHandler(opts.Stdin, opts.Stdout, hopts...)
}

// entryFlow picks the flow to launch: the requested one, or the only one loaded.
func entryFlow(requested string, ids []string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no flows found")
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("several flows found, pick one with --flow: %s", strings.Join(ids, ", "))
}

func parseInput(raw string) (domain.Attributes, error) {
	if raw == "" {
		return nil, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("error parsing --input JSON: %w", err)
	}
	return domain.Attributes(input), nil
}
