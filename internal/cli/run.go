package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/busbridge/internal/bridge"
	"github.com/roach88/busbridge/internal/journal"
	"github.com/roach88/busbridge/internal/netman"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Ticks   int
	Tick    time.Duration
	Journal string

	// Service overrides the NetworkManager service (for testing).
	// If nil, a D-Bus service on the configured bus is used.
	Service netman.Service

	// IDGenerator overrides request IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator bridge.IDGenerator

	// Until stops the loop after the first event it matches (for testing).
	Until func(bridge.Event) bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll NetworkManager from a tick loop",
		Long: `Start the bridge and poll it once per tick, printing every event.

Actions are read from stdin, one per line:
  wifi on|off      switch the Wi-Fi radio
  button           same as "wifi on"
  toggle on|off    connect or disconnect the Wi-Fi device
  switch <id>      activate the saved connection named <id>

Commands typed before the service is ready wait for it.

Example:
  busbridge run
  busbridge run --journal ./busbridge.db --ticks 600
  echo "wifi off" | busbridge run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Ticks, "ticks", opts.Ticks, "stop after N ticks (0 = until interrupted)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", opts.Tick, "tick period (overrides config)")
	cmd.Flags().StringVar(&opts.Journal, "journal", opts.Journal, "record events to this SQLite journal (overrides config)")

	return cmd
}

func runBridge(opts *RunOptions, cmd *cobra.Command) error {
	logger := opts.setupLogging(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	tick := cfg.Tick.Std()
	if opts.Tick > 0 {
		tick = opts.Tick
	}
	journalPath := cfg.Journal
	if opts.Journal != "" {
		journalPath = opts.Journal
	}

	service := opts.Service
	if service == nil {
		service = netman.NewDBusService(cfg.Bus, logger)
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	c := &console{
		out:    cmd.OutOrStdout(),
		logger: logger,
		format: opts.Format,
		runID:  uuid.Must(uuid.NewV7()).String(),
		status: "Connected",
	}

	if journalPath != "" {
		j, err := journal.Open(journalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		run := journal.Run{ID: c.runID, Bus: string(cfg.Bus), StartedAt: time.Now()}
		if err := j.BeginRun(ctx, run); err != nil {
			return WrapExitError(ExitCommandError, "failed to start journal run", err)
		}

		// The recorder outlives the signal context so events reported during
		// shutdown still reach the journal; the deferred Close stops it.
		c.recorder = journal.NewRecorder(j, logger)
		go c.recorder.Run(context.WithoutCancel(ctx))
		defer func() {
			c.recorder.Close()
			<-c.recorder.Done()
			if n := c.recorder.Rejected(); n > 0 {
				logger.Warn("journal entries rejected after close", "count", n)
			}
		}()
		logger.Info("journal ready", "path", journalPath, "run", c.runID)
	}

	bopts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithEventQueueCapacity(cfg.EventQueueCapacity),
	}
	if opts.IDGenerator != nil {
		bopts = append(bopts, bridge.WithIDGenerator(opts.IDGenerator))
	}
	b := bridge.New(service, bopts...)

	if err := b.Start(); err != nil {
		return WrapExitError(ExitFailure, "failed to start bridge", err)
	}
	logger.Info("bridge starting", "bus", cfg.Bus, "tick", tick)

	c.printStatus()

	commands := make(chan bridge.ActionRequest, 16)
	go readCommands(ctx, cmd.InOrStdin(), commands, logger)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			break
		}

		stop := c.handle(b.Poll(), opts.Until)
		if b.Ready() {
			dispatchPending(b, commands, c)
		}
		if stop || (opts.Ticks > 0 && n >= opts.Ticks) {
			break
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
	defer shutdownCancel()
	shutdownErr := b.Shutdown(shutdownCtx)

	// Records produced while shutting down are still reported.
	c.handle(b.Poll(), nil)

	stats := b.Stats()
	logger.Info("bridge stopped",
		"ticks", stats.Ticks,
		"tasks", stats.TasksSpawned,
		"dropped", stats.ActionsDropped,
	)

	if shutdownErr != nil {
		return WrapExitError(ExitFailure, "bridge did not shut down cleanly", shutdownErr)
	}
	return nil
}

// console renders poll-loop events and tracks the displayed Wi-Fi status.
// Used only from the poll loop.
type console struct {
	out      io.Writer
	logger   *slog.Logger
	format   string
	runID    string
	recorder *journal.Recorder
	status   string
}

// handle writes and journals evs. Returns true if until matched any event.
func (c *console) handle(evs []bridge.Event, until func(bridge.Event) bool) bool {
	stop := false
	for _, ev := range evs {
		e := journal.FromEvent(c.runID, ev)
		if c.recorder != nil && !c.recorder.Record(e) {
			c.logger.Warn("journal closed, entry not recorded", "seq", e.Seq, "kind", e.Kind)
		}
		_ = writeEntry(c.out, c.format, e)

		if ev.Kind == bridge.EventDevice {
			c.setStatus(ev.Device.State.String())
		}
		if until != nil && until(ev) {
			stop = true
		}
	}
	return stop
}

func (c *console) setStatus(s string) {
	if s == c.status {
		return
	}
	c.status = s
	c.printStatus()
}

func (c *console) printStatus() {
	if c.format == "text" {
		fmt.Fprintf(c.out, "status: %s\n", c.status)
	}
}

func (c *console) dispatched(req bridge.ActionRequest, id string) {
	if c.format == "text" {
		fmt.Fprintf(c.out, "dispatched %s (%s)\n", req.Name(), id)
	}
}

// dispatchPending hands every queued stdin command to the bridge.
func dispatchPending(b *bridge.Bridge, commands <-chan bridge.ActionRequest, c *console) {
	for {
		select {
		case req := <-commands:
			c.dispatched(req, b.Dispatch(req))
		default:
			return
		}
	}
}

// readCommands parses action commands from r until EOF or ctx ends.
func readCommands(ctx context.Context, r io.Reader, out chan<- bridge.ActionRequest, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, err := parseAction(line)
		if err != nil {
			logger.Warn("ignoring command", "line", line, "error", err)
			continue
		}

		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading commands", "error", err)
	}
}

// parseAction turns one command line into an action request.
func parseAction(line string) (bridge.ActionRequest, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "button":
		if rest != "" {
			return nil, fmt.Errorf("button takes no argument")
		}
		return bridge.SetWifi{Enabled: true}, nil
	case "wifi", "toggle":
		on, err := parseOnOff(rest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", verb, err)
		}
		if verb == "wifi" {
			return bridge.SetWifi{Enabled: on}, nil
		}
		return bridge.ToggleWifi{Enabled: on}, nil
	case "switch":
		if rest == "" {
			return nil, fmt.Errorf("switch: missing connection id")
		}
		return bridge.SwitchNetwork{ConnectionID: rest}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", verb)
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on|off, got %q", s)
	}
}
