package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/roach88/busbridge/internal/netman"
	"github.com/roach88/busbridge/internal/publisher"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Count int
}

// ColorLine is the JSON form of one received notification.
type ColorLine struct {
	Color string  `json:"color"`
	R     float32 `json:"r"`
	G     float32 `json:"g"`
	B     float32 `json:"b"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print Notification signals from the Add service",
		Long: `Subscribe to org.mechanix.services.Add Notification signals and print
each color as it arrives.

Example:
  busbridge watch
  busbridge watch --count 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 0, "exit after N notifications (0 = until interrupted)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	logger := opts.setupLogging(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	conn, err := netman.Dial(ctx, cfg.Publisher.Bus)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to bus", err)
	}
	defer conn.Close()

	stream, err := publisher.Subscribe(ctx, conn, publisher.ClientOptions{
		ServiceName: cfg.Publisher.ServiceName,
		ObjectPath:  dbus.ObjectPath(cfg.Publisher.ObjectPath),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to subscribe", err)
	}

	n := printNotifications(ctx, stream, opts.Count, opts.Format, cmd.OutOrStdout(), opts.formatter(cmd))
	logger.Debug("watch finished", "received", n)
	return nil
}

// printNotifications writes notifications until count is reached (0 = no
// limit), the stream closes, or ctx ends. Returns how many were printed.
func printNotifications(ctx context.Context, stream <-chan publisher.Notification, count int, format string, w io.Writer, f *OutputFormatter) int {
	n := 0
	for count == 0 || n < count {
		select {
		case <-ctx.Done():
			return n
		case note, ok := <-stream:
			if !ok {
				return n
			}
			n++

			c, err := publisher.ParseColor(note.Color)
			if err != nil {
				f.VerboseLog("malformed notification: %v", err)
			}
			if format == "json" {
				_ = json.NewEncoder(w).Encode(ColorLine{Color: note.Color, R: c.R, G: c.G, B: c.B})
				continue
			}
			fmt.Fprintln(w, note.Color)
		}
	}
	return n
}
