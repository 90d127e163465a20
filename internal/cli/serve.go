package cli

import (
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/roach88/busbridge/internal/netman"
	"github.com/roach88/busbridge/internal/publisher"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the org.mechanix.services.Add service",
		Long: `Claim org.mechanix.services.Add on the bus, answer AddNumber calls,
and emit a Notification signal with a random color once per interval.

Example:
  busbridge serve
  busbridge serve --interval 250ms --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "notification interval (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.setupLogging(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	interval := cfg.Publisher.Interval.Std()
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	conn, err := netman.Dial(ctx, cfg.Publisher.Bus)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to bus", err)
	}
	defer conn.Close()

	err = publisher.Serve(ctx, conn, publisher.ServeOptions{
		ServiceName: cfg.Publisher.ServiceName,
		ObjectPath:  dbus.ObjectPath(cfg.Publisher.ObjectPath),
		Interval:    interval,
		Logger:      logger,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "add service failed", err)
	}
	return nil
}
