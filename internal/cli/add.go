package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/roach88/busbridge/internal/netman"
	"github.com/roach88/busbridge/internal/publisher"
)

// AddResult is the output of the add command.
type AddResult struct {
	A   int8 `json:"a"`
	B   int8 `json:"b"`
	Sum int8 `json:"sum"`
}

func (r AddResult) String() string {
	return fmt.Sprintf("%d + %d = %d", r.A, r.B, r.Sum)
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "add <a> <b>",
		Short: "Call AddNumber on the Add service",
		Long: `Call org.mechanix.services.Add.AddNumber with two int8 values.
A sum outside -128..127 is reported as an overflow error.

Example:
  busbridge add 40 2
  busbridge add -- -5 3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(rootOpts, cmd, args, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "call timeout")

	return cmd
}

func runAdd(opts *RootOptions, cmd *cobra.Command, args []string, timeout time.Duration) error {
	opts.setupLogging(cmd.ErrOrStderr())

	a, b, err := parseInt8Args(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := netman.Dial(ctx, cfg.Publisher.Bus)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to bus", err)
	}
	defer conn.Close()

	sum, err := publisher.AddNumber(ctx, conn, publisher.ClientOptions{
		ServiceName: cfg.Publisher.ServiceName,
		ObjectPath:  dbus.ObjectPath(cfg.Publisher.ObjectPath),
	}, a, b)
	if err != nil {
		return WrapExitError(ExitFailure, "AddNumber failed", err)
	}

	return opts.formatter(cmd).Success(AddResult{A: a, B: b, Sum: sum})
}

func parseInt8Args(args []string) (int8, int8, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	var out [2]int8
	for i, s := range args {
		v, err := strconv.ParseInt(s, 10, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("%q is not an int8: %w", s, err)
		}
		out[i] = int8(v)
	}
	return out[0], out[1], nil
}
