package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"pulsefut/internal/transport"
)

type rootOptions struct {
	addr    string
	output  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pulsectl",
		Short: "Inspect and control audio sinks through pulsefutd",
		Long: `pulsectl talks to a running pulsefutd over gRPC. It lists sinks,
changes volume, mute and port, and follows change notifications.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(`{{printf "pulsectl version %s\n" .Version}}`)
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "localhost:50071", "daemon address")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text|json")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-request timeout")

	cmd.AddCommand(
		newSinksCmd(opts),
		newSinkCmd(opts),
		newServerCmd(opts),
		newVolumeCmd(opts),
		newMuteCmd(opts),
		newPortCmd(opts),
		newWatchCmd(opts),
		newConfigCmd(),
	)
	return cmd
}

// withClient dials the daemon and runs fn with a request context.
func (o *rootOptions) withClient(cmd *cobra.Command, fn func(context.Context, *transport.Client) error) error {
	c, err := transport.Dial(o.addr)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	return fn(ctx, c)
}

// print writes v as JSON when -o json was given, otherwise calls text.
func (o *rootOptions) print(w io.Writer, v any, text func(io.Writer) error) error {
	switch o.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		return text(w)
	}
	return fmt.Errorf("unknown output format %q", o.output)
}
