package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pulsefut/internal/config"
	"pulsefut/internal/transport"
	"pulsefut/sink"
)

func newSinksCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sinks",
		Short: "List sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *transport.Client) error {
				sinks, err := c.ListSinks(ctx)
				if err != nil {
					return err
				}
				return o.print(cmd.OutOrStdout(), sinks, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "INDEX\tNAME\tVOLUME\tMUTE\tPORT")
					for _, s := range sinks {
						fmt.Fprintf(tw, "%d\t%s\t%.0f%%\t%s\t%s\n", s.Index, s.Name, s.VolumePercent, onOff(s.Mute), s.ActivePort)
					}
					return tw.Flush()
				})
			})
		},
	}
}

func newSinkCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sink NAME|INDEX",
		Short: "Show one sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *transport.Client) error {
				var (
					s   transport.SinkView
					err error
				)
				if idx, perr := strconv.ParseUint(args[0], 10, 32); perr == nil {
					s, err = c.SinkByIndex(ctx, uint32(idx))
				} else {
					s, err = c.SinkByName(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return o.print(cmd.OutOrStdout(), s, func(w io.Writer) error {
					fmt.Fprintf(w, "%s (#%d)\n", s.Label(), s.Index)
					fmt.Fprintf(w, "  name:    %s\n", s.Name)
					fmt.Fprintf(w, "  state:   %s\n", s.State)
					fmt.Fprintf(w, "  volume:  %.0f%% over %d channels\n", s.VolumePercent, s.Channels)
					fmt.Fprintf(w, "  mute:    %s\n", onOff(s.Mute))
					fmt.Fprintf(w, "  monitor: %s\n", s.MonitorSource)
					for _, p := range s.Ports {
						mark := " "
						if p.Name == s.ActivePort {
							mark = "*"
						}
						fmt.Fprintf(w, "  %s %s - %s (priority %d, available %s)\n", mark, p.Name, p.Description, p.Priority, p.Available)
					}
					return nil
				})
			})
		},
	}
}

func newServerCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Show the audio server description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *transport.Client) error {
				info, err := c.ServerInfo(ctx)
				if err != nil {
					return err
				}
				return o.print(cmd.OutOrStdout(), info, func(w io.Writer) error {
					fmt.Fprintf(w, "%s %s on %s (user %s)\n", info.ServerName, info.ServerVersion, info.HostName, info.UserName)
					fmt.Fprintf(w, "default sink: %s\n", info.DefaultSinkName)
					fmt.Fprintf(w, "sample spec:  %d Hz, %d channels\n", info.SampleRate, info.Channels)
					return nil
				})
			})
		},
	}
}

func newVolumeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "volume SINK PERCENT",
		Short: "Set every channel of a sink to PERCENT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
			if err != nil || pct < 0 {
				return fmt.Errorf("invalid percent %q", args[1])
			}
			return o.withClient(cmd, func(ctx context.Context, c *transport.Client) error {
				return c.SetSinkVolume(ctx, args[0], pct)
			})
		},
	}
}

func newMuteCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "mute SINK on|off",
		Short:     "Mute or unmute a sink",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var mute bool
			switch strings.ToLower(args[1]) {
			case "on", "true", "1":
				mute = true
			case "off", "false", "0":
			default:
				return fmt.Errorf("want on or off, got %q", args[1])
			}
			return o.withClient(cmd, func(ctx context.Context, c *transport.Client) error {
				return c.SetSinkMute(ctx, args[0], mute)
			})
		},
	}
}

func newPortCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "port SINK PORT",
		Short: "Switch the active port of a sink",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *transport.Client) error {
				return c.SetSinkPort(ctx, args[0], args[1])
			})
		},
	}
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	var (
		facilities []string
		count      int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow change notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := transport.Dial(o.addr)
			if err != nil {
				return err
			}
			defer c.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			seen := 0
			w := cmd.OutOrStdout()
			err = c.Watch(ctx, facilities, func(r sink.Record) bool {
				_ = o.print(w, r, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s %s %s #%d\n", r.Time.Format("15:04:05.000"), r.Operation, r.Facility, r.Index)
					return err
				})
				seen++
				return count == 0 || seen < count
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringSliceVarP(&facilities, "facility", "f", nil, "facilities to follow (default all)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many records")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Daemon configuration helpers",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a default pulsefutd config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "pulsefut.yml"
			if len(args) == 1 {
				path = args[0]
			}
			if path == "-" {
				return config.Write(cmd.OutOrStdout(), config.Default())
			}
			if err := config.WriteFile(path, config.Default(), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
