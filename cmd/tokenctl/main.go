package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tokenstick/tokenctl/pkg/command"
)

type options struct {
	configPath   string
	file         string
	pad          string
	timeout      string
	pollInterval string
	vid, pid     uint16
	vendor       string
	product      string
	verbose      bool

	commands []*commandFlag
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "tokenctl [command] [parameter]",
		Short: "tokenctl talks to a USB token over vendor control requests",
		Long: `Sends a single command to a connected token: manage the secret, counter and
token digits, poke at the debug register and button, and read or write the
device's RAM and flash.

Exactly one command flag must be given, once. Commands taking a parameter
accept it attached to the flag (--set-digits=8) or as the next argument
(--reset 6), but not both.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	for _, e := range command.Catalog {
		opts.commands = append(opts.commands, newCommandFlag(cmd.Flags(), e))
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/tokenctl/config.yaml)")
	pf.StringVarP(&opts.file, "file", "f", "", "File that read-mem/read-flash write to and write-mem reads from (.xz is (de)compressed)")
	pf.StringVarP(&opts.pad, "pad", "p", "", "Byte (0..255) used to pad write-mem data")
	pf.StringVar(&opts.timeout, "timeout", "", "Control transfer timeout (default 5s)")
	pf.StringVar(&opts.pollInterval, "poll-interval", "", "Delay between button reads in wait-for-button (default: none)")
	pf.Uint16Var(&opts.vid, "vid", 0, "USB vendor ID of the token")
	pf.Uint16Var(&opts.pid, "pid", 0, "USB product ID of the token")
	pf.StringVar(&opts.vendor, "vendor", "", "Expected USB manufacturer string")
	pf.StringVar(&opts.product, "product", "", "Expected USB product string")
	// No -v shorthand: glog's -v is merged in from the Go flag set.
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable verbose debug logging")

	return cmd
}

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
}

func main() {
	flag.CommandLine.Parse(nil)
	flag.Set("logtostderr", "true")

	if err := newRootCmd().Execute(); err != nil {
		slog.Debug("Exiting", "err", err)
		os.Exit(1)
	}
}
