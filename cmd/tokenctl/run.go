package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gousb"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tokenstick/tokenctl/pkg/app"
	"github.com/tokenstick/tokenctl/pkg/command"
	"github.com/tokenstick/tokenctl/pkg/config"
	"github.com/tokenstick/tokenctl/pkg/control"
	"github.com/tokenstick/tokenctl/pkg/devices"
	"github.com/tokenstick/tokenctl/pkg/memxfer"
)

// openDevice is replaced in tests.
var openDevice = func(desc devices.Description) (devices.Usb, error) {
	return app.Open(desc)
}

// fs backs memory file I/O. Replaced in tests.
var fs = afero.NewOsFs()

// selection returns the chosen catalog entry and its raw parameter. A flag
// given twice counts as two selections. Nothing touches the device before this
// succeeds.
func selection(cmd *cobra.Command, opts *options, args []string) (*command.Entry, *string, error) {
	var selected []*command.Entry
	byEntry := make(map[*command.Entry]*commandFlag)
	for _, f := range opts.commands {
		for i := 0; i < f.count; i++ {
			selected = append(selected, f.entry)
		}
		byEntry[f.entry] = f
	}
	e, err := command.Select(selected)
	if err != nil {
		if errors.Is(err, command.ErrNoCommand) {
			command.WriteUsage(cmd.ErrOrStderr(), cmd.Root().Name())
		}
		return nil, nil, err
	}
	param, err := byEntry[e].param(args)
	if err != nil {
		return nil, nil, err
	}
	return e, param, nil
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	fl := cmd.Flags()
	if fl.Changed("vid") {
		cfg.Device.VID = gousb.ID(opts.vid)
	}
	if fl.Changed("pid") {
		cfg.Device.PID = gousb.ID(opts.pid)
	}
	if fl.Changed("vendor") {
		cfg.Device.Vendor = opts.vendor
	}
	if fl.Changed("product") {
		cfg.Device.Product = opts.product
	}
	if fl.Changed("file") {
		cfg.File = opts.file
	}
	if fl.Changed("pad") {
		if cfg.Pad, err = memxfer.ParsePad(opts.pad); err != nil {
			return nil, fmt.Errorf("%w: --pad: %v", command.ErrInvalidParameter, err)
		}
	}
	if fl.Changed("timeout") {
		d, err := time.ParseDuration(opts.timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: --timeout %q", command.ErrInvalidParameter, opts.timeout)
		}
		cfg.Timeout = d
	}
	if fl.Changed("poll-interval") {
		d, err := time.ParseDuration(opts.pollInterval)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: --poll-interval %q", command.ErrInvalidParameter, opts.pollInterval)
		}
		cfg.PollInterval = d
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	if opts.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		flag.Set("v", "2")
	}

	e, param, err := selection(cmd, opts, args)
	if err != nil {
		return err
	}
	c, err := command.Parse(e, param)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	usb, err := openDevice(cfg.Device)
	if err != nil {
		return err
	}
	defer usb.Close()
	slog.Info("Found device", "device", cfg.Device, "command", e.Long)

	d, err := control.New(usb, cfg.Timeout)
	if err != nil {
		return err
	}
	x := &command.Executor{
		D: d,
		Mem: &memxfer.Engine{
			D:    d,
			Fs:   fs,
			File: cfg.File,
			Pad:  cfg.Pad,
			Out:  cmd.OutOrStdout(),
			Diag: cmd.ErrOrStderr(),
		},
		Out:          cmd.OutOrStdout(),
		Diag:         cmd.ErrOrStderr(),
		PollInterval: cfg.PollInterval,
	}
	return x.Run(cmd.Context(), c)
}
