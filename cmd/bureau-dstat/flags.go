// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-dstat/lib/config"
)

// errHelp reports that --help was handled and the program should exit
// cleanly.
var errHelp = errors.New("help requested")

// cliFlags holds the parsed command line. Only flags the user set
// override the config file and environment.
type cliFlags struct {
	flagSet *pflag.FlagSet

	configPath      string
	tag             string
	dstatPath       string
	option          string
	delay           int
	tmpFile         string
	hostnameCommand string
	listen          string
	logLevel        string
	showVersion     bool
}

func parseFlags(args []string, output io.Writer) (*cliFlags, error) {
	flags := &cliFlags{}
	flagSet := pflag.NewFlagSet("bureau-dstat", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.StringVar(&flags.configPath, "config", "", "path to a YAML or JSONC config file")
	flagSet.StringVar(&flags.tag, "tag", "", "tag attached to every record")
	flagSet.StringVar(&flags.dstatPath, "dstat-path", "", "dstat executable (default \"dstat\")")
	flagSet.StringVar(&flags.option, "option", "", "dstat options, split on whitespace (default \"-fcdnm\")")
	flagSet.IntVar(&flags.delay, "delay", 0, "sampling interval in seconds (default 1)")
	flagSet.StringVar(&flags.tmpFile, "tmp-file", "", "dstat CSV output file (default \"/tmp/dstat.csv\")")
	flagSet.StringVar(&flags.hostnameCommand, "hostname-command", "", "command whose output is the record hostname (default \"hostname\")")
	flagSet.StringVar(&flags.listen, "listen", "", "address for /healthz, /status and /metrics")
	flagSet.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn, or error (default \"info\")")
	flagSet.BoolVar(&flags.showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")
	flags.flagSet = flagSet

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(output, flagSet)
			return nil, errHelp
		}
		return nil, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(output, flagSet)
		return nil, errHelp
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return flags, nil
}

// apply copies every flag the user set onto cfg.
func (f *cliFlags) apply(cfg *config.Config) {
	changed := f.flagSet.Changed
	if changed("tag") {
		cfg.Tag = f.tag
	}
	if changed("dstat-path") {
		cfg.DstatPath = f.dstatPath
	}
	if changed("option") {
		cfg.Option = f.option
	}
	if changed("delay") {
		cfg.Delay = f.delay
	}
	if changed("tmp-file") {
		cfg.TmpFile = f.tmpFile
	}
	if changed("hostname-command") {
		cfg.HostnameCommand = f.hostnameCommand
	}
	if changed("listen") {
		cfg.HTTP.Listen = f.listen
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
}

func printHelp(output io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(output, `bureau-dstat supervises dstat and emits its samples as records.

Configuration is layered: built-in defaults, then the --config file,
then DSTAT_* environment variables, then flags.

Usage:
  bureau-dstat --tag TAG [flags]

Examples:
  # Sample every second and print JSON lines on stdout
  bureau-dstat --tag host.metrics

  # Use a config file and serve status on localhost
  bureau-dstat --config /etc/bureau/dstat.yaml --listen 127.0.0.1:9102

Flags:
`)
	flagSet.SetOutput(output)
	flagSet.PrintDefaults()
}
