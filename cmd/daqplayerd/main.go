package main

/*------------------------------------------------------------------
 *
 * Purpose:	Entry point for daqplayerd, the playback daemon: parses
 *		flags, loads config, and wires the Device Registry,
 *		Daemon, Control Protocol server, and DNS-SD announcement
 *		together for the process lifetime.
 *
 * Description:	Generalizes kissutil.go's pflag-based option parsing
 *		(hostname/port/verbose flags, Usage override) from a KISS
 *		utility's TCP/serial options to this daemon's config-file
 *		and override flags.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	daqcore "github.com/daqplay/daqplayer/src"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to YAML config file")
		port       = pflag.IntP("port", "p", 0, "Control protocol TCP port (overrides config)")
		logLevel   = pflag.StringP("log-level", "l", "", "Log level: debug, info, warn, error (overrides config)")
		logDir     = pflag.String("log-dir", "", "Directory for daily log files (overrides config)")
		help       = pflag.Bool("help", false, "Display help text")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: daqplayerd [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := daqcore.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "daqplayerd: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.ControlPort = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}

	logger := daqcore.NewLogger("daqplayerd", cfg.LogLevel)
	if cfg.LogDir != "" {
		logFile, err := daqcore.OpenDailyLogFile(cfg.LogDir)
		if err != nil {
			logger.Error("failed to open log file", "err", err)
		} else {
			defer logFile.Close()
			logger.SetOutput(io.MultiWriter(os.Stderr, logFile))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// No Library Index collaborator is wired in here: directory
	// scanning and metadata extraction are a GUI-side concern
	// (spec.md §4.8/Non-goals). load_audio falls back to probing the
	// Decoder directly when library is nil.
	daemon := daqcore.NewDaemon(cfg, logger, nil)

	if _, err := daemon.Registry.ListDevices(); err != nil {
		logger.Warn("initial device enumeration failed", "err", err)
	}
	go func() {
		if err := daemon.Registry.WatchUSBAttach(ctx); err != nil {
			logger.Warn("usb attach watch unavailable", "err", err)
		}
	}()

	daqcore.AnnounceDNSSD(ctx, cfg, logger)

	server := daqcore.NewControlServer(daemon, logger)
	logger.Info("starting daqplayerd", "control_port", cfg.ControlPort)
	if err := server.Serve(ctx, cfg.ControlPort); err != nil {
		logger.Error("control server exited", "err", err)
		os.Exit(1)
	}

	_ = daemon.Terminate()
	logger.Info("daqplayerd shut down")
}
