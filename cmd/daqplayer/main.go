package main

/*------------------------------------------------------------------
 *
 * Purpose:	daqplayer: the CLI surface for a running daqplayerd,
 *		dispatching on a subcommand exactly as cmd/direwolf/
 *		main.go dispatches on its -t/-d mode flags.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	var (
		addr = pflag.StringP("addr", "a", "localhost:21749", "daqplayerd control address")
		help = pflag.Bool("help", false, "Display help text")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: daqplayer [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  metadata <path> [out.json]   Print an AudioAsset as JSON\n")
		fmt.Fprintf(os.Stderr, "  devices                      List playback devices\n")
		fmt.Fprintf(os.Stderr, "  monitor                      Live transport status view\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help || pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	switch pflag.Arg(0) {
	case "metadata":
		os.Exit(runMetadata(pflag.Args()[1:]))
	case "devices":
		os.Exit(runDevices(*addr))
	case "monitor":
		os.Exit(runMonitor(*addr))
	default:
		fmt.Fprintf(os.Stderr, "daqplayer: unknown command %q\n", pflag.Arg(0))
		pflag.Usage()
		os.Exit(2)
	}
}
