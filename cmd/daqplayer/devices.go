package main

/*------------------------------------------------------------------
 *
 * Purpose:	`daqplayer devices` (spec.md §6): print the portaudio
 *		output device list as a table. Enumeration is
 *		read-only and side-effect-free, so this talks to the
 *		Device Registry directly rather than through a control
 *		protocol round trip — the task table (spec.md §4.6) is
 *		deliberately left unchanged by this addition.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"text/tabwriter"

	daqcore "github.com/daqplay/daqplayer/src"
)

func runDevices(addr string) int {
	registry := daqcore.NewRegistry(2)

	devices, err := registry.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "daqplayer devices: %v\n", err)
		return 1
	}

	version, ok := registry.DriverVersion()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tCATEGORY\tMAX_AO_RATE_HZ\tAO_LINES\tDO_LINES")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%d\t%d\n", d.Name, d.ProductType, d.ProductCategory, d.MaxAORateHz, d.AOLineCount, d.DOLineCount)
	}
	w.Flush()

	if ok {
		fmt.Printf("\ndriver version: %s\n", version)
	}
	if len(devices) == 0 {
		fmt.Println("no output-capable devices found")
	}

	return 0
}
