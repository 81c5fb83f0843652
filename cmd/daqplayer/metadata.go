package main

/*------------------------------------------------------------------
 *
 * Purpose:	`daqplayer metadata <path> [out.json]` (spec.md §6): emit
 *		an AudioAsset as JSON to stdout or a file. Probes the
 *		Decoder directly — no daemon connection needed.
 *
 * Exit codes:	0 success, 2 bad arguments, 3 file not found,
 *		4 unsupported codec.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	daqcore "github.com/daqplay/daqplayer/src"
)

func runMetadata(args []string) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintf(os.Stderr, "usage: daqplayer metadata <path> [out.json]\n")
		return 2
	}
	path := args[0]

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "daqplayer metadata: %s: not found\n", path)
			return 3
		}
		fmt.Fprintf(os.Stderr, "daqplayer metadata: %v\n", err)
		return 3
	}

	if _, err := daqcore.DetectCodec(path); err != nil {
		fmt.Fprintf(os.Stderr, "daqplayer metadata: %v\n", err)
		return 4
	}

	asset, err := daqcore.ProbeAsset(path)
	if err != nil {
		var decErr *daqcore.DecoderError
		if errors.As(err, &decErr) {
			fmt.Fprintf(os.Stderr, "daqplayer metadata: %v\n", err)
			return 4
		}
		fmt.Fprintf(os.Stderr, "daqplayer metadata: %v\n", err)
		return 4
	}

	data, err := json.MarshalIndent(asset, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "daqplayer metadata: %v\n", err)
		return 4
	}

	if len(args) == 2 {
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "daqplayer metadata: writing %s: %v\n", args[1], err)
			return 4
		}
		return 0
	}

	fmt.Println(string(data))
	return 0
}
