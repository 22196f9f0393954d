package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/HerbHall/netcollect/pkg/collection"
)

func runNormalize(args []string) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	kind := fs.String("kind", "gauge", "attribute kind, e.g. counter, gauge, Counter64")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: netcollect normalize [-kind KIND] VALUE...")
		os.Exit(1)
	}
	writeNormalized(os.Stdout, collection.ParseClass(*kind), fs.Args())
}

// writeNormalized prints one "raw<TAB>value<TAB>outcome" line per input.
func writeNormalized(w io.Writer, class collection.Class, raws []string) {
	for _, raw := range raws {
		v, outcome := collection.Normalize(raw, class)
		fmt.Fprintf(w, "%q\t%s\t%s\n", raw, v, outcome)
	}
}
