package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cwbudde/algo-synth/config"
	"github.com/cwbudde/algo-synth/effect"
	"github.com/cwbudde/algo-synth/instrument"
	"github.com/cwbudde/algo-synth/internal/logging"
	"github.com/cwbudde/algo-synth/router"
	"github.com/fatih/color"
)

func main() {
	algorithm := flag.String("algorithm", "synth", "Synthesis algorithm heading the chain")
	list := flag.Bool("list", false, "List the effect kinds and exit")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] kind...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *noColor {
		color.NoColor = true
	}

	if *list {
		for _, k := range effect.Kinds() {
			spec, _ := effect.Lookup(k)
			fmt.Printf("%-12s %s\n", k, spec.Family)
		}
		return
	}

	cfg := config.Default()
	if err := config.ApplyFile(cfg, &config.File{Algorithm: algorithm, Effects: flag.Args()}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	inst, err := instrument.New(cfg, instrument.WithLogger(logging.Setup(*debug)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer inst.Close()

	printTopology(os.Stdout, inst.Chain(), inst.Topology())
}

// printTopology writes the chain followed by its edges. Edges that skip
// ahead are the dry paths around delay runs.
func printTopology(w io.Writer, chain []string, edges []router.Edge) {
	pos := make(map[string]int, len(chain))
	for i, n := range chain {
		pos[n] = i
	}
	fmt.Fprintf(w, "chain: %s\n", strings.Join(chain, " > "))
	serial := color.New(color.FgGreen)
	bypass := color.New(color.FgYellow)
	for _, e := range edges {
		if pos[e.To] == pos[e.From]+1 {
			serial.Fprintf(w, "  %s -> %s\n", e.From, e.To)
		} else {
			bypass.Fprintf(w, "  %s -> %s (bypass)\n", e.From, e.To)
		}
	}
	color.New(color.FgCyan).Fprintf(w, "  %s -> output\n", chain[len(chain)-1])
}
