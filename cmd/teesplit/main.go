// Command teesplit reads stdin and fans it out to one or more output
// files, either replicating the whole stream to each (the default) or
// scattering it across them (-s), optionally aligned to line boundaries
// (-l).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-teesplit"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-b buffer_size] [-s] [-l] [-v] FILE...\n", os.Args[0])
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("teesplit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = usage

	bufferSize := fs.Int("b", teesplit.DefaultBufferSize, "buffer pool chunk size, in bytes")
	scatter := fs.Bool("s", false, "scatter the stream across outputs instead of replicating it to each")
	line := fs.Bool("l", false, "align scatter boundaries to newlines (ignored without -s)")
	verbose := fs.Bool("v", false, "log diagnostic events to stderr")

	if err := fs.Parse(args); err != nil {
		return teesplit.KindUsage.ExitCode()
	}

	files := fs.Args()
	if len(files) == 0 {
		usage()
		return teesplit.KindUsage.ExitCode()
	}

	teesplit.MaskBrokenPipe()

	level := logiface.LevelDisabled
	if *verbose {
		level = logiface.LevelDebug
	}
	logger := teesplit.NewDefaultLogger(level)

	outputs := make([]teesplit.Output, 0, len(files))
	for _, name := range files {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: error opening %s: %v\n", os.Args[0], name, err)
			return teesplit.KindOutput.ExitCode()
		}
		defer f.Close()
		outputs = append(outputs, teesplit.Output{Name: name, FD: int(f.Fd())})
	}

	cfg := teesplit.Config{
		BufferSize: *bufferSize,
		Scatter:    *scatter,
		Line:       *line,
		Outputs:    outputs,
	}

	loop, err := teesplit.NewLoop(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		return teesplit.ExitCode(err)
	}
	defer loop.Close()

	if err := loop.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		return teesplit.ExitCode(err)
	}

	return 0
}
