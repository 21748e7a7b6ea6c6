// Command specgo is the CLI entrypoint for the IR-to-C protocol
// toolchain: validate an IR document, render its C encoder/decoder,
// gate the generated sources, and run a seeded roundtrip campaign
// against a compiled build of them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dylanxu/specgo/config"
	"github.com/dylanxu/specgo/logging"
)

const usage = `specgo <command> [flags]

Commands:
  validate    load and validate an IR YAML document
  codegen     render C encoder/decoder sources from an IR document
  gate        run the codegen acceptance gate against generated sources
  gate-batch  gate several specs concurrently from a manifest file
  roundtrip   compile, load, and seeded-verify generated sources
  run         validate -> codegen -> gate -> roundtrip, end to end
  config      print the default configuration
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := logging.Configure("text", "info"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logging.Log.Warn("received interrupt, cancelling after the current loop")
		cancel()
	}()

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "codegen":
		err = runCodegen(os.Args[2:])
	case "gate":
		err = runGate(ctx, os.Args[2:])
	case "gate-batch":
		err = runGateBatch(ctx, os.Args[2:])
	case "roundtrip":
		err = runRoundtrip(ctx, os.Args[2:])
	case "run":
		err = runPipeline(ctx, os.Args[2:])
	case "config":
		err = runConfigCmd(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "specgo: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		logging.Log.Error(err)
		os.Exit(1)
	}
}

func defaultConfigOrDie() config.Config {
	cfg := config.Default()
	return cfg
}
