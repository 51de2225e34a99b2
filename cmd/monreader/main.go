package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.0.1"
	BuildDate               string = "unknown"

	ExtensionName string = "monreader"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	command := "watch"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = strings.ToLower(args[0]), args[1:]
	}

	switch command {
	case "watch":
		return runWatch(args)
	case "decode":
		return runDecode(args, stdout)
	case "version":
		fmt.Fprintf(stdout, "%s %s (%s)\n", ExtensionName, CurrentExtensionVersion, BuildDate)
		return nil
	default:
		return fmt.Errorf("unknown command %q (want watch, decode or version)", command)
	}
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configDir)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}
