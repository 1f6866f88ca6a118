// Command lobgate runs the order book core behind an HTTP/WS gateway, or
// drives synthetic load against it, using the project's cobra-root CLI
// pattern.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	cfgPath string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "lobgate",
		Short:   "In-memory limit order book gateway",
		Version: version,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")
	root.AddCommand(newServeCommand())
	root.AddCommand(newBenchCommand())
	return root
}
