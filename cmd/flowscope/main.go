// Command flowscope is a thin CLI wrapper around the analyzer, render,
// lint, and complete packages: it marshals flags into a
// model.AnalyzeRequest, calls analyzer.Analyze, and hands the result to
// a render backend. No lineage logic lives here, grounded on
// steveyegge-beads's cmd/bd package layout (one cobra.Command var plus
// init() per subcommand file, rootCmd.AddCommand wiring them together)
// and its PersistentPreRun signal-handling idiom.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	flowconfig "github.com/pondpilot/flowscope/config"
)

var (
	// rootCtx is cancelled on SIGINT/SIGTERM so long-running exports
	// (DuckDB writes) can stop cleanly instead of leaving a half-written
	// file, the same graceful-cancellation shape rootCmd.PersistentPreRun
	// sets up in cmd/bd/main.go.
	rootCtx    context.Context
	rootCancel context.CancelFunc

	configPath string
	verbose    bool
	loader     *flowconfig.Loader
)

var rootCmd = &cobra.Command{
	Use:   "flowscope",
	Short: "flowscope - SQL lineage analyzer",
	Long:  `Analyzes SQL scripts for table- and column-level data lineage, lints the result for structural issues, and offers cursor-position completion hints.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}

		l, err := flowconfig.Load(configPath)
		if err != nil {
			return err
		}
		loader = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "flowscope.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if rootCancel != nil {
		rootCancel()
	}
}
