// ABOUTME: Command line entry point for the leaklens tool
// ABOUTME: Wires flags into a leak definition and runs the check

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/prateek/leaklens/inspector"
	"github.com/prateek/leaklens/leakcheck"
)

var opts options

var rootCmd = &cobra.Command{
	Use:   "leaklens",
	Short: "Find probable memory leaks in a JavaScript heap",
	Long: "leaklens takes a heap snapshot from a remote debugging endpoint and\n" +
		"reports objects that are only kept alive by library bookkeeping\n" +
		"structures. Run the inspected browser with\n" +
		"--remote-debugging-port=9222 --js-flags=--stack_trace_limit=-1",
	Example: "  leaklens -d closure-disposable -e ws://localhost:9222/devtools/page/1\n" +
		"  leaklens -c myapp.registry_ -b myapp.events -u .stack",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.definition, "definition", "d", "",
		"predefined leak definition to use, one of: "+strings.Join(leakcheck.DefinitionNames(), ", "))
	flags.StringVarP(&opts.suppressions, "suppressions", "s", "",
		"load suppressions from this file")
	flags.StringArrayVarP(&opts.containers, "container", "c", nil,
		"name of an array that contains potentially leaking objects")
	flags.StringArrayVarP(&opts.badNodes, "bad-node", "b", nil,
		"name of an object that qualifies a retaining path as unintentional")
	flags.StringVarP(&opts.prefix, "prefix", "p", "",
		"string to prepend to the containers (e.g. \"jsframe.\")")
	flags.StringVarP(&opts.suffix, "suffix", "u", "",
		"member variable where the creation stack is stored (e.g. \".stack\")")
	flags.StringVarP(&opts.endpoint, "endpoint", "e", "ws://localhost:9222/devtools/page/1",
		"remote debugging websocket endpoint")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "more verbose output")
}

func run(cmd *cobra.Command) error {
	log := logrus.New()
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	def, err := opts.leakDefinition()
	if err != nil {
		return err
	}
	if opts.definition != "" {
		log.WithField("definition", opts.definition).Info("Using leak definition")
	}

	ctx := cmd.Context()
	client, err := inspector.Dial(ctx, opts.endpoint)
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := leakcheck.NewChecker(def, log).Run(ctx, client)
	if err != nil {
		return err
	}
	if err := report.Write(os.Stdout); err != nil {
		return err
	}

	if n := report.NumNewLeaks(); n > 0 {
		return fmt.Errorf("%d new memory leak(s) found", n)
	}
	return nil
}
