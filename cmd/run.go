// Copyright © 2024 The rebug authors

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/luthersystems/rebug/script"
	"github.com/luthersystems/rebug/script/x/profiler"
	"github.com/spf13/cobra"
)

var (
	runExpression bool
	runPrint      bool
	runTrace      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flags] file...",
	Short: "Run script code",
	Long: `Run script code supplied via the command line or files.

With --trace, every function application is wrapped in an OpenTelemetry
span exported through the globally registered tracer provider.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := script.NewEnv(nil)

		if runTrace {
			ppa := profiler.NewOpenTelemetryAnnotator(env.Runtime, context.Background())
			if err := ppa.Enable(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer ppa.Complete() //nolint:errcheck // best-effort span cleanup
		}

		for i := range args {
			var res *script.Value
			if runExpression {
				res = env.LoadString(fmt.Sprintf("argv-%d", i+1), args[i])
			} else {
				res = env.LoadFile(args[i])
			}
			if res.Kind == script.KError {
				renderScriptError(env, res)
				os.Exit(1)
			}
			if runPrint {
				fmt.Println(res)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runExpression, "expression", "e", false,
		"Interpret arguments as expressions")
	runCmd.Flags().BoolVarP(&runPrint, "print", "p", false,
		"Print expression values to stdout")
	runCmd.Flags().BoolVar(&runTrace, "trace", false,
		"Trace function applications as OpenTelemetry spans")
}
