// Copyright © 2024 The rebug authors

package cmd

import (
	"fmt"
	"os"

	"github.com/luthersystems/rebug/debugger"
	"github.com/luthersystems/rebug/debugger/dapserver"
	"github.com/luthersystems/rebug/repl"
	"github.com/luthersystems/rebug/script"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	debugPort        int
	debugStdio       bool
	debugStopOnEntry bool
	debugInteractive bool
)

var debugCmd = &cobra.Command{
	Use:   "debug [flags] file.rebug",
	Short: "Run a file under the debugger",
	Long: `Start a debugger for a source file.

By default, starts a DAP (Debug Adapter Protocol) server for editors
(VS Code, Neovim, Helix, etc.) to connect to. With --interactive, the
file is stepped on the terminal with single-key commands instead.

Transport modes (DAP):
  --port N     Listen for a DAP client on TCP port N (default: 4711)
  --stdio      Use stdin/stdout for DAP communication (for editors that
               launch the debug adapter as a child process)

The --stop-on-entry flag pauses execution before the first expression,
giving the editor time to set breakpoints.

Examples:
  rebug debug myfile.rebug                   Debug with TCP on port 4711
  rebug debug --port 9229 myfile.rebug       Debug with TCP on port 9229
  rebug debug --stdio myfile.rebug           Debug with stdio transport
  rebug debug --stop-on-entry myfile.rebug   Pause at first expression
  rebug debug -i myfile.rebug                Step interactively`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file := args[0]
		text, err := os.ReadFile(file) //#nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		env := script.NewEnv(nil)

		if debugInteractive {
			runInteractive(env, file, string(text))
			return
		}
		runDAP(env, file, string(text))
	},
}

// runInteractive steps the file on the terminal with single-key
// commands.
func runInteractive(env *script.Env, file, text string) {
	val, err := repl.RunNavigator(env, file, text)
	if err != nil {
		if ev := script.ErrorVal(err); ev != nil {
			renderScriptError(env, ev)
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
	if val != nil {
		fmt.Println(val)
	}
}

// runDAP evaluates the file under a stepping engine and serves DAP on
// the configured transport until the client disconnects.
func runDAP(env *script.Env, file, text string) {
	forms, err := env.Runtime.Reader.Read(file, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	env.Runtime.Library.Put(file, text)

	opts := []debugger.EngineOption{debugger.WithLogger(logrus.StandardLogger())}
	if debugStopOnEntry {
		opts = append(opts, debugger.WithStopOnEntry())
	}
	engine := debugger.NewEngine(opts...)
	env.Runtime.Debugger = engine

	scope := env.Child()
	engine.PushRoot(debugger.NewFrameCode(debugger.RootFrameName, debugger.RootFrameName, file, forms), scope)

	store := debugger.NewStore()
	store.Install(env)
	srv := dapserver.New(engine, store)

	// After evaluation finishes, notify the server so it can send the
	// exited and terminated events while the connection is still up.
	evalDone := make(chan *script.Value, 1)
	go func() {
		ret := scope.EvalBody(forms)
		srv.NotifyExited(ret)
		evalDone <- ret
	}()

	if debugStdio {
		logrus.Info("DAP debugger: using stdio transport")
		if err := srv.ServeStdio(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "dap server error: %v\n", err)
		}
	} else {
		addr := fmt.Sprintf("localhost:%d", debugPort)
		logrus.WithField("addr", addr).Info("DAP debugger listening")
		if err := srv.ServeTCP(addr); err != nil {
			fmt.Fprintf(os.Stderr, "dap server error: %v\n", err)
			os.Exit(1)
		}
	}

	ret := <-evalDone
	if ret.Kind == script.KError && ret.Condition() != script.AbortCondition {
		renderScriptError(env, ret)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(debugCmd)

	debugCmd.Flags().IntVar(&debugPort, "port", 4711,
		"TCP port for DAP server (default: 4711)")
	debugCmd.Flags().BoolVar(&debugStdio, "stdio", false,
		"Use stdin/stdout for DAP communication")
	debugCmd.Flags().BoolVar(&debugStopOnEntry, "stop-on-entry", false,
		"Pause execution before the first expression")
	debugCmd.Flags().BoolVarP(&debugInteractive, "interactive", "i", false,
		"Step the file on the terminal instead of serving DAP")
}
