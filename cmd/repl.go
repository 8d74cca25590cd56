// Copyright © 2024 The rebug authors

package cmd

import (
	"os"
	"path/filepath"

	"github.com/luthersystems/rebug/repl"
	"github.com/spf13/cobra"
)

// replCmd represents the repl command
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive REPL",
	Long: `Start an interactive read-eval-print loop.

Line editing and in-session command history are supported via readline.
Use Ctrl-D to exit.

Beyond plain evaluation the REPL exposes the capture surface:
  rebug> (defun f (x &optional (y 1)) (+ x y))
  ()
  rebug> :stash (f 3)
  session 1b4e... captured from f
    x                    = 3
    y                    = 1
  (let ((x (rebug-binding "1b4e..." 'x)) (y (rebug-binding "1b4e..." 'y)))
    (+ x y))
  rebug> :debug (f 3)
  ...single-key stepping...

Use :help for the full command list.`,
	Run: func(cmd *cobra.Command, args []string) {
		repl.RunRepl(filepath.Base(os.Args[0]) + "> ")
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
