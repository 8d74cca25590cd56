// Copyright © 2024 The rebug authors

package cmd

import (
	"fmt"
	"os"

	"github.com/luthersystems/rebug/debugger"
	"github.com/luthersystems/rebug/script"
	"github.com/spf13/cobra"
)

var stashCursor int

// stashCmd represents the stash command
var stashCmd = &cobra.Command{
	Use:   "stash [flags] file.rebug",
	Short: "Capture a call's bindings and print a replacement expression",
	Long: `Evaluate a source file under a trap that intercepts the call at the
cursor after its arguments are bound, without running its body.  The
resolved bindings are stored under a fresh session identifier and a
replacement expression wrapping the callee's body is printed, ready to
be pasted into an editing buffer and re-evaluated.

The cursor is a byte offset into the file and must fall inside a call
expression.  Without --cursor the last top-level form is captured.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file := args[0]
		text, err := os.ReadFile(file) //#nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

		env := script.NewEnv(nil)
		store := debugger.NewStore()
		store.Install(env)

		cursor := stashCursor
		if cursor == 0 {
			cursor, err = lastFormCursor(env, file, string(text))
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
		}

		captured, err := debugger.CaptureAt(env, store, file, string(text), cursor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("session %s captured from %s\n", captured.Set.ID, captured.Set.FuncName)
		for _, b := range captured.Set.Bindings {
			fmt.Printf("  %-20s = %s\n", b.Name, debugger.FormatValue(b.Value))
		}
		fmt.Println(captured.Replacement)
	},
}

// lastFormCursor returns a cursor just inside the file's last top-level
// form.
func lastFormCursor(env *script.Env, file, text string) (int, error) {
	forms, err := env.Runtime.Reader.Read(file, text)
	if err != nil {
		return 0, err
	}
	if len(forms) == 0 {
		return 0, fmt.Errorf("%s: no forms to capture", file)
	}
	last := forms[len(forms)-1]
	if last.Source == nil {
		return 0, fmt.Errorf("%s: last form has no source position", file)
	}
	return last.Source.Pos + 1, nil
}

func init() {
	rootCmd.AddCommand(stashCmd)

	stashCmd.Flags().IntVar(&stashCursor, "cursor", 0,
		"Byte offset of the call to capture (default: last top-level form)")
}
