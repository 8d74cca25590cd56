// Copyright © 2024 The rebug authors

package cmd

import (
	"fmt"

	"github.com/luthersystems/rebug/docs"
	"github.com/spf13/cobra"
)

// guideCmd represents the guide command
var guideCmd = &cobra.Command{
	Use:       "guide [lang|debugging]",
	Short:     "Print the built-in guides",
	Long:      `Print the language guide or the debugging guide to stdout.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"lang", "debugging"},
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := "debugging"
		if len(args) > 0 {
			topic = args[0]
		}
		switch topic {
		case "lang":
			fmt.Print(docs.LangGuide)
		case "debugging":
			fmt.Print(docs.DebuggingGuide)
		default:
			return fmt.Errorf("unknown guide %q", topic)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
}
