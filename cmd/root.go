// Copyright © 2024 The rebug authors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	colorFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rebug",
	Short: "rebug — a capturing, stepping script debugger",
	Long: `rebug runs a small lisp dialect under a debugger that can capture a
call's resolved argument bindings and replay the callee's body against
them, step through evaluation frame by frame, and serve editors over
the Debug Adapter Protocol.

Getting started:
  rebug run file.rebug          Run a source file
  rebug run -e '(+ 1 2)'        Evaluate an expression
  rebug repl                    Start an interactive REPL
  rebug stash file.rebug        Capture the bindings of the last call
  rebug debug file.rebug        Serve a DAP debugger for the file
  rebug debug -i file.rebug     Step through the file interactively

Inside the REPL, :stash captures a call's bindings under a session id
and prints a replacement expression that rebinds them around the
callee's body, so the body can be re-evaluated and edited in place.
:stack does the same for every level of a faulting call chain.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rebug.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".rebug" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".rebug")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
