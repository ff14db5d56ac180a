package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// main wires the CLI. serve runs the intake API; the remaining commands
// expose the stateless pipeline stages for scripting.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "solarintake",
		Short:         "Address resolution and geodetic pipeline for solar project intake",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newServeCmd(v, &cfgFile),
		newProjectCmd(),
		newMaskCmd(),
		newPowerCmd(),
	)
	return root
}
