// Package cmd holds the huddle command line.
package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "huddle",
		Short:         "Health Huddle: a team of specialists discusses your symptoms",
		Long:          "huddle runs a consultation in which four specialist perspectives discuss a case in turn, ask follow-up questions and agree on an urgency level. It serves the consultation over HTTP or runs it in the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./huddle.yaml when present)")

	load := func() (*app, error) { return wireApp(configPath) }

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(load),
		newConsultCmd(load),
		newCheckCmd(load),
	)

	return rootCmd
}
