package main

import (
	"github.com/spf13/cobra"

	"go-resume-watch/internal/config"
)

const appName = "resumewatch"

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Watch a resume search page and report new listings",
		Long:          `Fetches one page of resume search results, remembers every listing it has seen, and reports the new ones to a file and a Telegram chat.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	root.AddCommand(newRunCmd(), newServeCmd())
	return root
}
