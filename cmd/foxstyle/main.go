package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "foxstyle",
	Short: "Customize Firefox with userChrome.css and userContent.css",
	Long: `foxstyle finds local Firefox profiles, turns on custom stylesheet
support in their preference files, and serves a small editor for
userChrome.css and userContent.css.

Run "foxstyle start" to launch the local server, then open
http://127.0.0.1:3000 in a browser.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(userJSCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(handlesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
