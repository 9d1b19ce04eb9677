package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "goply",
	Short: "Build LALR(1) parsing tables from a grammar description",
	Long: `goply provides two features:
- Builds the LALR(1) parsing tables from a grammar description and reports
  its conflicts.
- Renders a table report in a readable format, the parser.out analogue.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}
