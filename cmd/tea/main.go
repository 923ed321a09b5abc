package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/funvibe/tea/pkg/cli"
)

func main() {
	root := &cobra.Command{
		Use:           "tea",
		Short:         "The Tea language toolchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var envFile string
	runCmd := &cobra.Command{
		Use:   "run <script.tea> [args...]",
		Short: "Compile and execute a Tea script",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("cannot load env file %s: %w", envFile, err)
				}
			}
			os.Exit(cli.Run(args[0], &cli.Options{ScriptArgs: args[1:]}))
			return nil
		},
	}
	runCmd.Flags().StringVar(&envFile, "env-file", "", "load environment variables from a file before running")

	checkCmd := &cobra.Command{
		Use:   "check <script.tea>",
		Short: "Type-check a Tea script without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(cli.Check(args[0], &cli.Options{}))
			return nil
		},
	}

	var updateSnapshots bool
	testCmd := &cobra.Command{
		Use:   "test <script.tea>",
		Short: "Run the script's test blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(cli.Test(args[0], &cli.Options{UpdateSnapshots: updateSnapshots}))
			return nil
		},
	}
	testCmd.Flags().BoolVar(&updateSnapshots, "update", false, "rewrite assertion snapshots")

	disasmCmd := &cobra.Command{
		Use:   "disasm <script.tea>",
		Short: "Print the compiled bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(cli.Disasm(args[0], &cli.Options{}))
			return nil
		},
	}

	root.AddCommand(runCmd, checkCmd, testCmd, disasmCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
