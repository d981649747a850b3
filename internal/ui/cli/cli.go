package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"virtualmod/internal/shared/version"

	"github.com/spf13/cobra"
)

const (
	exitOK         = 0
	exitViolations = 1
	exitError      = 2
)

type globalOptions struct {
	configPath string
	envFiles   []string
	verbose    bool
}

// exitCodeError carries a process exit code out of a command without
// printing anything further.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Run executes the CLI with args and returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr, coreAnalysisFactory)
}

func run(args []string, stdout, stderr io.Writer, factory analysisFactory) int {
	root := newRootCommand(factory)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var coded *exitCodeError
	if errors.As(err, &coded) {
		return coded.code
	}
	fmt.Fprintln(stderr, "error:", err)
	return exitError
}

func newRootCommand(factory analysisFactory) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "virtualmod",
		Short: "Enforce virtual module import boundaries in JS/TS projects",
		Long: `virtualmod treats every directory holding a barrel file (index.ts) as a
virtual module and reports imports that cross module boundaries:

  indexImport          a file imports the barrel of its own module
  parentModuleImport   a file imports the barrel of a module that contains it
  privateModuleImport  a file reaches past another module's barrel`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./"+defaultConfigName+" when present)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Dotenv files loaded before the config (default .env)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newCheckCommand(opts, factory))
	cmd.AddCommand(newWatchCommand(opts, factory))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newLanguagesCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "virtualmod v%s\n", version.Version)
			return nil
		},
	}
}
