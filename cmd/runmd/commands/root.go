// Package commands implements the runmd command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/livetemplate/runmd"
	"github.com/livetemplate/runmd/internal/config"
	"github.com/spf13/cobra"
)

// Version is the runmd version, set at build time.
var Version = "0.1.0-dev"

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run runs the CLI with the given arguments and streams.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

// NewRootCommand builds the runmd command tree. The root command renders,
// so "runmd README.md" and "runmd render README.md" are equivalent.
func NewRootCommand() *cobra.Command {
	opts := &renderOptions{}
	root := &cobra.Command{
		Use:   "runmd <input.md>",
		Short: "Render markdown with the real output of its javascript blocks",
		Long: titleStyle.Render("runmd") + `

Runs every "` + "```javascript --flags" + `" block of a markdown file and splices
its console output into the page.

Block flags:
  --run             Mark a block as executable without other options
  --hide            Hide the block source, keep its output
  --context=NAME    Share variables with other blocks of the same context

` + dimStyle.Render("Use 'runmd [command] --help' for more information."),
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}
	opts.bind(root.Flags())

	root.AddCommand(
		newRenderCommand(),
		newBlocksCommand(),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "runmd version %s\n", Version)
		},
	}
}

func printError(w io.Writer, err error) {
	var execErr *runmd.ExecError
	var cfgErr *config.ValidationError

	switch {
	case errors.As(err, &execErr):
		fmt.Fprint(w, execErr.Format())
	case errors.As(err, &cfgErr):
		fmt.Fprintln(w, errorStyle.Render("Error: "+cfgErr.Error()))
		fmt.Fprintln(w, dimStyle.Render("Run 'runmd --help' for usage."))
	default:
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
	}
}
