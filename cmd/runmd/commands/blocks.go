package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/livetemplate/runmd"
	"github.com/spf13/cobra"
)

func newBlocksCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "blocks <input.md>",
		Short: "List the executable blocks of a file without running them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			printBlocks(cmd.OutOrStdout(), args[0], runmd.ScanBlocks(string(content)), verbose)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print block sources")
	return cmd
}

func printBlocks(w io.Writer, name string, blocks []*runmd.Block, verbose bool) {
	if len(blocks) == 0 {
		fmt.Fprintf(w, "No executable blocks in %s.\n", name)
		return
	}

	fmt.Fprintf(w, "%-6s %-16s %-5s %s\n", "LINE", "CONTEXT", "HIDE", "FLAGS")
	for _, b := range blocks {
		ctx := b.Directive.Context
		if ctx == "" {
			ctx = "-"
		}
		hide := "no"
		if b.Directive.Hide {
			hide = "yes"
		}

		line := fmt.Sprintf("%-6s %-16s %-5s %s", strconv.Itoa(b.Line), ctx, hide, formatFlags(b.Directive.Flags))
		if !b.Closed {
			line += " (unclosed)"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))

		if verbose {
			for _, src := range strings.Split(b.Source, "\n") {
				fmt.Fprintf(w, "       | %s\n", src)
			}
		}
	}

	fmt.Fprintf(w, "\n%d executable block(s) in %s\n", len(blocks), name)
}

func formatFlags(flags map[string]string) string {
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		if flags[k] == "true" {
			parts[i] = "--" + k
		} else {
			parts[i] = "--" + k + "=" + flags[k]
		}
	}
	return strings.Join(parts, " ")
}
