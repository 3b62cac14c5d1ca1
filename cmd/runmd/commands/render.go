package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/livetemplate/runmd"
	"github.com/livetemplate/runmd/internal/config"
	"github.com/livetemplate/runmd/internal/logging"
	"github.com/livetemplate/runmd/internal/preview"
	"github.com/livetemplate/runmd/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// renderOptions holds the render flags. Flags override config file values
// only when set on the command line.
type renderOptions struct {
	output     string
	html       string
	configPath string
	timeout    string
	watch      bool
	lame       bool
	inline     bool
	debug      bool
}

func (o *renderOptions) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.output, "output", "o", "", "write to this .md file instead of stdout")
	fs.StringVar(&o.html, "html", "", "also write an HTML preview to this .html file")
	fs.StringVarP(&o.configPath, "config", "c", "", "config file (default: runmd.yaml or runmd.toml next to the input)")
	fs.StringVar(&o.timeout, "timeout", "", "abort a render that takes longer than this (e.g. 30s)")
	fs.BoolVarP(&o.watch, "watch", "w", false, "re-render whenever the input changes (requires --output)")
	fs.BoolVar(&o.lame, "lame", false, "omit the \"Page rendered by\" footer")
	fs.BoolVar(&o.inline, "inline", false, "place output inside the code fence instead of below it")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
}

func newRenderCommand() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <input.md>",
		Short: "Render a markdown file (default command)",
		Example: `  runmd render README_src.md                     # Render to stdout
  runmd render README_src.md -o README.md        # Render to a file
  runmd render README_src.md -o README.md -w     # Re-render on every change`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}
	opts.bind(cmd.Flags())
	return cmd
}

// loadConfig merges the config file with the command-line flags and
// validates the result before anything is rendered.
func loadConfig(cmd *cobra.Command, args []string, o *renderOptions) (*config.Config, error) {
	if len(args) != 1 {
		return nil, config.DefaultConfig().Validate(args)
	}

	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadFromDir(filepath.Dir(args[0]))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = o.output
	}
	if flags.Changed("html") {
		cfg.HTML = o.html
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("watch") {
		cfg.Watch.Enabled = o.watch
	}
	if flags.Changed("lame") {
		cfg.Lame = o.lame
	}
	if flags.Changed("inline") {
		cfg.Placement = string(runmd.PlacementAfter)
		if o.inline {
			cfg.Placement = string(runmd.PlacementInline)
		}
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}

	if err := cfg.Validate(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRender(cmd *cobra.Command, args []string, o *renderOptions) error {
	cfg, err := loadConfig(cmd, args, o)
	if err != nil {
		return err
	}

	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	input := args[0]
	r, err := runmd.NewRenderer(input, cfg.Output)
	if err != nil {
		return err
	}
	r.Lame = cfg.Lame
	r.Placement = runmd.Placement(cfg.Placement)
	r.Logger = logger
	r.Stdout = cmd.OutOrStdout()

	render := func(ctx context.Context) error {
		if d := cfg.GetTimeout(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		start := time.Now()
		text, err := r.Render(ctx)
		if err != nil {
			return err
		}

		if cfg.HTML != "" {
			if err := preview.WriteFile(cfg.HTML, filepath.Base(input), []byte(text)); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("Rendered "+input))
		logger.Debug().Dur("elapsed", time.Since(start)).Str("output", cfg.Output).Msg("render complete")
		return nil
	}

	if !cfg.Watch.Enabled {
		return render(cmd.Context())
	}

	w, err := watch.New(r.InputFile, cfg.Watch.GetInterval(), render, logger)
	if err != nil {
		return fmt.Errorf("failed to enable watch mode: %w", err)
	}
	defer w.Close()

	logger.Info().Str("input", input).Dur("interval", cfg.Watch.GetInterval()).Msg("watching for changes")
	return w.Run(cmd.Context())
}
