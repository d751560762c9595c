package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/root4loot/chutie/pkg/browser"
	"github.com/root4loot/chutie/pkg/chutie"
	"github.com/root4loot/chutie/pkg/config"
	"github.com/root4loot/chutie/pkg/report"
	"github.com/root4loot/chutie/pkg/viewport"
	"github.com/root4loot/goutils/log"
	"github.com/spf13/cobra"
)

type screenshotsOptions struct {
	URLs         []string
	Viewports    []string
	Configs      []string
	DestPath     string
	Output       string
	TemplateName string
	TemplateDir  string
	Engine       string
	Bin          string
	Headful      bool
	NoSandbox    bool
	Stealth      bool
	Imprint      bool
	PingInterval time.Duration
	PingTimeout  time.Duration
}

type templateOptions struct {
	JSONPath     string
	TemplateName string
	TemplateDir  string
	Output       string
}

func (c *cli) rootCmd() *cobra.Command {
	var verbose, silence bool

	root := &cobra.Command{
		Use:     "chutie",
		Version: version,
		Short:   "Take page screenshots in various viewports and render them into an HTML gallery",
		Long: `chutie takes screenshots of web pages in several viewports, writes them to
disk together with a chutie.json describing every capture, and renders an HTML
gallery from that JSON through a template.

Commands:
  screenshots  capture URLs and render the gallery
  template     render a gallery from an existing chutie.json

Author: ` + author,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &UsageError{Msg: fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel(verbose, silence)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&silence, "silence", "s", false, "silence output (saved screenshot lines are still printed)")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Msg: err.Error()}
	})

	root.AddCommand(c.screenshotsCmd(), c.templateCmd())
	return root
}

func (c *cli) screenshotsCmd() *cobra.Command {
	opts := &screenshotsOptions{}
	defaults := config.Defaults()
	browserDefaults := browser.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "screenshots",
		Short: "Take screenshots of URLs in every viewport",
		Long: `Take screenshots of the URLs with the given viewport strings,
save them to dest-path, and write a chutie.json and an index.html.

Each URL is captured twice per viewport: once clipped to the viewport and once
as a full page. URLs and viewports from config files come first, followed by
those given as flags.`,
		Example: `  chutie screenshots -u https://example.com -r 1024x768 -r "375x667 mobile iphone"
  chutie screenshots -c site.yaml -o ./shots --dest-html gallery.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.screenshots(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.URLs, "url", "u", nil, "URL to take screenshots of (repeatable)")
	f.StringArrayVarP(&opts.Viewports, "viewports", "r", nil, `viewport string, e.g. "1024x768 mobile landscape devname7" (repeatable)`)
	f.StringArrayVarP(&opts.Configs, "config", "c", nil, "path to a .json, .yaml or .yml config file (repeatable)")
	f.StringVarP(&opts.DestPath, "dest-path", "o", defaults.DestPath, "directory to write images and JSON metadata into")
	f.StringVar(&opts.Output, "dest-html", defaults.Output, "name of the HTML file to render into")
	f.StringVarP(&opts.TemplateName, "template", "t", "", "template name or path (default: bundled "+report.DefaultTemplate+")")
	f.StringVar(&opts.TemplateDir, "template-dir", ".", "directory searched for templates before the bundled ones")
	f.StringVar(&opts.Engine, "engine", string(browserDefaults.Engine), "browser engine: rod or chromedp")
	f.StringVar(&opts.Bin, "bin", "", "path to the browser binary (default: look up)")
	f.BoolVar(&opts.Headful, "headful", !browserDefaults.Headless, "show the browser window")
	f.BoolVar(&opts.NoSandbox, "no-sandbox", browserDefaults.NoSandbox, "disable the browser sandbox")
	f.BoolVar(&opts.Stealth, "stealth", browserDefaults.Stealth, "hide automation fingerprints (rod only)")
	f.BoolVar(&opts.Imprint, "imprint", false, "add the URL and viewport below each image")
	f.DurationVar(&opts.PingInterval, "ping-interval", browserDefaults.KeepAlive.Interval, "websocket ping interval to the browser (0 disables)")
	f.DurationVar(&opts.PingTimeout, "ping-timeout", browserDefaults.KeepAlive.Timeout, "websocket ping timeout (0 waits forever)")

	return cmd
}

func (c *cli) screenshots(cmd *cobra.Command, opts *screenshotsOptions) error {
	if !((len(opts.URLs) > 0 && len(opts.Viewports) > 0) || len(opts.Configs) > 0) {
		return &UsageError{Msg: "You must specify urls, viewports, or a config file."}
	}

	engine, err := browser.ParseEngine(opts.Engine)
	if err != nil {
		return &UsageError{Msg: err.Error()}
	}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	log.Debugf("Resolved config: %+v", cfg)

	specs, err := viewport.ParseAll(cfg.Viewports)
	if err != nil {
		return err
	}
	if len(cfg.URLs) == 0 || len(specs) == 0 {
		log.Warnf("Nothing to capture: %d url(s), %d viewport(s)", len(cfg.URLs), len(specs))
	}

	if err := config.CopyInto(cfg.DestPath, opts.Configs); err != nil {
		return err
	}

	session, err := c.capture(cmd.Context(), browser.Options{
		Engine:    engine,
		Bin:       opts.Bin,
		Headless:  !opts.Headful,
		NoSandbox: opts.NoSandbox,
		Stealth:   opts.Stealth,
		KeepAlive: browser.KeepAlive{Interval: opts.PingInterval, Timeout: opts.PingTimeout},
	}, cfg.URLs, specs, cfg.DestPath, opts.Imprint)
	if err != nil {
		return err
	}

	if err := chutie.WriteJSON(filepath.Join(cfg.DestPath, chutie.MetadataFile), session); err != nil {
		return err
	}

	outputPath := cfg.Output
	if !strings.ContainsRune(outputPath, filepath.Separator) {
		outputPath = filepath.Join(cfg.DestPath, outputPath)
	}
	if err := report.New(opts.TemplateDir).RenderFile(outputPath, opts.TemplateName, session); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully rendered to %s.\n", outputPath)
	return nil
}

// resolveConfig merges defaults, config files in argument order, and the
// flags that were set explicitly.
func resolveConfig(cmd *cobra.Command, opts *screenshotsOptions) (config.Config, error) {
	files, err := config.LoadAll(opts.Configs)
	if err != nil {
		return config.Config{}, err
	}

	fromFlags := config.Config{URLs: opts.URLs, Viewports: opts.Viewports}
	if cmd.Flags().Changed("dest-path") {
		fromFlags.DestPath = opts.DestPath
	}
	if cmd.Flags().Changed("dest-html") {
		fromFlags.Output = opts.Output
	}

	parts := append([]config.Config{config.Defaults()}, files...)
	return config.Merge(append(parts, fromFlags)...), nil
}

func (c *cli) capture(ctx context.Context, opts browser.Options, urls []string, specs []viewport.Spec, dest string, imprint bool) (*chutie.Session, error) {
	b, err := c.launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Debugf("Could not close browser: %v", err)
		}
	}()

	capturer := chutie.NewCapturer(
		chutie.WithObserver(logObserver{}),
		chutie.WithImprint(imprint),
	)
	return capturer.Capture(ctx, b, urls, specs, dest)
}

func (c *cli) templateCmd() *cobra.Command {
	opts := &templateOptions{}

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Render an HTML gallery from a chutie.json",
		Long:  "Generate an index.html from a chutie.json and a template, without taking screenshots.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := chutie.ReadJSON(opts.JSONPath)
			if err != nil {
				return err
			}
			if err := report.New(opts.TemplateDir).RenderFile(opts.Output, opts.TemplateName, session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully rendered to %s.\n", opts.Output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.JSONPath, "jsonpath", "f", chutie.MetadataFile, "path to a chutie.json file to template")
	f.StringVarP(&opts.TemplateName, "template", "t", "", "template name or path (default: bundled "+report.DefaultTemplate+")")
	f.StringVar(&opts.TemplateDir, "template-dir", ".", "directory searched for templates before the bundled ones")
	f.StringVarP(&opts.Output, "output", "o", "index.html", "file to write the rendered template to")

	return cmd
}
