// File: cmd/browse.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/browser"
	"github.com/xkilldash9x/scalpel-nav/internal/input"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
	"github.com/xkilldash9x/scalpel-nav/internal/observability"
	"github.com/xkilldash9x/scalpel-nav/internal/shell"
)

// newBrowseCmd creates the `browse` command, which drives a live page in
// Chrome with commands from stdin or a command file.
func newBrowseCmd() *cobra.Command {
	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Navigates a live web page in Chrome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger().Named("browse")
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			url := cfg.Browser().URL
			if url == "" {
				return errors.New("no page given, use --url or browser.url")
			}
			keys, err := input.ParseKeyMap(cfg.Input().Keys)
			if err != nil {
				return err
			}

			session, err := browser.NewSession(ctx, cfg.Browser(), logger)
			if err != nil {
				return err
			}
			defer session.Close()
			if err := session.Navigate(url); err != nil {
				return err
			}

			loop := shell.NewLoop(logger, loopBuffer)
			page := browser.NewPage(session, loop)
			root, err := page.Root()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			producers, finite := commandProducers(cfg, cmd.InOrStdin(), keys, logger)
			var (
				n      *nav.Navigator[cdp.NodeID]
				source *input.Source[cdp.NodeID]
			)
			opts, err := nav.OptionsFromConfig[cdp.NodeID](cfg.Navigator())
			if err != nil {
				return err
			}
			opts.Observer = page
			opts.Dispatcher = page
			opts.Logger = logger
			opts.Input = input.Factory[cdp.NodeID](input.SourceConfig{
				Poster:    loop,
				Throttle:  input.NewThrottle(cfg.Input().RepeatRate, cfg.Input().RepeatBurst),
				Producers: producers,
				Logger:    logger,
				OnResult: func(c input.Command, changed bool, err error) {
					if err != nil && !errors.Is(err, nav.ErrNoTarget) {
						fmt.Fprintf(out, "%s\terror\t%v\n", c, err)
						return
					}
					focused := "-"
					if el, ok := n.Focused(); ok {
						focused = page.Describe(el)
					}
					fmt.Fprintf(out, "%s\t%t\t%s %s\n", c, changed, focused, n.Position())
				},
			}, func(src *input.Source[cdp.NodeID]) { source = src })

			n, err = nav.New[cdp.NodeID](root, page, page, opts)
			if err != nil {
				return fmt.Errorf("failed to create navigator: %w", err)
			}

			var runnerOpts []shell.Option[cdp.NodeID]
			if finite {
				runnerOpts = append(runnerOpts, shell.StopOn[cdp.NodeID](source.Finished()))
			}
			runner := shell.NewRunner(n, loop, logger, runnerOpts...)
			logger.Info("Navigating live page.", zap.String("url", url), zap.String("session_id", runner.SessionID()))
			return runner.Run(ctx)
		},
	}
	browseCmd.Flags().String("url", "", "page to open")
	browseCmd.Flags().Bool("headless", true, "run Chrome without a window")
	browseCmd.Flags().String("commands", "", "follow this file for commands instead of reading stdin")
	browseCmd.Flags().String("position", "", "initial pointer position as x,y")
	return browseCmd
}
