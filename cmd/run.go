// File: cmd/run.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/input"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
	"github.com/xkilldash9x/scalpel-nav/internal/observability"
	"github.com/xkilldash9x/scalpel-nav/internal/shell"
)

// newRunCmd creates the headless `run` command.
func newRunCmd() *cobra.Command {
	var render bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Navigates a document headlessly with commands from stdin or a command file",
		Long: `Reads navigation commands (left, up, right, down, click, or any key
bound in input.keys), one per line, and applies them to the document. Each
result is printed as: command, whether focus changed, focused element and
pointer position.

With --commands the file is followed like tail -f and the run lasts until
interrupted; otherwise the run ends with stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger().Named("run")
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			keys, err := input.ParseKeyMap(cfg.Input().Keys)
			if err != nil {
				return err
			}
			producers, finite := commandProducers(cfg, cmd.InOrStdin(), keys, logger)
			out := cmd.OutOrStdout()

			var s *docSession
			s, err = newDocSession(cfg, logger, sessionConfig{
				producers: producers,
				onResult: func(c input.Command, changed bool, err error) {
					if err != nil && !errors.Is(err, nav.ErrNoTarget) {
						fmt.Fprintf(out, "%s\terror\t%v\n", c, err)
						return
					}
					fmt.Fprintf(out, "%s\t%t\t%s\n", c, changed, describeFocus(s.nav))
				},
			})
			if err != nil {
				return err
			}

			opts := s.runnerOptions(shell.AfterInit(func(n *nav.Navigator[*html.Node]) {
				fmt.Fprintf(out, "init\t%t\t%s\n", n.Initialized(), describeFocus(n))
			}))
			if finite && !cfg.Document().Watch {
				opts = append(opts, shell.StopOn[*html.Node](s.source.Finished()))
			}

			runner := shell.NewRunner(s.nav, s.loop, logger, opts...)
			if err := runner.Run(ctx); err != nil {
				return err
			}
			if dropped := s.source.Dropped(); dropped > 0 {
				logger.Info("Commands dropped by the repeat limit.", zap.Int64("dropped", dropped))
			}

			if render {
				rendered, err := s.doc.Render()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, rendered)
			}
			return nil
		},
	}

	runCmd.Flags().StringP("document", "d", "", "HTML document to navigate")
	runCmd.Flags().String("commands", "", "follow this file for commands instead of reading stdin")
	runCmd.Flags().Bool("watch", false, "reload the document when it changes on disk")
	runCmd.Flags().String("position", "", "initial pointer position as x,y")
	runCmd.Flags().BoolVar(&render, "render", false, "print the final document")
	return runCmd
}
