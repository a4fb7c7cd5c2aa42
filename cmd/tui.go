// File: cmd/tui.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/input"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
	"github.com/xkilldash9x/scalpel-nav/internal/observability"
	"github.com/xkilldash9x/scalpel-nav/internal/shell"
	"github.com/xkilldash9x/scalpel-nav/internal/tui"
)

// newTUICmd creates the interactive `tui` command.
func newTUICmd() *cobra.Command {
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Navigates a document interactively in the terminal",
		Args:  cobra.NoArgs,
		// The terminal belongs to the UI, so logs go to the log file only.
		Annotations: map[string]string{annotationFileLog: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger().Named("tui")
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), cfg.Input().Keys, func(cmds <-chan input.Command, onResult input.ResultFunc) (*docSession, error) {
				return newDocSession(cfg, logger, sessionConfig{
					producers: []input.Producer{input.ChanSource{C: cmds}},
					onResult:  onResult,
				})
			}, logger, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		},
	}
	tuiCmd.Flags().StringP("document", "d", "", "HTML document to navigate")
	tuiCmd.Flags().Bool("watch", false, "reload the document when it changes on disk")
	tuiCmd.Flags().String("position", "", "initial pointer position as x,y")
	return tuiCmd
}

type sessionBuilder func(cmds <-chan input.Command, onResult input.ResultFunc) (*docSession, error)

// runTUI runs the navigator on its loop and the bubbletea program on the
// calling goroutine. Snapshots are captured on the loop and sent to the
// program; key presses travel back as commands.
func runTUI(ctx context.Context, keyNames map[string]string, build sessionBuilder, logger *zap.Logger, opts ...tea.ProgramOption) error {
	keys, err := input.ParseKeyMap(keyNames)
	if err != nil {
		return err
	}
	cmds := make(chan input.Command, 16)

	var (
		s       *docSession
		program *tea.Program
	)
	snapshot := func() tea.Msg {
		return tui.SnapshotMsg{Snapshot: tui.Capture[*html.Node](s.nav, s.doc, s.doc)}
	}

	s, err = build(cmds, func(c input.Command, changed bool, err error) {
		program.Send(tui.ResultMsg{Command: c, Changed: changed, Err: err})
		program.Send(snapshot())
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reload func()
	if s.watcher != nil {
		s.watcher.OnReload(func(err error) {
			program.Send(tui.ReloadedMsg{Err: err})
			program.Send(snapshot())
		})
		reload = func() {
			if err := s.watcher.Reload(runCtx); err != nil {
				program.Send(tui.ReloadedMsg{Err: err})
			}
		}
	}

	program = tea.NewProgram(tui.NewModel(keys, cmds, reload), opts...)
	runner := shell.NewRunner(s.nav, s.loop, logger, s.runnerOptions(
		shell.AfterInit(func(*nav.Navigator[*html.Node]) { program.Send(snapshot()) }),
	)...)

	done := make(chan error, 1)
	go func() { done <- runner.Run(runCtx) }()

	_, uiErr := program.Run()
	cancel()
	runErr := <-done

	if errors.Is(uiErr, tea.ErrProgramKilled) || errors.Is(uiErr, context.Canceled) {
		uiErr = nil
	}
	if uiErr != nil {
		return fmt.Errorf("terminal UI failed: %w", uiErr)
	}
	return runErr
}
