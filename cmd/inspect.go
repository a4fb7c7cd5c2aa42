// File: cmd/inspect.go
package cmd

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/observability"
	"github.com/xkilldash9x/scalpel-nav/internal/tui"
)

// newInspectCmd creates the `inspect` command, which prints what the
// navigator sees right after Init.
func newInspectCmd() *cobra.Command {
	var asJSON bool
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Lists the areas and selectable elements of a document with their boxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger().Named("inspect")
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			s, err := newDocSession(cfg, logger, sessionConfig{})
			if err != nil {
				return err
			}
			defer s.nav.Clear()

			// Nothing else runs, so the navigator is used directly.
			if err := s.nav.Init(); err != nil {
				return fmt.Errorf("failed to initialize navigator: %w", err)
			}
			snap := tui.Capture[*html.Node](s.nav, s.doc, s.doc)

			if asJSON {
				enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			return writeSnapshot(cmd.OutOrStdout(), snap)
		},
	}
	inspectCmd.Flags().StringP("document", "d", "", "HTML document to inspect")
	inspectCmd.Flags().String("position", "", "initial pointer position as x,y")
	inspectCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return inspectCmd
}

func formatRect(r geometry.Rect) string {
	return fmt.Sprintf("%g,%g %gx%g", r.Left, r.Top, r.Width, r.Height)
}

func writeSnapshot(w io.Writer, snap tui.Snapshot) error {
	if _, err := fmt.Fprintf(w, "state %s, focus %s at %s\n", snap.State, orNone(snap.Focused), snap.Position); err != nil {
		return err
	}
	for _, a := range snap.Areas {
		mark := ""
		if a.Current {
			mark = " current"
		}
		fmt.Fprintf(w, "area %s [%s]%s\n", a.Label, formatRect(a.Rect), mark)
	}
	for _, it := range snap.Selectables {
		mark := ""
		if it.Focused {
			mark = " focused"
		}
		fmt.Fprintf(w, "  %s [%s]%s\n", it.Label, formatRect(it.Rect), mark)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
