package edit

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/anvil/internal/state"
	"github.com/Paintersrp/anvil/internal/tui/editor"
)

func NewCmdEdit(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit [path]",
		Aliases: []string{"e"},
		Short:   "Open a note in the windowed editor.",
		Long: heredoc.Doc(`
			Open a markdown note in the block editor. The path may be absolute
			or relative to the vault directory. Only the blocks near the
			viewport are materialized, so large notes stay responsive.
		`),
		Example: "anvil edit notes/inbox.md",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editor.Run(s, args[0])
		},
	}
	return cmd
}
