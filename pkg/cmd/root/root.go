package root

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/anvil/internal/fzf"
	"github.com/Paintersrp/anvil/internal/state"
	"github.com/Paintersrp/anvil/internal/tui/editor"
	"github.com/Paintersrp/anvil/pkg/cmd/edit"
	"github.com/Paintersrp/anvil/pkg/cmd/initialize"
	"github.com/Paintersrp/anvil/pkg/cmd/search"
	"github.com/Paintersrp/anvil/pkg/cmd/stats"
)

func NewCmdRoot(s *state.State) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "anvil",
		Short: "A windowed block editor for markdown notes.",
		Long: heredoc.Doc(`
			Anvil keeps large markdown notes fast by only materializing the
			blocks near the viewport. Run with no arguments to pick a note
			with the fuzzy finder and open it in the editor.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			finder := fzf.NewFinder(s.VaultDir, "Select note to edit.")
			path, err := finder.Run()
			if err != nil {
				return err
			}
			return editor.Run(s, path)
		},
	}

	cmd.AddCommand(
		initialize.NewCmdInit(),
		edit.NewCmdEdit(s),
		search.NewCmdSearch(s),
		stats.NewCmdStats(s),
	)

	return cmd, nil
}
