package search

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/anvil/internal/fzf"
	"github.com/Paintersrp/anvil/internal/state"
)

func NewCmdSearch(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "search <query> [path]",
		Aliases: []string{"s", "grep"},
		Short:   "Search a note's blocks for a substring.",
		Long: heredoc.Doc(`
			Search the blocks of a note for a case-insensitive substring and
			print each match with its block index, line, and column. When no
			path is given, the fuzzy picker selects the note to search.
		`),
		Example: "anvil search viewport notes/design.md",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			var path string
			if len(args) == 2 {
				path = args[1]
			} else {
				finder := fzf.NewFinder(s.VaultDir, "Select note to search.")
				selected, err := finder.Run()
				if err != nil {
					return err
				}
				path = selected
			}

			doc, err := s.Vault.Open(path)
			if err != nil {
				return err
			}
			defer s.Vault.Close(doc.ID)

			matches, err := s.Vault.Search(doc.ID, query)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Printf("no matches for %q in %s\n", query, doc.Rel)
				return nil
			}

			for _, m := range matches {
				fmt.Printf("%s: block %d, line %d, col %d: %s\n",
					doc.Rel, m.Index, m.Line, m.Column, m.Excerpt)
			}
			return nil
		},
	}
	return cmd
}
