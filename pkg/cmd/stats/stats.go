package stats

import (
	"fmt"
	"sort"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/fzf"
	"github.com/Paintersrp/anvil/internal/state"
)

func NewCmdStats(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats [path]",
		Aliases: []string{"st"},
		Short:   "Show block statistics for a note.",
		Long: heredoc.Doc(`
			Print the block breakdown of a note: counts per block type, total
			lines and characters, and how many blocks carry a measured height
			from previous editing sessions.
		`),
		Example: "anvil stats notes/design.md",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				finder := fzf.NewFinder(s.VaultDir, "Select note for stats.")
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

			byType := make(map[block.Type]int)
			lines, chars := 0, 0
			for _, m := range doc.Metas {
				byType[m.Type]++
				lines += m.Lines
				chars += m.Chars
			}

			fmt.Printf("%s: %d blocks, %d lines, %d chars\n",
				doc.Rel, len(doc.Metas), lines, chars)

			types := make([]string, 0, len(byType))
			for t := range byType {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("  %-10s %d\n", t, byType[block.Type(t)])
			}

			if len(doc.Heights) > 0 {
				fmt.Printf("  measured heights cached: %d\n", len(doc.Heights))
			}
			return nil
		},
	}
	return cmd
}
