package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pe-finder/internal/domain"
	"github.com/pe-finder/internal/lexicon"
)

func newLexiconCmd(a *app) *cobra.Command {
	lexiconCmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Inspect the target and modifier lexicons",
	}

	var modeName, path string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "List the lexicon items of each analysis mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = a.manager.GetConfig().Lexicon.Path
			}
			lex, err := lexicon.Load(path)
			if err != nil {
				return err
			}

			modes := domain.Modes()
			if modeName != "" {
				mode, err := domain.ParseMode(modeName)
				if err != nil {
					return err
				}
				modes = []domain.Mode{mode}
			}

			out := cmd.OutOrStdout()
			for _, mode := range modes {
				ml, err := lex.For(mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d targets, %d modifiers\n", mode, len(ml.Targets), len(ml.Modifiers))

				tw := tablewriter.NewWriter(out)
				tw.SetHeader([]string{"Kind", "Literal", "Category", "Rule"})
				for _, item := range ml.Targets {
					tw.Append([]string{"target", item.Literal, item.Category, ""})
				}
				for _, item := range ml.Modifiers {
					tw.Append([]string{"modifier", item.Literal, item.Category, string(item.Rule.Effective())})
				}
				tw.Render()
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	showCmd.Flags().StringVar(&modeName, "mode", "", "only show one mode: disease, quality, quality2")
	showCmd.Flags().StringVar(&path, "file", "", "lexicon YAML file (default: configured or built-in lexicon)")

	lexiconCmd.AddCommand(showCmd)
	return lexiconCmd
}
