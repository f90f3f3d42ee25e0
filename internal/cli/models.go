package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/engine"
)

func (c *CLI) modelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "model",
		Aliases: []string{"models"},
		Short:   "Manage trained placement models",
		Long: `Manage the slot models trained by the reinforcement and policy-gradient
placement strategies.

A learning run stores its table under the name given by -p model=NAME, or
under the algorithm name. Running the strategy again with -p episodes=0
replays the stored model greedily instead of training.`,
	}
	cmd.AddCommand(c.modelListCommand(), c.modelDeleteCommand())
	return cmd
}

func (c *CLI) modelListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := c.newRunner(cmd.Context(), false)
			defer r.Close()
			infos, err := r.Models.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("No stored models")
				return nil
			}
			fmt.Fprintln(stdout, modelTable(infos))
			return nil
		},
	}
}

func (c *CLI) modelDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME...",
		Aliases: []string{"rm"},
		Short:   "Delete stored models",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := c.newRunner(cmd.Context(), false)
			defer r.Close()
			for _, name := range args {
				if err := r.Models.Delete(cmd.Context(), name); err != nil {
					return err
				}
				printSuccess("Deleted model %s", name)
			}
			return nil
		},
	}
}

func modelTable(infos []engine.ModelInfo) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
	rows := make([][]string, len(infos))
	for i, m := range infos {
		rows[i] = []string{
			m.Name,
			m.Algorithm,
			fmt.Sprintf("%d×%d", m.SlotGrid, m.SlotGrid),
			strconv.Itoa(m.Steps),
			strconv.Itoa(m.Episodes),
			m.SavedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Name", "Algorithm", "Grid", "Cells", "Episodes", "Saved").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleHighlight
			case col == 5:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
