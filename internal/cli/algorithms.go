package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/engine"
)

// descriptions are one-line summaries shown by the algorithms command and the
// interactive picker, keyed by "category/name".
var descriptions = map[string]string{
	"placement/annealing":              "Metropolis annealing over moves and swaps",
	"placement/genetic":                "Fitness-proportional selection, uniform crossover",
	"placement/force-directed":         "Spring attraction along nets, pairwise repulsion",
	"placement/quadratic":              "Conjugate-gradient solve with anchored spreading",
	"placement/electrostatic":          "Density-gradient descent on quadratic wirelength",
	"placement/nonlinear":              "Smooth wirelength with Nesterov momentum",
	"placement/multilevel":             "Cluster, place the coarse graph, refine",
	"placement/constrained":            "Annealing that respects obstacles and regions",
	"placement/gnn":                    "Neighbor aggregation over the connectivity graph",
	"placement/attention":              "Aggregation weighted by softmax attention",
	"placement/reinforcement":          "Tabular Q-learning over a slot grid",
	"placement/policy-gradient":        "REINFORCE over a softmax of slot preferences",
	"routing/maze":                     "Lee breadth-first expansion per connection",
	"routing/astar":                    "A* search with a Manhattan heuristic",
	"routing/global":                   "L and Z patterns on a coarse congestion map",
	"routing/negotiated":               "Rip-up and reroute with history costs",
	"partitioning/kernighan-lin":       "Pairwise swaps with locked-cell passes",
	"partitioning/fiduccia-mattheyses": "Single moves with gain buckets",
	"partitioning/multilevel":          "Coarsen by matching, bisect, refine",
	"floorplanning/slicing":            "Annealed normalized Polish expressions",
	"floorplanning/sequence-pair":      "Annealed sequence pairs",
}

func describe(a engine.Algorithm) string {
	return descriptions[a.String()]
}

// algorithmsCommand lists every registered strategy.
func (c *CLI) algorithmsCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:     "algorithms",
		Aliases: []string{"algos", "ls"},
		Short:   "List the available strategies",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			algos := engine.Algorithms()
			if category != "" {
				cat, err := engine.ParseCategory(category)
				if err != nil {
					return err
				}
				algos = engine.AlgorithmsFor(cat)
			}
			fmt.Fprintln(stdout, algorithmTable(algos))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only list one category")
	_ = cmd.RegisterFlagCompletionFunc("category", completeCategories)
	return cmd
}

func algorithmTable(algos []engine.Algorithm) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
	rows := make([][]string, len(algos))
	for i, a := range algos {
		rows[i] = []string{string(a.Category), a.Name, describe(a)}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Category", "Algorithm", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return StyleHighlight
			case col == 2:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func completeCategories(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, 0, len(engine.Categories()))
	for _, c := range engine.Categories() {
		out = append(out, string(c))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
