package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/sitepipe/internal/dag"
	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/pipeline"
)

func newGraphCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "graph [<task>...]",
		Short: "Print the validated task graph",
		Long: `Print the validated task graph, or the part of it the given tasks need.

Example:
  sitepipe graph
  sitepipe graph --format dot build | dot -Tsvg > graph.svg
  sitepipe graph --format json --output graph.json default`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "dot":
			default:
				return buildErrors.NewInvalidConfigError("format", format, "must be one of text, json, dot")
			}

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			runner, err := pipeline.NewRunner(cfg, pipeline.Deps{})
			if err != nil {
				return err
			}
			graph := runner.Graph()
			if len(args) > 0 {
				if graph, err = runner.Subgraph(args...); err != nil {
					return err
				}
			}
			vis := dag.NewDAGVisualization(graph)

			if output != "" {
				switch format {
				case "json":
					err = vis.ExportToJSON(output)
				case "dot":
					err = vis.ExportToDOT(output)
				default:
					return buildErrors.NewInvalidConfigError("output", output, "--output needs --format json or dot")
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", output)
				return nil
			}

			var text string
			switch format {
			case "json":
				var data []byte
				data, err = vis.GenerateJSON()
				text = string(data) + "\n"
			case "dot":
				text, err = vis.GenerateDOTGraph()
			default:
				text, err = vis.GenerateTextSummary()
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the graph to a file instead of stdout")
	return cmd
}
