package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BartekS5/fastinsert/internal/config"
	"github.com/BartekS5/fastinsert/internal/etl"
	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/models"
)

// Plan is the compiled form of a mapping file as printed by the plan command.
type Plan struct {
	Table     string       `json:"table" yaml:"table"`
	BatchSize int          `json:"batchSize" yaml:"batchSize"`
	Columns   []PlanColumn `json:"columns" yaml:"columns"`
}

type PlanColumn struct {
	Index  int    `json:"index" yaml:"index"`
	Field  string `json:"field" yaml:"field"`
	Column string `json:"column" yaml:"column"`
}

func newPlan(cfg *bulk.WriteConfig[models.Row]) Plan {
	p := Plan{Table: cfg.Table, BatchSize: cfg.BatchSize}
	for _, m := range cfg.Mapping {
		p.Columns = append(p.Columns, PlanColumn{Index: m.Index, Field: m.Field, Column: m.Column})
	}
	return p
}

func NewPlanCmd() *cobra.Command {
	var mappingFile, format string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compile a mapping file and print the resulting table, batch size and columns",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			schema, err := config.LoadMapping(mappingFile)
			if err != nil {
				return err
			}
			cfg, err := etl.CompileSchema(schema, batchSize)
			if err != nil {
				return fmt.Errorf("invalid mapping '%s': %w", mappingFile, err)
			}
			return writePlan(c.OutOrStdout(), newPlan(cfg), format)
		},
	}

	cmd.Flags().StringVarP(&mappingFile, "mapping", "m", "configs/mapping.json", "Path to mapping file (json or yaml)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Rows per batch, overrides the mapping file")
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, json or yaml")

	return cmd
}

func writePlan(w io.Writer, p Plan, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(p)
	case "text", "":
		fmt.Fprintf(w, "table:      %s\n", p.Table)
		fmt.Fprintf(w, "batch size: %d\n", p.BatchSize)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tFIELD\tCOLUMN")
		for _, c := range p.Columns {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", c.Index, c.Field, c.Column)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}
