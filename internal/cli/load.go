package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/fastinsert/internal/config"
)

type LoadOptions struct {
	MappingFile string
	Input       string
	FromSQL     string
	FromMongo   string
	BatchSize   int
	DryRun      bool
	MetricsAddr string
}

func NewLoadCmd(root *rootOptions) *cobra.Command {
	opts := &LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk load records into a database",
		Long: `Load reads records from a JSON-lines file (or stdin), a SQL Server query or
a MongoDB collection and bulk loads them into the destination named by the
subcommand. Connection strings come from the environment.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.MappingFile, "mapping", "m", "configs/mapping.json", "Path to mapping file (json or yaml)")
	cmd.PersistentFlags().StringVarP(&opts.Input, "input", "i", "", "JSON-lines input file, - for stdin")
	cmd.PersistentFlags().StringVar(&opts.FromSQL, "from-sql", "", "Read records from this SQL Server query")
	cmd.PersistentFlags().StringVar(&opts.FromMongo, "from-mongo", "", "Read records from this MongoDB collection")
	cmd.PersistentFlags().IntVarP(&opts.BatchSize, "batch-size", "b", 0, "Rows per batch, overrides the mapping file")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "Decode and count records without writing")
	cmd.PersistentFlags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.MarkFlagsMutuallyExclusive("input", "from-sql", "from-mongo")
	cmd.MarkFlagsOneRequired("input", "from-sql", "from-mongo")

	for _, target := range []struct{ name, short string }{
		{config.TargetMSSQL, "Load into SQL Server with the TDS bulk copy protocol"},
		{config.TargetPostgres, "Load into PostgreSQL with COPY FROM STDIN"},
		{config.TargetMySQL, "Load into MySQL with LOAD DATA LOCAL INFILE"},
		{config.TargetMongo, "Load into a MongoDB collection with ordered InsertMany"},
	} {
		name := target.name
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: target.short,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				return runLoad(c.Context(), root.cfg, opts, name)
			},
		})
	}

	return cmd
}
