package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	infraconfig "github.com/legisflow/legisflow/infrastructure/config"
)

type exportSchemaOptions struct {
	outputPath string
}

func (a *App) newExportSchemaCmd() *cobra.Command {
	opts := &exportSchemaOptions{}

	cmd := &cobra.Command{
		Use:     "export-schema",
		Aliases: []string{"schema"},
		Short:   "Export the configuration JSON schema",
		Long: `Export the JSON Schema for configuration files.

The schema follows JSON Schema draft 2020-12 and can drive editor
validation and autocompletion.

Examples:
  legisflow export-schema
  legisflow export-schema -o legisflow.schema.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportSchema(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path (default: stdout)")

	return cmd
}

func (a *App) exportSchema(opts *exportSchemaOptions) error {
	schemaJSON, err := infraconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if opts.outputPath == "" {
		_, _ = fmt.Fprintln(a.stdout, schemaJSON)
		return nil
	}

	if err := os.WriteFile(opts.outputPath, []byte(schemaJSON), 0600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Schema exported to %s\n", opts.outputPath)
	return nil
}
