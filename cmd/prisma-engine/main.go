// Command prisma-engine validates datamodel files and prints the SQL schema
// calculated from them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zoosky/prisma-engine/datamodel"
	"github.com/zoosky/prisma-engine/parser"
	"github.com/zoosky/prisma-engine/sqlschema"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "prisma-engine",
		Short:         "Datamodel to SQL schema toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(validateCmd(), schemaCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func logger() zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func loadDatamodel(path string) (*parser.Schema, *datamodel.Datamodel, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	ast, err := parser.Parse(string(content))
	if err != nil {
		return nil, nil, err
	}

	dm, err := datamodel.Convert(ast)
	if err != nil {
		return nil, nil, err
	}

	return ast, dm, nil
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema file>",
		Short: "Validate a datamodel file and report every violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ast, dm, err := loadDatamodel(args[0])
			if err != nil {
				return err
			}

			err = datamodel.Validate(ast, dm)
			var list *datamodel.ErrorList
			switch {
			case err == nil:
				fmt.Printf("%s is valid: %d models, %d enums\n", args[0], len(dm.Models()), len(dm.Enums()))
				return nil
			case errors.As(err, &list):
				for _, violation := range list.Errors {
					fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n",
						args[0], violation.Span.Line, violation.Span.Column, violation.Message)
				}
				return fmt.Errorf("%d validation error(s)", len(list.Errors))
			default:
				return err
			}
		},
	}
}

func schemaCmd() *cobra.Command {
	var connectorType string

	cmd := &cobra.Command{
		Use:   "schema <schema file>",
		Short: "Print the SQL schema calculated from a datamodel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()

			ast, dm, err := loadDatamodel(args[0])
			if err != nil {
				return err
			}
			if err := datamodel.Validate(ast, dm); err != nil {
				return err
			}

			schema, err := sqlschema.Calculate(dm)
			if err != nil {
				return err
			}
			log.Debug().Int("tables", len(schema.Tables)).Msg("schema calculated")

			flavor, err := sqlschema.FlavorFromConnector(connectorType)
			if err != nil {
				return err
			}

			for _, stmt := range (sqlschema.Renderer{Flavor: flavor}).RenderCreate(schema) {
				fmt.Println(stmt + ";")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&connectorType, "connector", "c", "postgresql",
		"connector type: postgresql, mysql or sqlite")
	return cmd
}
