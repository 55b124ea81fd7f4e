package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/featuresync/internal/requirement"
)

// parsedFile is one entry of the parse output.
type parsedFile struct {
	Path         string                    `json:"path" yaml:"path"`
	Requirements []requirement.Requirement `json:"requirements" yaml:"requirements"`
}

func newParseCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse <file>...",
		Short: "Print the requirements found in feature files",
		Long: `Parse prints every requirement block in the given feature files, in the
shape sync would see them. Nothing is sent anywhere.

Examples:
  featuresync parse features/door.feature
  featuresync parse --format json features/*.feature`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]parsedFile, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				reqs := requirement.Parse(string(data))
				if reqs == nil {
					reqs = []requirement.Requirement{}
				}
				files = append(files, parsedFile{Path: path, Requirements: reqs})
			}
			return writeParsed(cmd.OutOrStdout(), format, files)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func writeParsed(w io.Writer, format string, files []parsedFile) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(files); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}
