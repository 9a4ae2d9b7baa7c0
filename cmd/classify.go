package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/referer-classifier/internal/referer"
)

func newClassifyCmd() *cobra.Command {
	var (
		current  string
		database string
	)
	cmd := &cobra.Command{
		Use:   "classify <referer-url>",
		Short: "Classify a single referer URL",
		Long: `Classifies one referer URL and prints the result as JSON. The bundled
database is used unless --database points at a JSON or YAML database file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src *referer.Source
			if database != "" {
				loaded, err := readSource(database)
				if err != nil {
					return err
				}
				src = &loaded
			}
			res, err := referer.Classify(args[0], current, src)
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "URL of the page the visitor landed on")
	cmd.Flags().StringVar(&database, "database", "", "referer database file (.json, .yml or .yaml)")
	return cmd
}

func readSource(path string) (referer.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return referer.Source{}, fmt.Errorf("read database: %w", err)
	}
	src, err := referer.Parse(filepath.Base(path), data)
	if err != nil {
		return referer.Source{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return src, nil
}
