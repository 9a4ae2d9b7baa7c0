package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/referer-classifier/internal/referer"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [database-file]",
		Short: "Check that a referer database parses and indexes",
		Long:  "Check that a referer database parses and indexes. Without a file, the bundled database is checked.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "bundled database"
			src := referer.DefaultSource()
			if len(args) == 1 {
				var err error
				name = args[0]
				if src, err = readSource(name); err != nil {
					return err
				}
			}
			cl, err := referer.New(src)
			if err != nil {
				return fmt.Errorf("index %s: %w", name, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"entries=%d keys=%d media=%s fingerprint=%s\n",
				cl.Entries(), cl.Keys(), strings.Join(cl.Media(), ","), cl.Fingerprint(),
			)
			if err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			return nil
		},
	}
}
