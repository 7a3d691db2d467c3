package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalify/evalify-sub003/internal/report"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the course import template workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(templateOut)
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("failed to create template file: %w", err))
		}
		defer f.Close()

		if err := report.WriteTemplate(f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", templateOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().StringVarP(&templateOut, "out", "o", "course-import-template.xlsx", "Output path")
}
