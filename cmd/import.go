// =============================================================================
// Academic Bulk Importer - Import Command
// =============================================================================
//
// The import command validates a file, shows the report, asks for
// confirmation and commits the valid rows.
//
// COMMIT ORDER:
//   1. Create the semesters the file refers to but the catalog lacks
//   2. Create one course per valid row
//
// Invalid rows are skipped. On success the input file is moved into the
// archive directory.
//
// =============================================================================

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evalify/evalify-sub003/internal/importer"
	"github.com/evalify/evalify-sub003/internal/report"
	"github.com/evalify/evalify-sub003/pkg/utils"
)

var (
	assumeYes bool
	noArchive bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate a course spreadsheet and import the valid rows",
	Long: `The import command runs the same checks as validate, prints the report and
asks for confirmation before writing anything. Use --yes to skip the prompt.

Once confirmed, missing semesters are created first, then the courses. If
course creation fails after semesters were created, those semesters remain
and are listed in the output.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		engine, imp, closeCatalog, err := validateFile(cmd.Context(), cfg, logger, inputFile)
		if err != nil {
			return err
		}
		defer closeCatalog()

		out := cmd.OutOrStdout()
		rep := imp.Report()
		fmt.Fprint(out, report.FormatText(rep, verbose))
		if err := writeReportFile(cmd, cfg, rep); err != nil {
			return err
		}

		valid := rep.Summary.ValidRows
		if valid == 0 {
			return withCode(exitValidation, errors.New("no valid rows to import"))
		}

		if !assumeYes {
			question := fmt.Sprintf("\nCreate %d semester(s) and %d course(s)", rep.Summary.SemestersToAdd, valid)
			if rep.Summary.InvalidRows > 0 {
				question += fmt.Sprintf(", skipping %d invalid row(s)", rep.Summary.InvalidRows)
			}
			ok, err := confirm(cmd.InOrStdin(), out, question+"?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Import abandoned. Nothing was written.")
				return nil
			}
		}

		res, err := engine.Commit(cmd.Context(), imp)
		if err != nil {
			if res != nil {
				printCommitResult(out, res)
			}
			return withCode(exitDBWrite, err)
		}
		printCommitResult(out, res)

		if noArchive {
			return nil
		}
		fm := utils.NewFileManager(cfg.Output.ReportDir, cfg.Output.ArchiveDir)
		archived, err := fm.ArchiveInputFile(inputFile)
		if err != nil {
			logger.WithError(err).Warn("import committed but the input file could not be archived")
			return nil
		}
		fmt.Fprintf(out, "Input archived to %s\n", archived)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	addInputFlags(importCmd)

	importCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Commit without asking for confirmation")
	importCmd.Flags().BoolVar(&noArchive, "no-archive", false, "Leave the input file in place after a successful import")
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func printCommitResult(out io.Writer, res *importer.CommitResult) {
	fmt.Fprintln(out, "\n=== Import Result ===")
	fmt.Fprintf(out, "State:             %s\n", res.State)
	fmt.Fprintf(out, "Semesters created: %d\n", len(res.CreatedSemesters))
	for _, s := range res.CreatedSemesters {
		fmt.Fprintf(out, "  - %s (%d)\n", s.Name, s.Year)
	}
	fmt.Fprintf(out, "Courses created:   %d\n", res.CoursesCreated)
	fmt.Fprintf(out, "Rows skipped:      %d\n", res.SkippedRows)
	if res.Error != "" {
		fmt.Fprintf(out, "Failed during %s: %s\n", res.FailedPhase, res.Error)
	}
}
