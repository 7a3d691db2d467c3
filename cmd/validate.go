// =============================================================================
// Academic Bulk Importer - Validate Command
// =============================================================================
//
// The validate command is a dry run: it decodes the file, validates every row
// against the catalog and prints the report. Nothing is written to the
// catalog.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/evalify/evalify-sub003/internal/config"
	"github.com/evalify/evalify-sub003/internal/importer"
	"github.com/evalify/evalify-sub003/internal/report"
	"github.com/evalify/evalify-sub003/internal/sheet"
	"github.com/evalify/evalify-sub003/pkg/utils"
)

var (
	inputFile    string
	reportPath   string
	saveReport   bool
	reportFormat string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a course spreadsheet without importing it",
	Long: `The validate command checks every row of an XLSX or CSV course spreadsheet:

  - Required fields and course type
  - Semester name format (S<sequence>-<org unit code>-<year>) and range
  - Org unit, semester, instructor and batch references
  - Duplicates inside the file and against existing courses

The report lists every error of every row. The command exits with code 2 when
any row is invalid.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		_, imp, closeCatalog, err := validateFile(cmd.Context(), cfg, logger, inputFile)
		if err != nil {
			return err
		}
		defer closeCatalog()

		rep := imp.Report()
		fmt.Fprint(cmd.OutOrStdout(), report.FormatText(rep, verbose))

		if err := writeReportFile(cmd, cfg, rep); err != nil {
			return err
		}
		if rep.HasErrors() {
			return withCode(exitValidation, fmt.Errorf("%d of %d rows failed validation", rep.Summary.InvalidRows, rep.Summary.TotalRows))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addInputFlags(validateCmd)
}

// addInputFlags registers the flags shared by validate and import.
func addInputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&inputFile, "file", "f", "", "Path to the XLSX or CSV file to validate")
	c.Flags().StringVar(&reportPath, "report", "", "Write the validation report to this path")
	c.Flags().BoolVar(&saveReport, "save-report", false, "Write the validation report into the configured report directory")
	c.Flags().StringVar(&reportFormat, "format", "", "Report file format: xlsx or json (default from config)")
	_ = c.MarkFlagRequired("file")
}

// validateFile decodes and validates path. The returned func releases the
// catalog and must be called once the engine is no longer needed.
func validateFile(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, path string) (*importer.Engine, *importer.Import, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, withCode(exitUsage, fmt.Errorf("failed to open input file: %w", err))
	}
	defer f.Close()

	raw, err := sheet.Decode(path, f, decodeOptions(cfg))
	if err != nil {
		return nil, nil, nil, withCode(exitUsage, err)
	}

	catalog, closeCatalog, err := openCatalog(ctx, cfg.Catalog, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	engine := newEngine(cfg, catalog, logger)
	imp, err := engine.Validate(ctx, filepath.Base(path), raw)
	if err != nil {
		closeCatalog()
		if errors.Is(err, importer.ErrNoRows) || errors.Is(err, importer.ErrTooManyRows) {
			return nil, nil, nil, withCode(exitValidation, err)
		}
		return nil, nil, nil, withCode(exitDB, err)
	}
	return engine, imp, closeCatalog, nil
}

// writeReportFile writes the report when --report or --save-report is set.
func writeReportFile(cmd *cobra.Command, cfg *config.Config, rep *report.Report) error {
	if reportPath == "" && !saveReport {
		return nil
	}

	format := strings.ToLower(reportFormat)
	if format == "" {
		format = cfg.Output.ReportFormat
	}
	if format != "xlsx" && format != "json" {
		return withCode(exitUsage, fmt.Errorf("unknown report format %q", format))
	}

	path := reportPath
	if path == "" {
		fm := utils.NewFileManager(cfg.Output.ReportDir, cfg.Output.ArchiveDir)
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
		path = fm.ReportPath(cfg.Output.ReportPattern, format, map[string]string{
			"source": strings.TrimSuffix(rep.Source, filepath.Ext(rep.Source)),
		})
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer out.Close()

	if format == "json" {
		err = report.WriteJSON(out, rep)
	} else {
		err = report.WriteXLSX(out, rep)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", path)
	return nil
}
