// =============================================================================
// Academic Bulk Importer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (importer)
//   ├── validateCmd (importer validate)
//   ├── importCmd   (importer import)
//   ├── templateCmd (importer template)
//   ├── serveCmd    (importer serve)
//   └── versionCmd  (importer version)
//
// EXIT CODES:
//   0 success, 1 unexpected, 2 invalid rows (validate), 3 usage or
//   configuration, 4 catalog read failure, 5 commit failure
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/evalify/evalify-sub003/internal/config"
	"github.com/evalify/evalify-sub003/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging and lists valid rows in reports.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Academic Bulk Importer - validate and import course spreadsheets",
	Long: `Academic Bulk Importer validates a course spreadsheet against the academic
catalog (org units, semesters, batches, faculty) and, after confirmation,
creates the missing semesters and the courses in two phases.

Key Features:
  - Every row is checked; all errors of a row are reported together
  - Semester names like S2-AID-2024 are resolved, unknown ones are created
  - Duplicate courses are caught inside the file and against the catalog
  - PostgreSQL, MongoDB, remote HTTP and in-memory catalogs

Example Usage:
  importer validate --file courses.xlsx        # Dry run, print the report
  importer import --file courses.xlsx          # Validate, confirm, commit
  importer template --out template.xlsx        # Write the column template
  importer serve                               # Run the HTTP API`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command and exits with the code of the error.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// loadRuntime loads the configuration and builds the logger. The config file
// may be absent unless --config was given explicitly.
func loadRuntime(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.LoadConfig(cfgFile, explicit)
	if err != nil {
		return nil, nil, withCode(exitUsage, err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, withCode(exitUsage, err)
	}
	return cfg, logger, nil
}
