// =============================================================================
// Academic Bulk Importer - Main Entry Point
// =============================================================================
//
// This is the main entry point for the importer CLI. It delegates to the
// Cobra commands in the cmd package.
//
// USAGE:
//   importer validate --file F   - Validate a spreadsheet (dry run)
//   importer import --file F     - Validate, confirm and commit
//   importer template            - Write the import template
//   importer serve               - Run the HTTP API
//   importer version             - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Engine, decoders, catalogs, server
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/evalify/evalify-sub003/cmd"
)

func main() {
	cmd.Execute()
}
