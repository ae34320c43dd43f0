// =============================================================================
// File Mapper - Main Entry Point
// =============================================================================
//
// This is the main entry point for the File Mapper CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   converter preview <file>   - Show the first rows of a file
//   converter map <file>       - Build a column mapping interactively
//   converter convert <file>   - Apply a saved mapping and export
//   converter inspect <file>   - Describe a file and its OFX statements
//   converter serve            - Start the web interface
//   converter version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsers, mapper, exporters, session and HTTP server
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/file-mapper/cmd"
)

func main() {
	cmd.Execute()
}
