// =============================================================================
// Academic Bulk Importer - File Management Utilities
// =============================================================================
//
// This module handles the files around an import.
//
// KEY RESPONSIBILITIES:
//   1. Create the report and archive directories
//   2. Name report files from a pattern ({timestamp}, {uuid}, {date}, ...)
//   3. Move committed input files into the archive
//
// ARCHIVE STRUCTURE:
//   archive/
//   └── 2024/
//       └── 06/
//           └── 01/
//               └── courses.xlsx
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER STRUCTURE
// =============================================================================

// FileManager places report files and archives committed inputs.
type FileManager struct {
	// ReportDir receives written validation reports.
	ReportDir string

	// ArchiveDir receives input files after a successful commit.
	ArchiveDir string

	// UseTimestampSubdirs files archives under YYYY/MM/DD.
	UseTimestampSubdirs bool

	// Now returns the current time.
	Now func() time.Time
}

// NewFileManager creates a FileManager with date subdirectories enabled.
func NewFileManager(reportDir, archiveDir string) *FileManager {
	return &FileManager{
		ReportDir:           reportDir,
		ArchiveDir:          archiveDir,
		UseTimestampSubdirs: true,
		Now:                 time.Now,
	}
}

// EnsureDirectories creates the report and archive directories.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.ReportDir, fm.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns a fresh path in ReportDir for a report named by pattern.
func (fm *FileManager) ReportPath(pattern, ext string, params map[string]string) string {
	return filepath.Join(fm.ReportDir, GenerateOutputFileName(pattern, ext, fm.Now(), params))
}

// =============================================================================
// ARCHIVING
// =============================================================================

// ArchiveInputFile moves a committed input file into the archive.
//
// PARAMETERS:
//   - filePath: The input file to archive.
//
// RETURNS:
//   - The path of the archived file.
//   - An error if the file could not be moved.
//
// An existing archive entry with the same name is never overwritten; the new
// file gets a timestamp prefix instead.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	// Rename fails across filesystems; fall back to copy and remove.
	if err := os.Rename(filePath, archivePath); err != nil {
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

func (fm *FileManager) getArchivePath(filePath string) string {
	now := fm.Now()
	dir := fm.ArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	name := filepath.Base(filePath)
	path := filepath.Join(dir, name)
	if FileExists(path) {
		path = filepath.Join(dir, now.Format("150405")+"_"+name)
	}
	return path
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName expands the placeholders of format and appends ext
// when the name does not already end with it.
//
// PLACEHOLDERS:
//   - {uuid}: A random UUID
//   - {timestamp}: YYYYMMDD_HHMMSS
//   - {date}: YYYYMMDD
//   - {time}: HHMMSS
//   - {<key>}: Any key of params
func GenerateOutputFileName(format, ext string, now time.Time, params map[string]string) string {
	replacements := map[string]string{
		"{uuid}":      uuid.NewString(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	ext = "." + strings.TrimPrefix(ext, ".")
	if ext != "." && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
