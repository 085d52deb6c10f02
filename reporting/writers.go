package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

var _ ReportWriter = (*FileWriter)(nil)

// ReportWriter defines the interface for writing rendered output to various destinations
type ReportWriter interface {
	Write(content string) error
}

// FileWriter writes rendered output to a file, creating its directory
type FileWriter struct {
	path string
}

// NewFileWriter creates a new file writer
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Path returns the destination file.
func (fw *FileWriter) Path() string {
	return fw.path
}

// Write writes the content to the file
func (fw *FileWriter) Write(content string) error {
	if err := os.MkdirAll(filepath.Dir(fw.path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(fw.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", fw.path, err)
	}
	return nil
}
