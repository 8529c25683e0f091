package reporter

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteReport replaces the report at path, creating its directory if needed.
func WriteReport(path, report string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}
