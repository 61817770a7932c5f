// Package versioning derives PEP 440 version strings from Git repository state.
package versioning

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// saveVersion overwrites the fallback file with the resolved version
func saveVersion(fs billy.Filesystem, path, version string) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("writing fallback version: %w", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(version)); err != nil {
		return fmt.Errorf("writing fallback version: %w", err)
	}
	return nil
}

// loadVersion reads the last persisted version, or UnknownVersion when the
// file does not exist
func loadVersion(fs billy.Filesystem, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return UnknownVersion, nil
		}
		return "", fmt.Errorf("reading fallback version: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading fallback version: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
