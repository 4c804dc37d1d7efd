package excel

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ideamans/go-sheetrec"
)

// Config holds configuration for the Excel backend
type Config struct {
	Dir string // Directory holding the workbooks; document ids are file names in it
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Dir == "" {
		return ErrMissingDir
	}
	return nil
}

// Path maps a document id to a workbook path. Ids without an extension get .xlsx.
func (c *Config) Path(documentID string) string {
	name := documentID
	if filepath.Ext(name) == "" {
		name += ".xlsx"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, filepath.FromSlash(strings.TrimPrefix(name, "/")))
}

// DefaultClientConfig returns the recommended client configuration for local workbooks
func DefaultClientConfig() *sheetrec.Config {
	return &sheetrec.Config{
		MaxAttempts: 3,
		BackoffUnit: 100 * time.Millisecond,
	}
}
