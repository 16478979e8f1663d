// Package sink delivers export payloads outside the process.
package sink

import "github.com/starford/trihash/internal/models"

// Sink is the interface for export payload destinations.
type Sink interface {
	// Write atomically stores content at path (relative to the sink root)
	// and describes the stored payload.
	Write(path string, content []byte) (*models.ExportFile, error)
	// Read returns the payload stored at path.
	Read(path string) ([]byte, error)
	// List returns metadata for every payload under dir.
	List(dir string) ([]models.ExportFile, error)
	// Delete removes the payload at path.
	Delete(path string) error
}
