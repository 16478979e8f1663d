// Package testutil provides shared test helpers for setting up stores, sinks
// and frame sets.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/frame"
	"github.com/starford/trihash/internal/sink"
	"github.com/starford/trihash/internal/store"
)

// Frames is a frame document covering both identifier kinds.
const Frames = `
schema: [task_name, description, category, owner]
frames:
  - frame_name: Task content
    hash_field: sem_content_hash
    input:
      fields: [task_name, description, category]
      separator: "|"
      normalization: {lowercase: true, trim: true}
  - frame_name: Task routing
    hash_field: op_routing_hash
    input:
      fields: [category, owner]
      separator: ":"
`

// TaskRecord returns a record matching Frames.
func TaskRecord() map[string]string {
	return map[string]string{
		"task_name":   "Reconnaissance",
		"description": "Initial recon phase",
		"category":    "intel",
		"owner":       "alice",
	}
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "trihash-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSink creates a temporary export directory with a file sink.
func TestSink(t *testing.T) (string, *sink.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := sink.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestFrames parses Frames.
func TestFrames(t *testing.T) *frame.Set {
	t.Helper()
	set, err := frame.Parse([]byte(Frames))
	if err != nil {
		t.Fatal(err)
	}
	return set
}

// TestFramesFile writes Frames to a temporary file and returns its path.
func TestFramesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.yaml")
	if err := os.WriteFile(path, []byte(Frames), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestEngine returns an engine over TestFrames.
func TestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.New(TestFrames(t), nil)
}
