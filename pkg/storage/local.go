package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Local stores QR artifacts on the local filesystem. Always available; the
// S3 mirror is layered on top by the background worker.
type Local struct {
	dir string
}

// NewLocal creates a local artifact store rooted at dir (os.TempDir() if empty).
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "wingedflyer-qr")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Path returns the local file path for an event's QR PNG.
func (l *Local) Path(eventID string) string {
	return filepath.Join(l.dir, eventID+".png")
}

// Write persists a QR PNG for an event.
func (l *Local) Write(eventID string, png []byte) error {
	return os.WriteFile(l.Path(eventID), png, 0o644)
}

// Read loads an event's QR PNG. Returns os.ErrNotExist when absent.
func (l *Local) Read(eventID string) ([]byte, error) {
	return os.ReadFile(l.Path(eventID))
}

// Remove deletes an event's QR PNG if present.
func (l *Local) Remove(eventID string) error {
	err := os.Remove(l.Path(eventID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
