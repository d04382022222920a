// Package file implements a Writer that saves composed messages as .eml
// files.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mailfab/eml-compose/internal/message"
)

// Writer saves serialized messages to disk. An explicit path wins; otherwise
// a filename is derived from the Message-ID or a UTC timestamp and placed in
// dir.
type Writer struct {
	path string
	dir  string
}

// New creates a file Writer. Either path or dir may be empty, not both.
func New(path, dir string) *Writer {
	return &Writer{path: path, dir: dir}
}

// Write persists the raw message bytes.
func (w *Writer) Write(_ context.Context, m *message.Mail, raw []byte) error {
	dest := w.path
	if dest == "" {
		dest = filepath.Join(w.dir, w.filename(m))
	}

	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write message file: %w", err)
	}

	slog.Info("wrote message",
		"path", dest,
		"bytes", len(raw),
	)
	return nil
}

// Name returns the writer name.
func (w *Writer) Name() string {
	return "file"
}

// filename derives a safe .eml filename from the message.
func (w *Writer) filename(m *message.Mail) string {
	name := strings.Trim(m.MessageID, "<>")
	if name == "" {
		name = time.Now().UTC().Format("20060102T150405")
	}
	name = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
	return name + ".eml"
}
