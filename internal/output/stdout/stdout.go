// Package stdout implements a Writer that prints composed messages to
// standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mailfab/eml-compose/internal/message"
)

// Writer prints serialized messages to stdout.
type Writer struct {
	// out is the destination, defaulting to os.Stdout.
	out io.Writer
}

// New creates a new stdout Writer that writes to os.Stdout.
func New() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWithWriter creates a new stdout Writer that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// Write prints the raw message bytes followed by a trailing newline so
// consecutive messages stay separable in a pipeline.
func (w *Writer) Write(_ context.Context, _ *message.Mail, raw []byte) error {
	if _, err := w.out.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	_, err := io.WriteString(w.out, "\r\n")
	return err
}

// Name returns the writer name.
func (w *Writer) Name() string {
	return "stdout"
}
