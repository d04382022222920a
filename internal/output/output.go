// Package output defines the interface for composed-message destinations.
package output

import (
	"context"

	"github.com/mailfab/eml-compose/internal/message"
)

// Writer is the interface that message destinations must implement.
// Each writer persists a fully serialized message somewhere local
// (e.g., stdout, a .eml file in a spool directory).
type Writer interface {
	// Write delivers the serialized message to this destination.
	// It returns an error if the write fails.
	Write(ctx context.Context, m *message.Mail, raw []byte) error

	// Name returns the human-readable name of this writer.
	Name() string
}
