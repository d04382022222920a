// Package manifest loads YAML message manifests and converts them into
// composable Mail values. Attachment entries accept either structured
// fields or a compact "path::content-type" specifier.
package manifest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"

	"github.com/mailfab/eml-compose/internal/attachment"
	"github.com/mailfab/eml-compose/internal/message"
)

// Manifest is the YAML document describing one message.
type Manifest struct {
	From        string    `yaml:"from"`
	To          []string  `yaml:"to"`
	Cc          []string  `yaml:"cc"`
	Bcc         []string  `yaml:"bcc"`
	Subject     string    `yaml:"subject"`
	MessageID   string    `yaml:"message_id"`
	TextBody    string    `yaml:"text_body"`
	HTMLBody    *HTMLBody `yaml:"html_body"`
	Attachments []Entry   `yaml:"attachments"`
}

// HTMLBody describes an HTML alternative to the text body, optionally with
// related inline resources (referenced by cid).
type HTMLBody struct {
	Content     string  `yaml:"content"`
	Charset     string  `yaml:"charset"`
	Alternative *bool   `yaml:"alternative"`
	Related     []Entry `yaml:"related"`
}

// HeaderEntry is one extra header attached to a part.
type HeaderEntry struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Entry describes one attachment. Exactly one of Path or Data must be set.
type Entry struct {
	Path        string        `yaml:"path"`
	Data        string        `yaml:"data"` // base64 inline payload
	Name        string        `yaml:"name"`
	ContentType string        `yaml:"content_type"`
	Inline      bool          `yaml:"inline"`
	Headers     []HeaderEntry `yaml:"headers"`
	Related     []Entry       `yaml:"related"`
}

// UnmarshalYAML accepts either a mapping with the full Entry fields or a
// scalar "path" / "path :: content-type" specifier.
func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var spec string
		if err := value.Decode(&spec); err != nil {
			return err
		}
		path, contentType := splitSpecifier(spec)
		if path == "" {
			return errors.New("attachment specifier requires a path")
		}
		e.Path = path
		e.ContentType = contentType
		return nil
	}

	type plain Entry
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Load reads and parses a manifest file.
func Load(path string) (*message.Mail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse converts manifest bytes into a Mail ready for composition.
func Parse(data []byte) (*message.Mail, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if m.From == "" {
		return nil, errors.New("manifest requires a from address")
	}
	if len(m.To) == 0 {
		return nil, errors.New("manifest requires at least one recipient")
	}

	mail := &message.Mail{
		From:      m.From,
		To:        m.To,
		Cc:        m.Cc,
		Bcc:       m.Bcc,
		Subject:   m.Subject,
		MessageID: m.MessageID,
		TextBody:  m.TextBody,
	}

	if m.HTMLBody != nil {
		att, err := buildHTML(m.HTMLBody)
		if err != nil {
			return nil, err
		}
		mail.Attachments = append(mail.Attachments, att)
	}

	for i, entry := range m.Attachments {
		att, err := buildEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		mail.Attachments = append(mail.Attachments, att)
	}

	return mail, nil
}

// buildHTML converts the html_body block into an HTML attachment with its
// related resources.
func buildHTML(body *HTMLBody) (attachment.Attachment, error) {
	var opts []attachment.Option
	if body.Charset != "" {
		opts = append(opts, attachment.WithCharset(body.Charset))
	}
	if body.Alternative != nil {
		opts = append(opts, attachment.WithAlternative(*body.Alternative))
	}
	for i, entry := range body.Related {
		child, err := buildEntry(entry)
		if err != nil {
			return attachment.Attachment{}, fmt.Errorf("html_body related %d: %w", i, err)
		}
		opts = append(opts, attachment.WithRelated(child))
	}
	return attachment.NewHTML(body.Content, opts...), nil
}

// buildEntry converts one attachment entry, recursing into its related
// children.
func buildEntry(e Entry) (attachment.Attachment, error) {
	var opts []attachment.Option
	if e.Inline {
		opts = append(opts, attachment.WithInline(true))
	}
	for _, h := range e.Headers {
		opts = append(opts, attachment.WithHeader(h.Name, h.Value))
	}
	for i, child := range e.Related {
		related, err := buildEntry(child)
		if err != nil {
			return attachment.Attachment{}, fmt.Errorf("related %d: %w", i, err)
		}
		opts = append(opts, attachment.WithRelated(related))
	}

	switch {
	case e.Data != "":
		payload, err := base64.StdEncoding.DecodeString(e.Data)
		if err != nil {
			return attachment.Attachment{}, fmt.Errorf("invalid base64 data: %w", err)
		}
		if e.Name == "" {
			return attachment.Attachment{}, errors.New("inline data attachment requires a name")
		}
		contentType := e.ContentType
		if contentType == "" {
			contentType = mimetype.Detect(payload).String()
		}
		return attachment.NewData(payload, contentType, e.Name, opts...), nil

	case e.Path != "":
		contentType := e.ContentType
		if contentType == "" {
			contentType = detectContentType(e.Path)
		}
		if contentType != "" {
			opts = append(opts, attachment.WithMIMEType(contentType))
		}
		if e.Name != "" {
			opts = append(opts, attachment.WithName(e.Name))
		}
		return attachment.NewFile(e.Path, opts...), nil

	default:
		return attachment.Attachment{}, errors.New("attachment entry requires a path or data")
	}
}

// detectContentType sniffs the content type from the file's bytes. An
// unreadable file yields an empty string and the attachment falls back to
// its application/octet-stream default; the read error itself surfaces
// later, at composition time.
func detectContentType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return mt.String()
}

// splitSpecifier splits a compact "path :: content-type" attachment
// specifier, trimming whitespace around both halves.
func splitSpecifier(spec string) (string, string) {
	parts := strings.SplitN(spec, "::", 2)
	path := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return path, ""
	}
	return path, strings.TrimSpace(parts[1])
}
