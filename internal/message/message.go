// Package message assembles complete RFC 5322 messages from a top-level
// envelope and a set of attachments, deciding the multipart nesting from
// each attachment's classification.
package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"strings"

	"github.com/mailfab/eml-compose/internal/attachment"
)

// Mail is the envelope and content of a single outgoing message.
type Mail struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	TextBody    string
	MessageID   string
	Attachments []attachment.Attachment
}

// part is one node of the MIME tree. A leaf carries a pre-rendered header
// block and an already-encoded body; a composite carries a multipart media
// type and its children.
type part struct {
	header    string
	body      []byte
	mediaType string
	sub       []part
}

// Compose serializes the message. The multipart structure follows the
// attachment classification: alternative HTML parts group with the text
// body under multipart/alternative, attachments with related children get a
// multipart/related wrapper, and multiple top-level parts sit under
// multipart/mixed. A single top-level part is emitted without a mixed
// wrapper.
//
// Composition only fails when a file-backed attachment cannot be read.
func (m *Mail) Compose() ([]byte, error) {
	root, err := m.contentTree()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	if len(m.To) > 0 {
		fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.To, ", "))
	}
	if len(m.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(m.Cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", m.Subject))
	if m.MessageID != "" {
		fmt.Fprintf(&buf, "Message-ID: %s\r\n", m.MessageID)
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writePart(&buf, root)
	return buf.Bytes(), nil
}

// contentTree builds the root part of the message body.
func (m *Mail) contentTree() (part, error) {
	textPart := part{
		header: "Content-Type: text/plain; charset=UTF-8",
		body:   []byte(m.TextBody),
	}
	hasText := m.TextBody != ""

	var alternatives, mixed []part
	for _, att := range m.Attachments {
		p, err := attachmentPart(att)
		if err != nil {
			return part{}, err
		}
		if att.IsAlternative() {
			alternatives = append(alternatives, p)
		} else {
			mixed = append(mixed, p)
		}
	}

	var tops []part
	switch {
	case len(alternatives) > 0 && hasText:
		tops = append(tops, part{
			mediaType: "multipart/alternative",
			sub:       append([]part{textPart}, alternatives...),
		})
	case len(alternatives) > 1:
		tops = append(tops, part{mediaType: "multipart/alternative", sub: alternatives})
	case len(alternatives) == 1:
		tops = append(tops, alternatives[0])
	case hasText:
		tops = append(tops, textPart)
	}
	tops = append(tops, mixed...)

	switch len(tops) {
	case 0:
		// Nothing to send; emit an empty text body so the message stays
		// well formed.
		return textPart, nil
	case 1:
		return tops[0], nil
	default:
		return part{mediaType: "multipart/mixed", sub: tops}, nil
	}
}

// attachmentPart converts one attachment into a MIME part, wrapping it in
// multipart/related when it carries children.
func attachmentPart(att attachment.Attachment) (part, error) {
	leaf, err := leafPart(att)
	if err != nil {
		return part{}, err
	}
	if !att.HasRelated() {
		return leaf, nil
	}

	sub := []part{leaf}
	for _, child := range att.Related() {
		cp, err := attachmentPart(child)
		if err != nil {
			return part{}, err
		}
		sub = append(sub, cp)
	}
	return part{mediaType: "multipart/related", sub: sub}, nil
}

// leafPart renders the attachment's own headers and base64 payload. The
// header block comes from the attachment verbatim; it already declares the
// BASE64 transfer encoding performed here.
func leafPart(att attachment.Attachment) (part, error) {
	payload, err := payloadBytes(att)
	if err != nil {
		return part{}, err
	}
	return part{
		header: att.HeaderString(),
		body:   []byte(encodeBase64Wrapped(payload)),
	}, nil
}

// payloadBytes resolves the raw payload for each variant. File payloads are
// read here, at serialization time, so construction of the attachment never
// touched the filesystem.
func payloadBytes(att attachment.Attachment) ([]byte, error) {
	switch v := att.Variant().(type) {
	case attachment.Data:
		return v.Bytes, nil
	case attachment.File:
		data, err := os.ReadFile(v.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment file: %w", err)
		}
		return data, nil
	case attachment.HTML:
		return []byte(v.Content), nil
	default:
		panic(fmt.Sprintf("message: unknown attachment variant %T", v))
	}
}

// writePart serializes a part, headers then blank line then body. Composite
// parts write their children between boundary delimiters. Part headers are
// written verbatim rather than through textproto, which would reorder them.
func writePart(buf *bytes.Buffer, p part) {
	if p.mediaType == "" {
		buf.WriteString(p.header)
		buf.WriteString("\r\n\r\n")
		buf.Write(p.body)
		return
	}

	boundary := randomBoundary()
	fmt.Fprintf(buf, "Content-Type: %s; boundary=%q\r\n\r\n", p.mediaType, boundary)
	for _, sp := range p.sub {
		fmt.Fprintf(buf, "--%s\r\n", boundary)
		writePart(buf, sp)
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(buf, "--%s--\r\n", boundary)
}

// randomBoundary returns a fresh boundary token.
func randomBoundary() string {
	return multipart.NewWriter(io.Discard).Boundary()
}

// encodeBase64Wrapped encodes bytes to base64 with 76-character line breaks
// per RFC 2045.
func encodeBase64Wrapped(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
